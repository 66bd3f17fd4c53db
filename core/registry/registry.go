// Package registry maps SQL function calls to holder-backed kernels.
//
// The table is static: it is built once on first use and never modified.
// Each entry describes one signature of a function, the holder constructor
// run at bind time, and the columnar evaluator run per batch.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
)

// BindOptions carries the configuration holder constructors depend on.
type BindOptions struct {
	StrictJSON    bool // get_json_object validates whole documents
	PathCacheSize int  // translated JSON paths kept per holder
}

// DefaultBindOptions returns the options used when none are configured.
func DefaultBindOptions() BindOptions {
	return BindOptions{PathCacheSize: holders.DefaultPathCacheSize}
}

// HolderMaker constructs the holder for a call at bind time.
type HolderMaker func(call *expr.FunctionNode, opts BindOptions) (holders.Holder, error)

// Evaluator computes one output column of rows values.
type Evaluator func(h holders.Holder, ctx *exec.Context, args []Arg, rows int, mem memory.Allocator) (arrow.Array, error)

// Kernel is one registered function signature.
type Kernel struct {
	Name       string
	Aliases    []string
	ArgTypes   []arrow.Type
	RetType    arrow.DataType
	Doc        string
	MakeHolder HolderMaker
	Eval       Evaluator
}

// Signature renders the kernel as name(type, ...) -> type.
func (k *Kernel) Signature() string {
	return signatureKey(k.Name, k.ArgTypes) + " -> " + k.RetType.Name()
}

// Registry is an immutable function table.
type Registry struct {
	kernels []*Kernel
	index   map[string]*Kernel // signature key of name or alias -> kernel
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the built-in table of holder-backed functions.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New(builtinKernels()...)
	})
	return defaultRegistry
}

// New builds a registry from kernels. Later duplicates of a signature are ignored.
func New(kernels ...*Kernel) *Registry {
	r := &Registry{index: make(map[string]*Kernel)}
	for _, k := range kernels {
		added := false
		for _, name := range append([]string{k.Name}, k.Aliases...) {
			key := signatureKey(name, k.ArgTypes)
			if _, exists := r.index[key]; exists {
				continue
			}
			r.index[key] = k
			added = true
		}
		if added {
			r.kernels = append(r.kernels, k)
		}
	}
	return r
}

// Lookup finds the kernel for a function name and argument type list.
func (r *Registry) Lookup(name string, argTypes []arrow.Type) (*Kernel, error) {
	key := signatureKey(name, argTypes)
	k, ok := r.index[key]
	if !ok {
		return nil, errors.NewNotFound("function", key)
	}
	return k, nil
}

// Has reports whether any signature is registered under name.
func (r *Registry) Has(name string) bool {
	name = strings.ToLower(name)
	for _, k := range r.kernels {
		if k.Name == name {
			return true
		}
		for _, a := range k.Aliases {
			if a == name {
				return true
			}
		}
	}
	return false
}

// Kernels returns every registered kernel ordered by signature.
func (r *Registry) Kernels() []*Kernel {
	out := make([]*Kernel, len(r.kernels))
	copy(out, r.kernels)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Signature() < out[j].Signature()
	})
	return out
}

func signatureKey(name string, argTypes []arrow.Type) string {
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		parts[i] = strings.ToLower(t.String())
	}
	return strings.ToLower(name) + "(" + strings.Join(parts, ", ") + ")"
}

package registry

import (
	"github.com/FocuswithJustin/exprholders/core/cache"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
	"github.com/FocuswithJustin/exprholders/internal/logging"
)

// Bound is a call resolved to a kernel with its own holder instance.
type Bound struct {
	Call        *expr.FunctionNode
	Kernel      *Kernel
	Holder      holders.Holder
	Fingerprint string
}

// Clone returns a copy with a fresh holder instance for another worker.
func (b *Bound) Clone() *Bound {
	c := *b
	c.Holder = b.Holder.Clone()
	return &c
}

// Binder resolves calls against a registry and caches holder prototypes by
// fingerprint. Every Bind returns a clone of the prototype, so the result
// may be used by one goroutine without further coordination.
type Binder struct {
	reg    *Registry
	opts   BindOptions
	protos cache.Cache[string, holders.Holder]
}

// NewBinder creates a binder. cacheSize 0 disables prototype caching.
func NewBinder(reg *Registry, opts BindOptions, cacheSize int) *Binder {
	if reg == nil {
		reg = Default()
	}
	b := &Binder{reg: reg, opts: opts}
	if cacheSize > 0 {
		b.protos = cache.NewLRUCache[string, holders.Holder](cache.Config{MaxSize: cacheSize})
	}
	return b
}

// Registry returns the table the binder resolves against.
func (b *Binder) Registry() *Registry { return b.reg }

// Options returns the bind options passed to holder constructors.
func (b *Binder) Options() BindOptions { return b.opts }

// Bind resolves call and constructs (or reuses) its holder.
func (b *Binder) Bind(call *expr.FunctionNode) (*Bound, error) {
	k, err := b.reg.Lookup(call.Name, call.ArgTypes())
	if err != nil {
		logging.BindFailure(call.Name, err)
		return nil, err
	}
	fp := Fingerprint(k.Name, call, b.opts)

	var (
		proto  holders.Holder
		cached bool
	)
	if b.protos == nil {
		proto, err = k.MakeHolder(call, b.opts)
	} else {
		proto, cached, err = b.protos.GetOrLoad(fp, func() (holders.Holder, error) {
			return k.MakeHolder(call, b.opts)
		})
	}
	if err != nil {
		logging.BindFailure(k.Name, err, "call", call.String())
		return nil, err
	}
	logging.HolderBound(k.Name, fp, cached)

	return &Bound{
		Call:        call,
		Kernel:      k,
		Holder:      proto.Clone(),
		Fingerprint: fp,
	}, nil
}

// CacheStats reports prototype cache activity.
func (b *Binder) CacheStats() cache.Stats {
	if b.protos == nil {
		return cache.Stats{}
	}
	return b.protos.Stats()
}

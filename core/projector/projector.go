// Package projector evaluates holder-backed function calls over Arrow record
// batches.
//
// A Projector binds a list of named calls against an input schema once, then
// evaluates them batch by batch. Each Projector owns one execution context
// and one holder instance per call, so it must be used by a single goroutine.
// EvaluateAll fans batches out to workers, each with its own clone.
package projector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"go.uber.org/multierr"

	"github.com/FocuswithJustin/exprholders/core/arena"
	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
	"github.com/FocuswithJustin/exprholders/core/registry"
	"github.com/FocuswithJustin/exprholders/internal/logging"
	"github.com/FocuswithJustin/exprholders/internal/workerpool"
)

// Expression is one named output column.
type Expression struct {
	Name string
	Call *expr.FunctionNode
}

// Projector evaluates a fixed set of expressions.
type Projector struct {
	schema    *arrow.Schema
	outSchema *arrow.Schema
	exprs     []Expression
	bound     []*registry.Bound
	argCols   [][]int // per expression, per argument: input column index or -1 for literals

	mem       memory.Allocator
	arenaOpts []arena.Option
	ctx       *exec.Context
}

// Option configures a Projector.
type Option func(*Projector)

// WithAllocator sets the allocator for output arrays and arena memory.
func WithAllocator(mem memory.Allocator) Option {
	return func(p *Projector) {
		if mem != nil {
			p.mem = mem
		}
	}
}

// WithArenaOptions configures the per-batch arena.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(p *Projector) { p.arenaOpts = append(p.arenaOpts, opts...) }
}

// New binds every expression against schema. All bind errors are reported
// together; no Projector is returned unless every expression binds. A nil
// binder resolves against the default registry without caching.
func New(schema *arrow.Schema, exprs []Expression, binder *registry.Binder, opts ...Option) (*Projector, error) {
	if binder == nil {
		binder = registry.NewBinder(nil, registry.DefaultBindOptions(), 0)
	}
	p := &Projector{
		schema: schema,
		exprs:  exprs,
		mem:    memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(p)
	}

	var errs error
	fields := make([]arrow.Field, 0, len(exprs))
	for _, e := range exprs {
		cols, err := resolveArgs(schema, e)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		b, err := binder.Bind(e.Call)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expression %q: %w", e.Name, err))
			continue
		}
		p.bound = append(p.bound, b)
		p.argCols = append(p.argCols, cols)
		fields = append(fields, arrow.Field{Name: e.Name, Type: b.Kernel.RetType, Nullable: true})
	}
	if errs != nil {
		return nil, errs
	}

	p.outSchema = arrow.NewSchema(fields, nil)
	p.ctx = p.newContext()
	return p, nil
}

func resolveArgs(schema *arrow.Schema, e Expression) ([]int, error) {
	cols := make([]int, len(e.Call.Args))
	for i, arg := range e.Call.Args {
		switch a := arg.(type) {
		case *expr.LiteralNode:
			cols[i] = -1
		case *expr.FieldNode:
			idx := schema.FieldIndices(a.Field.Name)
			if len(idx) == 0 {
				return nil, fmt.Errorf("expression %q: %w", e.Name, errors.NewNotFound("column", a.Field.Name))
			}
			got := schema.Field(idx[0]).Type
			if !arrow.TypeEqual(got, a.Field.Type) {
				return nil, fmt.Errorf("expression %q: %w", e.Name, errors.NewBind(e.Call.Name, i,
					fmt.Sprintf("column %s is %s, call expects %s", a.Field.Name, got, a.Field.Type)))
			}
			cols[i] = idx[0]
		default:
			return nil, fmt.Errorf("expression %q: %w", e.Name,
				errors.NewUnsupported("nested function arguments", arg.String()))
		}
	}
	return cols, nil
}

func (p *Projector) newContext() *exec.Context {
	return exec.NewContext(exec.WithAllocator(p.mem), exec.WithArenaOptions(p.arenaOpts...))
}

// Schema returns the output schema.
func (p *Projector) Schema() *arrow.Schema { return p.outSchema }

// Clone returns a Projector with its own holder instances and execution
// context, for use by another goroutine.
func (p *Projector) Clone() *Projector {
	c := *p
	c.bound = make([]*registry.Bound, len(p.bound))
	for i, b := range p.bound {
		c.bound[i] = b.Clone()
	}
	c.ctx = c.newContext()
	return &c
}

// Release frees the execution context's arena.
func (p *Projector) Release() {
	p.ctx.Release()
}

// Diagnostics returns the first row-level error message of the last batch
// and the number of messages recorded.
func (p *Projector) Diagnostics() (string, int) {
	return p.ctx.ErrorMessage(), p.ctx.ErrorCount()
}

// Evaluate computes every expression over rec. The caller owns the returned
// record and must Release it.
func (p *Projector) Evaluate(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	if !p.schema.Equal(rec.Schema()) {
		return nil, errors.NewParse("record batch", "", "schema does not match projector input schema")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	p.ctx.Reset()
	rows := int(rec.NumRows())

	cols := make([]arrow.Array, 0, len(p.bound))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, b := range p.bound {
		args := make([]registry.Arg, len(p.argCols[i]))
		for j, col := range p.argCols[i] {
			if col < 0 {
				args[j] = registry.LiteralArg(b.Call.Args[j].(*expr.LiteralNode))
			} else {
				args[j] = registry.ColumnArg(rec.Column(col))
			}
		}
		out, err := b.Kernel.Eval(b.Holder, p.ctx, args, rows, p.mem)
		if err != nil {
			return nil, fmt.Errorf("expression %q: %w", p.exprs[i].Name, err)
		}
		cols = append(cols, out)
	}

	logCtx := p.ctx.LogContext(ctx)
	if p.ctx.HasError() {
		logging.RowFault(logCtx, p.ctx.ErrorMessage(), "count", p.ctx.ErrorCount())
	}
	logging.BatchEvaluated(logCtx, rows, p.ctx.Arena().Used(), time.Since(start))

	return array.NewRecord(p.outSchema, cols, int64(rows)), nil
}

type batchJob struct {
	index int
	rec   arrow.Record
}

type batchResult struct {
	rec arrow.Record
	err error
}

// partition pins every position-dependent holder to sub-stream n.
func (p *Projector) partition(n uint64) {
	for _, b := range p.bound {
		if ph, ok := b.Holder.(holders.Partitioner); ok {
			ph.Partition(n)
		}
	}
}

// EvaluateAll evaluates recs on up to workers goroutines, each using its own
// clone of p. Output records are returned in input order. Random kernels draw
// batch i from sub-stream i of their seed, so the output is the same for any
// worker count. On error every produced record is released and the combined
// error is returned.
func (p *Projector) EvaluateAll(ctx context.Context, recs []arrow.Record, workers int) ([]arrow.Record, error) {
	jobs := make([]batchJob, len(recs))
	for i, rec := range recs {
		jobs[i] = batchJob{index: i, rec: rec}
	}

	var (
		mu     sync.Mutex
		clones []*Projector
	)
	results := workerpool.Map(workers, jobs, func() func(batchJob) batchResult {
		w := p.Clone()
		mu.Lock()
		clones = append(clones, w)
		mu.Unlock()
		return func(job batchJob) batchResult {
			w.partition(uint64(job.index))
			out, err := w.Evaluate(ctx, job.rec)
			return batchResult{rec: out, err: err}
		}
	})
	for _, c := range clones {
		c.Release()
	}

	var errs error
	out := make([]arrow.Record, len(results))
	for i, r := range results {
		errs = multierr.Append(errs, r.err)
		out[i] = r.rec
	}
	if errs != nil {
		for _, r := range out {
			if r != nil {
				r.Release()
			}
		}
		return nil, errs
	}
	logging.Debug("batches_evaluated", "batches", len(out), "workers", len(clones))
	return out, nil
}

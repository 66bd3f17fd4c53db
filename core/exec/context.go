// Package exec provides the per-batch execution context handed to holders.
package exec

import (
	"context"
	"log/slog"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/exprholders/core/arena"
	"github.com/FocuswithJustin/exprholders/internal/logging"
)

// Context is the execution context for one evaluation batch. It owns the
// output arena and the error-message sink. A Context belongs to a single
// worker; it is not safe for concurrent use.
type Context struct {
	id     string
	newID  func() string
	arena  *arena.Arena
	errMsg string
	errs   int
}

// Option configures a Context.
type Option func(*options)

type options struct {
	mem        memory.Allocator
	arenaOpts  []arena.Option
	batchIDGen func() string
}

// WithAllocator sets the allocator backing the arena.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithArenaOptions forwards options to the arena.
func WithArenaOptions(opts ...arena.Option) Option {
	return func(o *options) { o.arenaOpts = append(o.arenaOpts, opts...) }
}

// WithBatchIDs replaces the batch id generator (uuid strings by default).
func WithBatchIDs(gen func() string) Option {
	return func(o *options) {
		if gen != nil {
			o.batchIDGen = gen
		}
	}
}

// NewContext creates an execution context with a fresh batch id.
func NewContext(opts ...Option) *Context {
	o := options{batchIDGen: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return &Context{
		id:    o.batchIDGen(),
		newID: o.batchIDGen,
		arena: arena.New(o.mem, o.arenaOpts...),
	}
}

// ID returns the current batch id.
func (c *Context) ID() string {
	return c.id
}

// Arena returns the output arena.
func (c *Context) Arena() *arena.Arena {
	return c.arena
}

// Allocate returns n bytes of batch-lifetime memory.
func (c *Context) Allocate(n int) ([]byte, error) {
	return c.arena.Allocate(n)
}

// Copy copies src into batch-lifetime memory.
func (c *Context) Copy(src []byte) ([]byte, error) {
	return c.arena.Copy(src)
}

// SetErrorMessage records a non-fatal diagnostic. Only the first message of a
// batch is kept; later ones are counted.
func (c *Context) SetErrorMessage(msg string) {
	if c.errs == 0 {
		c.errMsg = msg
	}
	c.errs++
}

// HasError reports whether any diagnostic was recorded in this batch.
func (c *Context) HasError() bool {
	return c.errs > 0
}

// ErrorMessage returns the first diagnostic recorded in this batch.
func (c *Context) ErrorMessage() string {
	return c.errMsg
}

// ErrorCount returns the number of diagnostics recorded in this batch.
func (c *Context) ErrorCount() int {
	return c.errs
}

// Logger returns the package logger annotated with this batch's id.
func (c *Context) Logger() *slog.Logger {
	return logging.LoggerFromContext(c.LogContext(context.Background()))
}

// LogContext attaches the batch id to ctx for the logging helpers.
func (c *Context) LogContext(ctx context.Context) context.Context {
	return logging.WithBatchID(ctx, c.id)
}

// Reset starts a new batch: arena memory from the previous batch is reclaimed,
// the error sink is cleared and a new batch id is drawn.
func (c *Context) Reset() {
	c.arena.Reset()
	c.errMsg = ""
	c.errs = 0
	c.id = c.newID()
}

// Release returns all arena memory to the allocator.
func (c *Context) Release() {
	c.arena.Release()
}

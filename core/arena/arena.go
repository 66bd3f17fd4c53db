// Package arena provides the batch-scoped bump allocator that holders write
// their row outputs into.
//
// Memory comes from an Arrow memory.Allocator in fixed-size chunks. A slice
// returned by Allocate stays valid, and is never overwritten by a later
// allocation, until the owner calls Reset or Release. Returned slices are
// capacity-limited, so appending to one reallocates instead of clobbering its
// neighbour.
package arena

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

// DefaultChunkSize is the chunk size used when no option overrides it.
const DefaultChunkSize = 64 * 1024

// empty is the only static slice holders may return.
var empty = []byte{}

// Empty returns the shared zero-length, non-nil slice.
func Empty() []byte {
	return empty[:0:0]
}

// Arena is a single-writer bump allocator. It is not safe for concurrent use.
type Arena struct {
	mem       memory.Allocator
	chunkSize int
	limit     int

	chunks [][]byte // every buffer obtained from mem, in allocation order
	cur    []byte   // chunk currently being bumped
	off    int      // next free byte in cur
	used   int      // bytes handed out since the last Reset
}

// Option configures an Arena.
type Option func(*Arena)

// WithChunkSize sets the size of each chunk requested from the allocator.
func WithChunkSize(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.chunkSize = n
		}
	}
}

// WithLimit caps the bytes handed out between resets. Zero means unlimited.
func WithLimit(n int) Option {
	return func(a *Arena) {
		if n >= 0 {
			a.limit = n
		}
	}
}

// New creates an arena drawing memory from mem (memory.DefaultAllocator when nil).
func New(mem memory.Allocator, opts ...Option) *Arena {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	a := &Arena{
		mem:       mem,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns n bytes of arena memory.
func (a *Arena) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, &errors.ParseError{Format: "allocation size", Message: fmt.Sprintf("negative size %d", n)}
	}
	if n == 0 {
		return Empty(), nil
	}
	if a.limit > 0 && a.used+n > a.limit {
		return nil, errors.Wrapf(errors.ErrArenaExhausted, "allocate %d bytes with %d of %d in use", n, a.used, a.limit)
	}

	if n > a.chunkSize {
		// Oversized requests get a dedicated buffer so the current chunk keeps its tail.
		buf := a.mem.Allocate(n)
		a.chunks = append(a.chunks, buf)
		a.used += n
		return buf[:n:n], nil
	}

	if n > len(a.cur)-a.off {
		a.cur = a.mem.Allocate(a.chunkSize)
		a.chunks = append(a.chunks, a.cur)
		a.off = 0
	}

	b := a.cur[a.off : a.off+n : a.off+n]
	a.off += n
	a.used += n
	return b, nil
}

// Copy allocates len(src) bytes and copies src into them.
func (a *Arena) Copy(src []byte) ([]byte, error) {
	b, err := a.Allocate(len(src))
	if err != nil {
		return nil, err
	}
	copy(b, src)
	return b, nil
}

// CopyString allocates len(s) bytes and copies s into them.
func (a *Arena) CopyString(s string) ([]byte, error) {
	b, err := a.Allocate(len(s))
	if err != nil {
		return nil, err
	}
	copy(b, s)
	return b, nil
}

// Used returns the bytes handed out since the last Reset.
func (a *Arena) Used() int {
	return a.used
}

// Reserved returns the bytes currently held from the allocator.
func (a *Arena) Reserved() int {
	total := 0
	for _, c := range a.chunks {
		total += len(c)
	}
	return total
}

// Reset invalidates every slice handed out so far. The first standard chunk is
// kept for reuse; everything else goes back to the allocator.
func (a *Arena) Reset() {
	var keep []byte
	for _, c := range a.chunks {
		if keep == nil && len(c) == a.chunkSize {
			keep = c
			continue
		}
		a.mem.Free(c)
	}
	a.chunks = a.chunks[:0]
	a.cur = nil
	a.off = 0
	a.used = 0
	if keep != nil {
		a.chunks = append(a.chunks, keep)
		a.cur = keep
	}
}

// Release returns all memory to the allocator. The arena may be reused afterwards.
func (a *Arena) Release() {
	for _, c := range a.chunks {
		a.mem.Free(c)
	}
	a.chunks = nil
	a.cur = nil
	a.off = 0
	a.used = 0
}

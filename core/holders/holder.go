// Package holders implements the stateful scalar-function holders:
// regexp_extract, get_json_object and random.
//
// A holder is built once per bound call site from validated literal arguments
// and is then invoked once per row. Construction either returns a usable
// holder or an error, never a partially initialised value. Row invocations
// never return errors: failures are reported through Result and, for regex
// faults, through the execution context's error sink.
//
// Holder instances are single-goroutine objects. Parallel evaluation gives
// every worker its own instance via Clone, which shares the immutable state
// (compiled pattern, seed) and allocates fresh scratch. Entering an instance
// from two goroutines at once panics.
package holders

import (
	"sync/atomic"

	"github.com/FocuswithJustin/exprholders/core/arena"
)

// Holder is the common capability of every holder kind.
type Holder interface {
	// FunctionName is the SQL function the holder was bound for.
	FunctionName() string

	// Clone returns an instance for another worker. Immutable state is
	// shared; per-instance scratch is not.
	Clone() Holder
}

// Partitioner is implemented by holders whose output sequence can be
// pinned to a batch position instead of invocation history.
type Partitioner interface {
	Holder
	Partition(n uint64)
}

// Result is the outcome of one row invocation of a byte-producing holder.
// Present=false is SQL NULL. Present=true with empty Bytes is a successful
// empty string. Bytes always point into arena memory (or the static empty slice).
type Result struct {
	Present bool
	Bytes   []byte
}

// Null returns the absent result.
func Null() Result {
	return Result{}
}

// Value returns a present result wrapping b.
func Value(b []byte) Result {
	return Result{Present: true, Bytes: b}
}

// EmptyValue returns a present, zero-length result.
func EmptyValue() Result {
	return Result{Present: true, Bytes: arena.Empty()}
}

// String returns the bytes as a string, or "" for an absent result.
func (r Result) String() string {
	if !r.Present {
		return ""
	}
	return string(r.Bytes)
}

// exclusive detects concurrent entry into one holder instance. It must not
// be copied; Clone builds a new holder instead.
type exclusive struct {
	busy atomic.Bool
}

func (e *exclusive) enter(name string) {
	if !e.busy.CompareAndSwap(false, true) {
		panic("holder: concurrent invocation of " + name)
	}
}

func (e *exclusive) exit() {
	e.busy.Store(false)
}

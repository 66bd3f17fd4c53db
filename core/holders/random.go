package holders

import (
	"math/rand/v2"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/expr"
)

// RandomFunctionName is the SQL name bound to RandomHolder.
const RandomFunctionName = "random"

// pcgStream is the fixed PCG increment; only the seed varies between holders.
const pcgStream = 0x9e3779b97f4a7c15

// RandomHolder implements random([seed [, offset]]).
//
// The effective seed is seed + offset, computed in 64 bits. The offset is a
// row-independent partition id, so partitions sharing a seed draw different
// sequences. Values are uniform in [0, 1).
type RandomHolder struct {
	seed  int64
	rng   *rand.Rand
	guard exclusive
}

// MakeRandom builds a RandomHolder from a random call node.
func MakeRandom(call *expr.FunctionNode) (*RandomHolder, error) {
	if len(call.Args) > 2 {
		return nil, errors.NewBind(RandomFunctionName, -1,
			"'random' function requires at most two parameters")
	}
	if len(call.Args) == 0 {
		return NewRandom(0), nil
	}

	lit, ok := LiteralAt(call, 0)
	if !ok {
		return nil, errors.NewBind(RandomFunctionName, 0,
			"'random' function requires a literal as parameter")
	}
	if !IsIntegerLiteralType(lit.Type.ID()) {
		return nil, errors.NewBind(RandomFunctionName, 0,
			"'random' function requires an int32/int64 literal as parameter")
	}
	seed, err := Int64Value(lit, 0)
	if err != nil {
		return nil, &errors.BindError{Function: RandomFunctionName, Argument: 0,
			Message: "'random' function has a malformed seed literal", Err: err}
	}

	if len(call.Args) == 2 {
		off, ok := LiteralAt(call, 1)
		if !ok {
			return nil, errors.NewBind(RandomFunctionName, 1,
				"'random' function requires a literal as parameter")
		}
		if off.Type.ID() != arrow.INT32 {
			return nil, errors.NewBind(RandomFunctionName, 1,
				"'random' function requires an int32 literal as the offset parameter")
		}
		offset, err := Int64Value(off, 0)
		if err != nil {
			return nil, &errors.BindError{Function: RandomFunctionName, Argument: 1,
				Message: "'random' function has a malformed offset literal", Err: err}
		}
		seed += offset
	}
	return NewRandom(seed), nil
}

// NewRandom creates a generator for the given effective seed.
func NewRandom(seed int64) *RandomHolder {
	return &RandomHolder{
		seed: seed,
		rng:  rand.New(rand.NewPCG(uint64(seed), pcgStream)),
	}
}

// FunctionName implements Holder.
func (h *RandomHolder) FunctionName() string { return RandomFunctionName }

// Clone implements Holder. The clone restarts the sequence from the seed.
func (h *RandomHolder) Clone() Holder {
	return NewRandom(h.seed)
}

// Partition restarts the generator on sub-stream n of the effective seed.
// Sub-stream 0 is the sequence a new holder produces, and distinct n give
// distinct sequences. Batch-parallel callers partition by batch position so
// output does not depend on which worker evaluates a batch.
func (h *RandomHolder) Partition(n uint64) {
	h.guard.enter(RandomFunctionName)
	defer h.guard.exit()
	h.rng = rand.New(rand.NewPCG(uint64(h.seed), pcgStream^mix64(n)))
}

// mix64 is the splitmix64 finalizer. It maps 0 to 0.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// Seed returns the effective seed.
func (h *RandomHolder) Seed() int64 { return h.seed }

// Next returns the next value of the sequence.
func (h *RandomHolder) Next() float64 {
	h.guard.enter(RandomFunctionName)
	defer h.guard.exit()
	return h.rng.Float64()
}

// Fill writes the next len(dst) values of the sequence into dst.
func (h *RandomHolder) Fill(dst []float64) {
	h.guard.enter(RandomFunctionName)
	defer h.guard.exit()
	for i := range dst {
		dst[i] = h.rng.Float64()
	}
}

// NextN returns the next n values of the sequence.
func (h *RandomHolder) NextN(n int) []float64 {
	out := make([]float64, n)
	h.Fill(out)
	return out
}

package registry

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
)

// stringTypes are the argument types accepted wherever a string is expected.
// A call with any other type in a string position has no signature and fails
// lookup with a NotFoundError.
var stringTypes = []arrow.Type{arrow.STRING, arrow.LARGE_STRING}

func builtinKernels() []*Kernel {
	utf8 := arrow.BinaryTypes.String

	var kernels []*Kernel
	for _, in := range stringTypes {
		for _, lit := range stringTypes {
			kernels = append(kernels,
				&Kernel{
					Name:       holders.ExtractFunctionName,
					ArgTypes:   []arrow.Type{in, lit, arrow.INT32},
					RetType:    utf8,
					Doc:        "capture group of the first regex match; empty string when nothing matches",
					MakeHolder: makeExtract,
					Eval:       evalExtract,
				},
				&Kernel{
					Name:       holders.JSONFunctionName,
					ArgTypes:   []arrow.Type{in, lit},
					RetType:    utf8,
					Doc:        "value at a JSON path as text; NULL when absent, null or malformed",
					MakeHolder: makeJSON,
					Eval:       evalJSON,
				})
		}
	}

	randomSignatures := [][]arrow.Type{
		{},
		{arrow.INT32},
		{arrow.INT64},
		{arrow.INT32, arrow.INT32},
		{arrow.INT64, arrow.INT32},
	}
	for _, sig := range randomSignatures {
		kernels = append(kernels, &Kernel{
			Name:       holders.RandomFunctionName,
			Aliases:    []string{"rand"},
			ArgTypes:   sig,
			RetType:    arrow.PrimitiveTypes.Float64,
			Doc:        "uniform double in [0, 1) from a seeded generator",
			MakeHolder: makeRandom,
			Eval:       evalRandom,
		})
	}
	return kernels
}

func makeExtract(call *expr.FunctionNode, _ BindOptions) (holders.Holder, error) {
	h, err := holders.MakeExtract(call)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func makeJSON(call *expr.FunctionNode, opts BindOptions) (holders.Holder, error) {
	h, err := holders.MakeJSON(call,
		holders.WithStrictValidation(opts.StrictJSON),
		holders.WithPathCacheSize(opts.PathCacheSize),
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func makeRandom(call *expr.FunctionNode, _ BindOptions) (holders.Holder, error) {
	h, err := holders.MakeRandom(call)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func holderMismatch(want string, h holders.Holder) error {
	return fmt.Errorf("%w: %s kernel got %T holder", errors.ErrInternal, want, h)
}

func evalExtract(h holders.Holder, ctx *exec.Context, args []Arg, rows int, mem memory.Allocator) (arrow.Array, error) {
	eh, ok := h.(*holders.ExtractHolder)
	if !ok {
		return nil, holderMismatch(holders.ExtractFunctionName, h)
	}
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: regexp_extract evaluated with %d arguments", errors.ErrInternal, len(args))
	}
	input, group := args[0], args[2]

	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(rows)
	for i := 0; i < rows; i++ {
		if input.IsNull(i) || group.IsNull(i) {
			b.AppendNull()
			continue
		}
		res := eh.Extract(ctx, input.Bytes(i), group.Int32(i))
		if !res.Present {
			b.AppendNull()
			continue
		}
		b.BinaryBuilder.Append(res.Bytes)
	}
	return b.NewArray(), nil
}

func evalJSON(h holders.Holder, ctx *exec.Context, args []Arg, rows int, mem memory.Allocator) (arrow.Array, error) {
	jh, ok := h.(*holders.JSONHolder)
	if !ok {
		return nil, holderMismatch(holders.JSONFunctionName, h)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: get_json_object evaluated with %d arguments", errors.ErrInternal, len(args))
	}
	doc, path := args[0], args[1]

	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(rows)
	for i := 0; i < rows; i++ {
		valid := !doc.IsNull(i) && !path.IsNull(i)
		res := jh.ExtractValid(ctx, doc.Bytes(i), path.Bytes(i), valid)
		if !res.Present {
			b.AppendNull()
			continue
		}
		b.BinaryBuilder.Append(res.Bytes)
	}
	return b.NewArray(), nil
}

func evalRandom(h holders.Holder, _ *exec.Context, _ []Arg, rows int, mem memory.Allocator) (arrow.Array, error) {
	rh, ok := h.(*holders.RandomHolder)
	if !ok {
		return nil, holderMismatch(holders.RandomFunctionName, h)
	}
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(rh.NextN(rows), nil)
	return b.NewArray(), nil
}

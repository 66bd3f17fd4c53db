package registry

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	"github.com/FocuswithJustin/exprholders/core/expr"
)

// Arg is one evaluated argument: either an input column or a literal that is
// broadcast to every row.
type Arg struct {
	Column  arrow.Array
	Literal *expr.LiteralNode

	lit []byte
}

// ColumnArg wraps an input column.
func ColumnArg(col arrow.Array) Arg {
	return Arg{Column: col}
}

// LiteralArg wraps a literal.
func LiteralArg(lit *expr.LiteralNode) Arg {
	a := Arg{Literal: lit}
	if s, ok := lit.Value.(string); ok && !lit.Null {
		a.lit = []byte(s)
	}
	return a
}

// IsNull reports whether row i of the argument is NULL.
func (a Arg) IsNull(i int) bool {
	if a.Column != nil {
		return a.Column.IsNull(i)
	}
	return a.Literal == nil || a.Literal.Null
}

// Bytes returns row i of a string or binary argument.
func (a Arg) Bytes(i int) []byte {
	if a.Column == nil {
		return a.lit
	}
	switch c := a.Column.(type) {
	case *array.String:
		return []byte(c.Value(i))
	case *array.LargeString:
		return []byte(c.Value(i))
	case *array.Binary:
		return c.Value(i)
	default:
		return nil
	}
}

// Int32 returns row i of an int32 argument.
func (a Arg) Int32(i int) int32 {
	if a.Column == nil {
		v, _ := a.Literal.Value.(int32)
		return v
	}
	if c, ok := a.Column.(*array.Int32); ok {
		return c.Value(i)
	}
	return 0
}

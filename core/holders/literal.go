package holders

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/expr"
)

// LiteralAt returns argument i of call when it is a literal node.
func LiteralAt(call *expr.FunctionNode, i int) (*expr.LiteralNode, bool) {
	if i < 0 || i >= len(call.Args) {
		return nil, false
	}
	lit, ok := call.Args[i].(*expr.LiteralNode)
	return lit, ok
}

// IsStringType reports whether id is one of the utf8 string types.
func IsStringType(id arrow.Type) bool {
	return id == arrow.STRING || id == arrow.LARGE_STRING
}

// IsIntegerLiteralType reports whether id is an accepted integer literal type.
func IsIntegerLiteralType(id arrow.Type) bool {
	return id == arrow.INT32 || id == arrow.INT64
}

// StringValue returns the value of a string literal. ok is false for NULL.
func StringValue(lit *expr.LiteralNode) (s string, ok bool, err error) {
	if !IsStringType(lit.Type.ID()) {
		return "", false, errors.NewUnsupported("string literal type", lit.Type.Name())
	}
	if lit.Null {
		return "", false, nil
	}
	s, isString := lit.Value.(string)
	if !isString {
		return "", false, fmt.Errorf("%w: %s literal holds %T", errors.ErrInternal, lit.Type.Name(), lit.Value)
	}
	return s, true, nil
}

// Int64Value returns the value of an int32/int64 literal, or def for NULL.
func Int64Value(lit *expr.LiteralNode, def int64) (int64, error) {
	if !IsIntegerLiteralType(lit.Type.ID()) {
		return 0, errors.NewUnsupported("integer literal type", lit.Type.Name())
	}
	if lit.Null {
		return def, nil
	}
	switch v := lit.Value.(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %s literal holds %T", errors.ErrInternal, lit.Type.Name(), lit.Value)
	}
}

// Package expr defines the expression nodes that holders bind against.
//
// Only the three node kinds a function call can carry are modelled: literal
// constants, column references and nested function calls. Every node reports
// its Arrow result type so that the registry can match call signatures.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
)

// Node is an expression tree node.
type Node interface {
	// ReturnType is the Arrow type the node evaluates to.
	ReturnType() arrow.DataType

	// String renders the node for diagnostics and fingerprints.
	String() string
}

// LiteralNode is a constant known at bind time.
type LiteralNode struct {
	Type  arrow.DataType
	Value any  // string, int32, int64, float64 or bool; nil when Null
	Null  bool // SQL NULL of Type
}

// ReturnType implements Node.
func (n *LiteralNode) ReturnType() arrow.DataType { return n.Type }

// String implements Node.
func (n *LiteralNode) String() string {
	if n.Null {
		return "(" + n.Type.Name() + ") null"
	}
	switch v := n.Value.(type) {
	case string:
		return "(" + n.Type.Name() + ") " + strconv.Quote(v)
	default:
		return fmt.Sprintf("(%s) %v", n.Type.Name(), v)
	}
}

// NewStringLiteral creates a utf8 literal.
func NewStringLiteral(s string) *LiteralNode {
	return &LiteralNode{Type: arrow.BinaryTypes.String, Value: s}
}

// NewInt32Literal creates an int32 literal.
func NewInt32Literal(v int32) *LiteralNode {
	return &LiteralNode{Type: arrow.PrimitiveTypes.Int32, Value: v}
}

// NewInt64Literal creates an int64 literal.
func NewInt64Literal(v int64) *LiteralNode {
	return &LiteralNode{Type: arrow.PrimitiveTypes.Int64, Value: v}
}

// NewFloat64Literal creates a float64 literal.
func NewFloat64Literal(v float64) *LiteralNode {
	return &LiteralNode{Type: arrow.PrimitiveTypes.Float64, Value: v}
}

// NewNullLiteral creates a NULL literal of the given type.
func NewNullLiteral(t arrow.DataType) *LiteralNode {
	return &LiteralNode{Type: t, Null: true}
}

// FieldNode references an input column by name.
type FieldNode struct {
	Field arrow.Field
}

// ReturnType implements Node.
func (n *FieldNode) ReturnType() arrow.DataType { return n.Field.Type }

// String implements Node.
func (n *FieldNode) String() string {
	return "(" + n.Field.Type.Name() + ") " + n.Field.Name
}

// NewField creates a column reference.
func NewField(name string, t arrow.DataType) *FieldNode {
	return &FieldNode{Field: arrow.Field{Name: name, Type: t, Nullable: true}}
}

// FunctionNode is a call to a named function.
type FunctionNode struct {
	Name    string
	Args    []Node
	RetType arrow.DataType
}

// ReturnType implements Node.
func (n *FunctionNode) ReturnType() arrow.DataType { return n.RetType }

// String implements Node.
func (n *FunctionNode) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	ret := "null"
	if n.RetType != nil {
		ret = n.RetType.Name()
	}
	return fmt.Sprintf("%s %s(%s)", ret, n.Name, strings.Join(args, ", "))
}

// NewFunction creates a call node.
func NewFunction(name string, ret arrow.DataType, args ...Node) *FunctionNode {
	return &FunctionNode{Name: name, Args: args, RetType: ret}
}

// ArgTypes returns the Arrow type ids of the call's arguments.
func (n *FunctionNode) ArgTypes() []arrow.Type {
	ids := make([]arrow.Type, len(n.Args))
	for i, a := range n.Args {
		ids[i] = a.ReturnType().ID()
	}
	return ids
}

// Fields returns every column referenced by the call, depth first, without duplicates.
func (n *FunctionNode) Fields() []arrow.Field {
	var out []arrow.Field
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(node Node) {
		switch x := node.(type) {
		case *FieldNode:
			if !seen[x.Field.Name] {
				seen[x.Field.Name] = true
				out = append(out, x.Field)
			}
		case *FunctionNode:
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return out
}

package holders

import (
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/FocuswithJustin/exprholders/core/arena"
	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
)

func extractCall(args ...expr.Node) *expr.FunctionNode {
	return expr.NewFunction(ExtractFunctionName, arrow.BinaryTypes.String, args...)
}

func line() *expr.FieldNode {
	return expr.NewField("line", arrow.BinaryTypes.String)
}

func TestExtract(t *testing.T) {
	h, err := NewExtract(`(\d+)-(\d+)`)
	if err != nil {
		t.Fatalf("NewExtract failed: %v", err)
	}
	ctx := exec.NewContext()
	defer ctx.Release()

	tests := []struct {
		name    string
		input   string
		group   int32
		want    string
		present bool
	}{
		{"whole match", "order 10-20 shipped", 0, "10-20", true},
		{"first group", "order 10-20 shipped", 1, "10", true},
		{"second group", "order 10-20 shipped", 2, "20", true},
		{"first match wins", "1-2 and 3-4", 2, "2", true},
		{"no match", "nothing here", 1, "", true},
		{"empty input", "", 0, "", true},
		{"group too large", "10-20", 3, "", true},
		{"negative group", "10-20", -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.Extract(ctx, []byte(tt.input), tt.group)
			if res.Present != tt.present {
				t.Fatalf("Present = %v, want %v", res.Present, tt.present)
			}
			if res.String() != tt.want {
				t.Errorf("Extract(%q, %d) = %q, want %q", tt.input, tt.group, res.String(), tt.want)
			}
		})
	}
	if ctx.HasError() {
		t.Errorf("unexpected error message: %s", ctx.ErrorMessage())
	}
}

func TestExtract_NonParticipatingGroup(t *testing.T) {
	h, err := NewExtract(`(a)|(b)`)
	if err != nil {
		t.Fatalf("NewExtract failed: %v", err)
	}
	ctx := exec.NewContext()
	defer ctx.Release()

	res := h.Extract(ctx, []byte("b"), 1)
	if !res.Present || len(res.Bytes) != 0 {
		t.Errorf("Extract = %+v, want present empty", res)
	}
	res = h.Extract(ctx, []byte("b"), 2)
	if res.String() != "b" {
		t.Errorf("Extract group 2 = %q, want b", res.String())
	}
}

func TestExtract_OutputInArena(t *testing.T) {
	h, _ := NewExtract(`h(ell)o`)
	ctx := exec.NewContext()
	defer ctx.Release()

	input := []byte("hello")
	res := h.Extract(ctx, input, 1)
	input[1] = 'X'
	if res.String() != "ell" {
		t.Errorf("result aliases input: got %q", res.String())
	}
	if ctx.Arena().Used() != 3 {
		t.Errorf("arena Used() = %d, want 3", ctx.Arena().Used())
	}
}

func TestExtract_FaultReportsToContext(t *testing.T) {
	h, _ := NewExtract(`h(ell)o`)
	ctx := exec.NewContext(exec.WithArenaOptions(arena.WithLimit(2)))
	defer ctx.Release()

	res := h.Extract(ctx, []byte("hello"), 1)
	if res.Present {
		t.Fatalf("Extract = %+v, want absent after allocation failure", res)
	}
	if !ctx.HasError() {
		t.Fatal("expected an error message on the context")
	}
	msg := ctx.ErrorMessage()
	if !strings.HasPrefix(msg, "Error in extracting the string on the given string 'hello' for the given pattern: h(ell)o, caused by ") {
		t.Errorf("ErrorMessage() = %q", msg)
	}

	// Later faults are counted, the first message is kept.
	h.Extract(ctx, []byte("hello world"), 1)
	if ctx.ErrorCount() != 2 {
		t.Errorf("ErrorCount() = %d, want 2", ctx.ErrorCount())
	}
	if ctx.ErrorMessage() != msg {
		t.Errorf("first message was replaced: %q", ctx.ErrorMessage())
	}
}

func TestMakeExtract(t *testing.T) {
	h, err := MakeExtract(extractCall(line(), expr.NewStringLiteral(`([a-z]+)@`), expr.NewInt32Literal(1)))
	if err != nil {
		t.Fatalf("MakeExtract failed: %v", err)
	}
	if h.Pattern() != `([a-z]+)@` {
		t.Errorf("Pattern() = %q", h.Pattern())
	}
	if h.NumGroups() != 1 {
		t.Errorf("NumGroups() = %d, want 1", h.NumGroups())
	}
	if h.FunctionName() != "regexp_extract" {
		t.Errorf("FunctionName() = %q", h.FunctionName())
	}
}

func TestMakeExtract_Errors(t *testing.T) {
	tests := []struct {
		name    string
		call    *expr.FunctionNode
		message string
	}{
		{
			name:    "too few arguments",
			call:    extractCall(line(), expr.NewStringLiteral("a")),
			message: "'regexp_extract' function requires three parameters",
		},
		{
			name:    "pattern is a column",
			call:    extractCall(line(), line(), expr.NewInt32Literal(0)),
			message: "'regexp_extract' function requires a literal as the second parameter",
		},
		{
			name:    "pattern is an integer",
			call:    extractCall(line(), expr.NewInt32Literal(7), expr.NewInt32Literal(0)),
			message: "'regexp_extract' function requires a string literal as the second parameter",
		},
		{
			name:    "null pattern",
			call:    extractCall(line(), expr.NewNullLiteral(arrow.BinaryTypes.String), expr.NewInt32Literal(0)),
			message: "'regexp_extract' function requires a non-null pattern",
		},
		{
			name:    "unbalanced pattern",
			call:    extractCall(line(), expr.NewStringLiteral("(ab"), expr.NewInt32Literal(0)),
			message: "Building regex pattern '(ab' failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := MakeExtract(tt.call)
			if err == nil {
				t.Fatalf("MakeExtract succeeded with %v", h)
			}
			if h != nil {
				t.Error("MakeExtract returned a holder alongside an error")
			}
			var be *errors.BindError
			if !errors.As(err, &be) {
				t.Fatalf("error %v is not a BindError", err)
			}
			if be.Message != tt.message {
				t.Errorf("Message = %q, want %q", be.Message, tt.message)
			}
			if !errors.Is(err, errors.ErrInvalidInput) && be.Err == nil {
				t.Errorf("error %v does not unwrap to ErrInvalidInput", err)
			}
		})
	}
}

func TestExtractClone(t *testing.T) {
	h, _ := NewExtract(`x(\d)`)
	c, ok := h.Clone().(*ExtractHolder)
	if !ok {
		t.Fatalf("Clone returned %T", h.Clone())
	}
	if c == h {
		t.Fatal("Clone returned the same instance")
	}
	if c.re != h.re {
		t.Error("Clone did not share the compiled pattern")
	}

	ctx := exec.NewContext()
	defer ctx.Release()
	if got := c.Extract(ctx, []byte("ax7"), 1).String(); got != "7" {
		t.Errorf("clone Extract = %q, want 7", got)
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestBindError(t *testing.T) {
	tests := []struct {
		name     string
		err      *BindError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "message only",
			err:      NewBind("regexp_extract", -1, "'regexp_extract' function requires three parameters"),
			wantMsg:  "'regexp_extract' function requires three parameters",
			wantBase: ErrInvalidInput,
		},
		{
			name:     "argument index",
			err:      NewBind("random", 0, "'random' function requires a literal as parameter"),
			wantMsg:  "'random' function requires a literal as parameter",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("missing closing )")
		err := &BindError{Function: "regexp_extract", Argument: 1, Message: "Building regex pattern '(' failed", Err: underlyingErr}
		if got := err.Error(); got != "Building regex pattern '(' failed: missing closing )" {
			t.Errorf("Error() = %q", got)
		}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "function", ID: "regexp_extract(int32)"},
			wantMsg:  "function not found: regexp_extract(int32)",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "column"},
			wantMsg:  "column not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ParseError
		wantMsg string
	}{
		{
			name:    "with input",
			err:     NewParse("JSON path", "$..", "unexpected token"),
			wantMsg: `failed to parse JSON path "$..": unexpected token`,
		},
		{
			name:    "without input",
			err:     NewParse("log level", "", "empty"),
			wantMsg: "failed to parse log level: empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("ParseError should unwrap to ErrInvalidInput")
			}
		})
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("literal type", "decimal128")
	if got := err.Error(); got != "unsupported literal type: decimal128" {
		t.Errorf("Error() = %q", got)
	}
	if !Is(err, ErrUnsupported) {
		t.Error("UnsupportedError should unwrap to ErrUnsupported")
	}

	bare := &UnsupportedError{Feature: "large_binary"}
	if got := bare.Error(); got != "unsupported large_binary" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	err := Wrapf(ErrArenaExhausted, "allocate %d bytes", 64)
	if err.Error() != "allocate 64 bytes: arena exhausted" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
	if !Is(err, ErrArenaExhausted) {
		t.Error("wrapped error should match ErrArenaExhausted")
	}

	var bindErr *BindError
	wrapped := Wrap(NewBind("random", 1, "bad offset"), "bind projection")
	if !As(wrapped, &bindErr) {
		t.Fatal("As should find the BindError")
	}
	if bindErr.Argument != 1 {
		t.Errorf("Argument = %d, want 1", bindErr.Argument)
	}
}

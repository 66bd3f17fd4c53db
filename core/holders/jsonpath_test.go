package holders

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"$.a", []string{"a"}},
		{"$.a.b.c", []string{"a", "b", "c"}},
		{"$['a']", []string{"a"}},
		{`$["a b"]`, []string{"a b"}},
		{`$["say \"x\""]`, []string{`say "x"`}},
		{"$['a.b'].c", []string{"a.b", "c"}},
		{"$.items[0]", []string{"items", "0"}},
		{"$[key]", []string{"key"}},
		{"$.user_id", []string{"user_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if err != nil {
				t.Fatalf("ParsePath(%q) failed: %v", tt.path, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePath(%q) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestParsePath_Errors(t *testing.T) {
	for _, path := range []string{"", "$", "$.", "a.b", "$..a", "$['a'", "$.a[", "$$.a"} {
		t.Run(path, func(t *testing.T) {
			_, err := ParsePath(path)
			if err == nil {
				t.Fatalf("ParsePath(%q) succeeded", path)
			}
			var pe *errors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error %v is not a ParseError", err)
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error %v does not unwrap to ErrInvalidInput", err)
			}
		})
	}
}

func TestTranslatePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"$.a.b", "a.b"},
		{"$['a.b']", `a\.b`},
		{"$.items[2]", "items.2"},
		{"$['a*']", `a\*`},
	}
	for _, tt := range tests {
		got, err := TranslatePath(tt.path)
		if err != nil {
			t.Fatalf("TranslatePath(%q) failed: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("TranslatePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

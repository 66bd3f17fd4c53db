package holders

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/FocuswithJustin/exprholders/core/cache"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
)

// JSONFunctionName is the SQL name bound to JSONHolder.
const JSONFunctionName = "get_json_object"

// DefaultPathCacheSize is the number of translated paths a JSONHolder keeps.
const DefaultPathCacheSize = 64

// JSONHolder implements get_json_object(document, path).
//
// Documents are read on demand with gjson, which stops scanning once the
// path resolves. Bytes after the matched value are not validated except for
// a heuristic: the first non-blank byte after the value must be ',', '}' or
// ']'. Strict mode validates the whole document up front instead.
type JSONHolder struct {
	strict    bool
	cacheSize int
	paths     cache.Cache[string, string] // dialect path -> gjson path
	guard     exclusive
}

// JSONOption configures a JSONHolder.
type JSONOption func(*JSONHolder)

// WithStrictValidation enables full-document validation before lookup.
func WithStrictValidation(strict bool) JSONOption {
	return func(h *JSONHolder) { h.strict = strict }
}

// WithPathCacheSize sets how many translated paths are kept.
func WithPathCacheSize(n int) JSONOption {
	return func(h *JSONHolder) {
		if n >= 0 {
			h.cacheSize = n
		}
	}
}

// NewJSON creates a JSONHolder. It cannot fail.
func NewJSON(opts ...JSONOption) *JSONHolder {
	h := &JSONHolder{cacheSize: DefaultPathCacheSize}
	for _, opt := range opts {
		opt(h)
	}
	h.paths = newPathCache(h.cacheSize)
	return h
}

// MakeJSON builds a JSONHolder for a get_json_object call node. The call's
// arguments are all per-row, so nothing is validated here.
func MakeJSON(_ *expr.FunctionNode, opts ...JSONOption) (*JSONHolder, error) {
	return NewJSON(opts...), nil
}

func newPathCache(n int) cache.Cache[string, string] {
	if n == 0 {
		return nil
	}
	return cache.NewLRUCache[string, string](cache.Config{MaxSize: n})
}

// FunctionName implements Holder.
func (h *JSONHolder) FunctionName() string { return JSONFunctionName }

// Clone implements Holder. The clone gets its own path cache.
func (h *JSONHolder) Clone() Holder {
	return &JSONHolder{
		strict:    h.strict,
		cacheSize: h.cacheSize,
		paths:     newPathCache(h.cacheSize),
	}
}

// Strict reports whether full-document validation is enabled.
func (h *JSONHolder) Strict() bool { return h.strict }

// ExtractValid is Extract for callers that carry an input validity flag.
// An invalid input yields an absent result without touching the document.
func (h *JSONHolder) ExtractValid(ctx *exec.Context, doc, path []byte, inValid bool) Result {
	if !inValid {
		return Null()
	}
	return h.Extract(ctx, doc, path)
}

// Extract resolves path against doc and returns the canonical string form
// of the matched value, copied into ctx's arena. Absent fields, JSON null,
// malformed documents and malformed paths yield an absent result.
func (h *JSONHolder) Extract(ctx *exec.Context, doc, path []byte) Result {
	h.guard.enter(JSONFunctionName)
	defer h.guard.exit()

	if len(path) < minPathLen {
		return Null()
	}
	gpath, ok := h.translate(string(path))
	if !ok {
		return Null()
	}
	if isEmptyObject(doc) {
		return Null()
	}
	if h.strict && !gjson.ValidBytes(doc) {
		return Null()
	}

	res := gjson.GetBytes(doc, gpath)
	if !res.Exists() || res.Type == gjson.Null {
		return Null()
	}
	if !h.strict && !wellTerminated(doc, res) {
		return Null()
	}

	text, ok := canonicalize(res)
	if !ok {
		return Null()
	}
	out, err := ctx.Arena().CopyString(text)
	if err != nil {
		return Null()
	}
	return Value(out)
}

func (h *JSONHolder) translate(path string) (string, bool) {
	if h.paths == nil {
		gpath, err := TranslatePath(path)
		return gpath, err == nil
	}
	gpath, _, err := h.paths.GetOrLoad(path, func() (string, error) {
		return TranslatePath(path)
	})
	return gpath, err == nil
}

// isEmptyObject reports whether doc is exactly "{}" modulo surrounding blanks.
func isEmptyObject(doc []byte) bool {
	return bytes.Equal(bytes.TrimSpace(doc), []byte("{}"))
}

// wellTerminated checks that the value res was found at is followed, after
// optional whitespace, by a JSON continuation byte.
func wellTerminated(doc []byte, res gjson.Result) bool {
	if res.Index <= 0 {
		// gjson could not report a position; fall back to full validation.
		return gjson.ValidBytes(doc)
	}
	for i := res.Index + len(res.Raw); i < len(doc); i++ {
		switch doc[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// canonicalize renders a matched value as get_json_object output.
func canonicalize(res gjson.Result) (string, bool) {
	switch res.Type {
	case gjson.String:
		return res.Str, true
	case gjson.True:
		return "true", true
	case gjson.False:
		return "false", true
	case gjson.Number:
		return canonicalNumber(res.Raw)
	case gjson.JSON:
		return string(pretty.Ugly([]byte(res.Raw))), true
	default:
		return "", false
	}
}

// canonicalNumber prints integers in decimal and floats in Go's shortest form.
func canonicalNumber(raw string) (string, bool) {
	if !strings.ContainsAny(raw, ".eE") {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return strconv.FormatUint(u, 10), true
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, 64), true
}

package holders

import (
	"fmt"
	"regexp"

	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
)

// ExtractFunctionName is the SQL name bound to ExtractHolder.
const ExtractFunctionName = "regexp_extract"

// ExtractHolder implements regexp_extract(input, pattern, group).
//
// The pattern is compiled once from a string literal. Each row returns the
// requested capture group of the first match anywhere in the input; rows
// without a match, with a non-participating group or with an out-of-range
// group index yield a present empty string.
type ExtractHolder struct {
	pattern string
	re      *regexp.Regexp
	guard   exclusive
}

// MakeExtract builds an ExtractHolder from a regexp_extract call node.
func MakeExtract(call *expr.FunctionNode) (*ExtractHolder, error) {
	if len(call.Args) != 3 {
		return nil, errors.NewBind(ExtractFunctionName, -1,
			"'regexp_extract' function requires three parameters")
	}
	lit, ok := LiteralAt(call, 1)
	if !ok {
		return nil, errors.NewBind(ExtractFunctionName, 1,
			"'regexp_extract' function requires a literal as the second parameter")
	}
	if !IsStringType(lit.Type.ID()) {
		return nil, errors.NewBind(ExtractFunctionName, 1,
			"'regexp_extract' function requires a string literal as the second parameter")
	}
	pattern, ok, err := StringValue(lit)
	if err != nil {
		return nil, &errors.BindError{Function: ExtractFunctionName, Argument: 1,
			Message: "'regexp_extract' function has a malformed pattern literal", Err: err}
	}
	if !ok {
		return nil, errors.NewBind(ExtractFunctionName, 1,
			"'regexp_extract' function requires a non-null pattern")
	}
	return NewExtract(pattern)
}

// NewExtract compiles pattern into an ExtractHolder.
func NewExtract(pattern string) (*ExtractHolder, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &errors.BindError{
			Function: ExtractFunctionName,
			Argument: 1,
			Message:  fmt.Sprintf("Building regex pattern '%s' failed", pattern),
			Err:      err,
		}
	}
	return &ExtractHolder{pattern: pattern, re: re}, nil
}

// FunctionName implements Holder.
func (h *ExtractHolder) FunctionName() string { return ExtractFunctionName }

// Clone implements Holder. Compiled patterns are safe to share.
func (h *ExtractHolder) Clone() Holder {
	return &ExtractHolder{pattern: h.pattern, re: h.re}
}

// Pattern returns the source pattern.
func (h *ExtractHolder) Pattern() string { return h.pattern }

// NumGroups returns the number of capturing groups in the pattern.
func (h *ExtractHolder) NumGroups() int { return h.re.NumSubexp() }

// Extract returns capture group `group` of the first match of the pattern in
// input, copied into ctx's arena. Group 0 is the whole match.
func (h *ExtractHolder) Extract(ctx *exec.Context, input []byte, group int32) (res Result) {
	h.guard.enter(ExtractFunctionName)
	defer h.guard.exit()
	defer func() {
		if r := recover(); r != nil {
			h.fault(ctx, input, fmt.Sprint(r))
			res = Null()
		}
	}()

	if group < 0 || int(group) > h.re.NumSubexp() {
		return EmptyValue()
	}
	loc := h.re.FindSubmatchIndex(input)
	if loc == nil {
		return EmptyValue()
	}
	start, end := loc[2*group], loc[2*group+1]
	if start < 0 {
		return EmptyValue()
	}

	out, err := ctx.Copy(input[start:end])
	if err != nil {
		h.fault(ctx, input, err.Error())
		return Null()
	}
	return Value(out)
}

// fault reports a row-level failure through the context's error sink.
func (h *ExtractHolder) fault(ctx *exec.Context, input []byte, reason string) {
	ctx.SetErrorMessage(fmt.Sprintf(
		"Error in extracting the string on the given string '%s' for the given pattern: %s, caused by %s",
		input, h.pattern, reason))
}

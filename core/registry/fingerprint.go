package registry

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/exprholders/core/expr"
)

// Fingerprint identifies the holder a call binds to. Calls with the same
// kernel, argument types, literal values and bind options share a holder
// prototype; column names do not matter.
func Fingerprint(kernel string, call *expr.FunctionNode, opts BindOptions) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(kernel))
	for _, arg := range call.Args {
		sb.WriteByte(0)
		sb.WriteString(arg.ReturnType().Name())
		sb.WriteByte(0)
		if lit, ok := arg.(*expr.LiteralNode); ok {
			sb.WriteString(lit.String())
		} else {
			sb.WriteString("column")
		}
	}
	sb.WriteByte(0)
	sb.WriteString(strconv.FormatBool(opts.StrictJSON))
	sb.WriteByte(0)
	sb.WriteString(strconv.Itoa(opts.PathCacheSize))

	sum := blake3.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

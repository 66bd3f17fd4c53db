package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/FocuswithJustin/exprholders/core/cache"
	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/exec"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
	"github.com/FocuswithJustin/exprholders/core/registry"
	"github.com/FocuswithJustin/exprholders/internal/logging"
)

// scalarFunc is one SQL user function backed by a holder.
type scalarFunc struct {
	name          string
	nArgs         int32 // -1 for variadic
	deterministic bool
	fn            func(f *Functions, args []driver.Value) (driver.Value, error)
}

// scalarFuncs lists the user functions installed on every connection.
var scalarFuncs = []scalarFunc{
	{name: holders.ExtractFunctionName, nArgs: 3, deterministic: true, fn: (*Functions).RegexpExtract},
	{name: holders.JSONFunctionName, nArgs: 2, deterministic: true, fn: (*Functions).GetJSONObject},
	{name: "rand", nArgs: -1, deterministic: false, fn: (*Functions).Rand},
}

// Functions evaluates SQL user-function calls with holders.
//
// SQL passes the regex pattern as an ordinary argument, so holders are bound
// per distinct call shape (pattern value, argument types) through the binder,
// whose fingerprint cache shares the compiled state. Instances are pooled
// because SQLite may call a function from several connections at once.
// The pools are kept in an LRU, so a per-row pattern column cannot grow them
// without limit. Seeded rand() streams are process-wide and continue across
// statements until ResetRandom.
type Functions struct {
	binder *registry.Binder

	pools cache.Cache[string, *sync.Pool] // call shape -> pool of *registry.Bound
	ctxs  sync.Pool                       // *exec.Context

	randMu  sync.Mutex
	randoms map[string]*holders.RandomHolder
}

// FunctionsOption configures a Functions.
type FunctionsOption func(*cache.Config)

// WithPoolCacheSize bounds how many call shapes keep a holder pool.
func WithPoolCacheSize(n int) FunctionsOption {
	return func(c *cache.Config) {
		if n > 0 {
			c.MaxSize = n
		}
	}
}

// NewFunctions creates a function set resolving through binder (the default
// registry with a prototype cache when nil).
func NewFunctions(binder *registry.Binder, opts ...FunctionsOption) *Functions {
	if binder == nil {
		binder = registry.NewBinder(nil, registry.DefaultBindOptions(), cache.DefaultConfig().MaxSize)
	}
	cfg := cache.DefaultConfig()
	cfg.OnEvict = func(key, _ any) {
		logging.Debug("holder_pool_evicted", "call", key)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Functions{
		binder:  binder,
		pools:   cache.NewLRUCache[string, *sync.Pool](cfg),
		ctxs:    sync.Pool{New: func() any { return exec.NewContext() }},
		randoms: make(map[string]*holders.RandomHolder),
	}
}

// PoolStats reports activity of the per-call-shape holder pools.
func (f *Functions) PoolStats() cache.Stats {
	return f.pools.Stats()
}

var (
	activeMu sync.RWMutex
	active   = NewFunctions(nil)
)

// Configure replaces the function set used by connections opened through
// this package. Registration with the driver happens once; calls always go
// to the current set.
func Configure(f *Functions) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = f
}

func current() *Functions {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// dispatch adapts a scalarFunc to the package-level active set.
func dispatch(sf scalarFunc) func(args []driver.Value) (driver.Value, error) {
	return func(args []driver.Value) (driver.Value, error) {
		return sf.fn(current(), args)
	}
}

func (f *Functions) acquire(call *expr.FunctionNode) (*registry.Bound, func(), error) {
	pool, _, _ := f.pools.GetOrLoad(call.String(), func() (*sync.Pool, error) {
		return &sync.Pool{}, nil
	})
	if b, ok := pool.Get().(*registry.Bound); ok {
		return b, func() { pool.Put(b) }, nil
	}
	b, err := f.binder.Bind(call)
	if err != nil {
		return nil, nil, err
	}
	return b, func() { pool.Put(b) }, nil
}

func (f *Functions) execContext() (*exec.Context, func()) {
	ctx := f.ctxs.Get().(*exec.Context)
	return ctx, func() {
		if ctx.HasError() {
			logging.RowFault(ctx.LogContext(context.Background()), ctx.ErrorMessage(), "count", ctx.ErrorCount())
		}
		ctx.Reset()
		f.ctxs.Put(ctx)
	}
}

func result(res holders.Result) driver.Value {
	if !res.Present {
		return nil
	}
	return string(res.Bytes)
}

// RegexpExtract implements regexp_extract(input, pattern, group).
func (f *Functions) RegexpExtract(args []driver.Value) (driver.Value, error) {
	if len(args) != 3 {
		return nil, errors.NewBind(holders.ExtractFunctionName, -1,
			"'regexp_extract' function requires three parameters")
	}
	input, ok := textArg(args[0])
	if !ok {
		return nil, nil
	}
	pattern, ok := textArg(args[1])
	if !ok {
		return nil, errors.NewBind(holders.ExtractFunctionName, 1,
			"'regexp_extract' function requires a non-null pattern")
	}
	group, ok, err := intArg(args[2])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if group < math.MinInt32 || group > math.MaxInt32 {
		group = -1
	}

	call := expr.NewFunction(holders.ExtractFunctionName, arrow.BinaryTypes.String,
		expr.NewField("input", arrow.BinaryTypes.String),
		expr.NewStringLiteral(string(pattern)),
		expr.NewField("group", arrow.PrimitiveTypes.Int32))
	b, release, err := f.acquire(call)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, done := f.execContext()
	defer done()
	return result(b.Holder.(*holders.ExtractHolder).Extract(ctx, input, int32(group))), nil
}

var jsonCall = expr.NewFunction(holders.JSONFunctionName, arrow.BinaryTypes.String,
	expr.NewField("doc", arrow.BinaryTypes.String),
	expr.NewField("path", arrow.BinaryTypes.String))

// GetJSONObject implements get_json_object(document, path).
func (f *Functions) GetJSONObject(args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, errors.NewBind(holders.JSONFunctionName, -1,
			"'get_json_object' function requires two parameters")
	}
	doc, docOK := textArg(args[0])
	path, pathOK := textArg(args[1])

	b, release, err := f.acquire(jsonCall)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, done := f.execContext()
	defer done()
	return result(b.Holder.(*holders.JSONHolder).ExtractValid(ctx, doc, path, docOK && pathOK)), nil
}

// Rand implements rand([seed [, offset]]). Each distinct (seed, offset)
// pair draws from its own stream.
func (f *Functions) Rand(args []driver.Value) (driver.Value, error) {
	call := expr.NewFunction(holders.RandomFunctionName, arrow.PrimitiveTypes.Float64)
	for i, a := range args {
		v, ok, err := intArg(a)
		if err != nil {
			return nil, err
		}
		switch {
		case i == 0 && !ok:
			call.Args = append(call.Args, expr.NewNullLiteral(arrow.PrimitiveTypes.Int64))
		case i == 0:
			call.Args = append(call.Args, expr.NewInt64Literal(v))
		case !ok:
			call.Args = append(call.Args, expr.NewNullLiteral(arrow.PrimitiveTypes.Int32))
		case v < math.MinInt32 || v > math.MaxInt32:
			call.Args = append(call.Args, expr.NewInt64Literal(v))
		default:
			call.Args = append(call.Args, expr.NewInt32Literal(int32(v)))
		}
	}

	key := call.String()
	f.randMu.Lock()
	defer f.randMu.Unlock()
	h, ok := f.randoms[key]
	if !ok {
		if len(call.Args) > 2 {
			return nil, errors.NewBind(holders.RandomFunctionName, -1,
				"'random' function requires at most two parameters")
		}
		b, err := f.binder.Bind(call)
		if err != nil {
			return nil, err
		}
		h = b.Holder.(*holders.RandomHolder)
		f.randoms[key] = h
	}
	return h.Next(), nil
}

// ResetRandom restarts every rand() stream from its seed.
func (f *Functions) ResetRandom() {
	f.randMu.Lock()
	defer f.randMu.Unlock()
	clear(f.randoms)
}

// textArg converts a SQLite value to text. ok is false for NULL.
func textArg(v driver.Value) ([]byte, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return []byte(x), true
	case []byte:
		return x, true
	case int64:
		return strconv.AppendInt(nil, x, 10), true
	case float64:
		return strconv.AppendFloat(nil, x, 'g', -1, 64), true
	default:
		return []byte(fmt.Sprint(x)), true
	}
}

// intArg converts a SQLite value to an integer. ok is false for NULL.
func intArg(v driver.Value) (int64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return x, true, nil
	case float64:
		return int64(x), true, nil
	case bool:
		if x {
			return 1, true, nil
		}
		return 0, true, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, false, errors.NewParse("integer argument", x, "not an integer")
		}
		return n, true, nil
	default:
		return 0, false, errors.NewUnsupported("integer argument", fmt.Sprintf("%T", v))
	}
}

// Command holders evaluates regexp_extract, get_json_object and rand over
// line-oriented input or SQL queries.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/FocuswithJustin/exprholders/core/arena"
	"github.com/FocuswithJustin/exprholders/core/errors"
	"github.com/FocuswithJustin/exprholders/core/expr"
	"github.com/FocuswithJustin/exprholders/core/holders"
	"github.com/FocuswithJustin/exprholders/core/projector"
	"github.com/FocuswithJustin/exprholders/core/registry"
	"github.com/FocuswithJustin/exprholders/core/sqlite"
	"github.com/FocuswithJustin/exprholders/internal/config"
	"github.com/FocuswithJustin/exprholders/internal/input"
	"github.com/FocuswithJustin/exprholders/internal/logging"
)

const version = "0.1.0"

// stdout is where command output goes; tests replace it.
var stdout io.Writer = os.Stdout

// Globals holds flags shared by every command.
type Globals struct {
	LogLevel        string `name:"log-level" default:"warn" enum:"debug,info,warn,error" env:"HOLDERS_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat       string `name:"log-format" default:"text" enum:"text,json" env:"HOLDERS_LOG_FORMAT" help:"Log format (text, json)"`
	ArenaChunkSize  int    `name:"arena-chunk-size" default:"65536" env:"HOLDERS_ARENA_CHUNK_SIZE" help:"Bytes per arena chunk"`
	ArenaLimit      int    `name:"arena-limit" default:"0" env:"HOLDERS_ARENA_LIMIT" help:"Maximum arena bytes per batch (0 = unlimited)"`
	StrictJSON      bool   `name:"strict-json" env:"HOLDERS_STRICT_JSON" help:"Validate whole JSON documents before path lookup"`
	Workers         int    `name:"workers" default:"0" env:"HOLDERS_WORKERS" help:"Parallel workers (0 = GOMAXPROCS)"`
	BatchSize       int    `name:"batch-size" default:"1024" env:"HOLDERS_BATCH_SIZE" help:"Rows per record batch"`
	HolderCacheSize int    `name:"holder-cache-size" default:"256" env:"HOLDERS_HOLDER_CACHE_SIZE" help:"Bound holder prototypes kept"`
	PathCacheSize   int    `name:"path-cache-size" default:"64" env:"HOLDERS_PATH_CACHE_SIZE" help:"Translated JSON paths kept per holder"`
}

// Config converts the flags into an evaluation configuration.
func (g *Globals) Config() config.Config {
	return config.Config{
		ArenaChunkSize:  g.ArenaChunkSize,
		ArenaLimit:      g.ArenaLimit,
		PathCacheSize:   g.PathCacheSize,
		HolderCacheSize: g.HolderCacheSize,
		StrictJSON:      g.StrictJSON,
		Workers:         g.Workers,
		BatchSize:       g.BatchSize,
		LogLevel:        g.LogLevel,
		LogFormat:       g.LogFormat,
	}
}

// Setup validates the configuration and initializes logging.
func (g *Globals) Setup() (config.Config, error) {
	cfg := g.Config()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return cfg, err
	}
	logging.InitLogger(level, format)
	return cfg, nil
}

func newBinder(cfg config.Config) *registry.Binder {
	opts := registry.BindOptions{StrictJSON: cfg.StrictJSON, PathCacheSize: cfg.PathCacheSize}
	return registry.NewBinder(registry.Default(), opts, cfg.HolderCacheSize)
}

// CLI defines the command-line interface for holders.
var CLI struct {
	Globals

	Extract   ExtractCmd   `cmd:"" help:"Extract a regex capture group from each input line"`
	JSON      JSONCmd      `cmd:"" name:"json" help:"Extract a JSON path from each input line"`
	Random    RandomCmd    `cmd:"" help:"Print values from a seeded generator"`
	SQL       SQLCmd       `cmd:"" name:"sql" help:"Run a SQL query with the holder functions installed"`
	Functions FunctionsCmd `cmd:"" help:"List registered functions"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// ExtractCmd runs regexp_extract over input lines.
type ExtractCmd struct {
	Pattern string `required:"" short:"e" help:"Regular expression (RE2 syntax)"`
	Group   int32  `default:"1" short:"g" help:"Capture group; 0 is the whole match"`
	File    string `arg:"" optional:"" help:"Input file (- or omitted for stdin; .xz and .gz are decompressed)"`
}

func (c *ExtractCmd) Run(g *Globals) error {
	call := expr.NewFunction(holders.ExtractFunctionName, arrow.BinaryTypes.String,
		expr.NewField("line", arrow.BinaryTypes.String),
		expr.NewStringLiteral(c.Pattern),
		expr.NewInt32Literal(c.Group))
	return projectLines(g, c.File, call)
}

// JSONCmd runs get_json_object over input lines.
type JSONCmd struct {
	Path string `required:"" short:"p" help:"JSON path such as $.a.b or $['a b']"`
	File string `arg:"" optional:"" help:"Input file with one JSON document per line"`
}

func (c *JSONCmd) Run(g *Globals) error {
	call := expr.NewFunction(holders.JSONFunctionName, arrow.BinaryTypes.String,
		expr.NewField("line", arrow.BinaryTypes.String),
		expr.NewStringLiteral(c.Path))
	return projectLines(g, c.File, call)
}

// RandomCmd prints values from random(seed, offset).
type RandomCmd struct {
	Seed   int64 `default:"0" help:"Generator seed"`
	Offset int32 `default:"0" help:"Partition offset added to the seed"`
	Count  int   `default:"10" short:"n" help:"Number of values"`
}

func (c *RandomCmd) Run(g *Globals) error {
	cfg, err := g.Setup()
	if err != nil {
		return err
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}

	call := expr.NewFunction(holders.RandomFunctionName, arrow.PrimitiveTypes.Float64,
		expr.NewInt64Literal(c.Seed), expr.NewInt32Literal(c.Offset))
	schema := arrow.NewSchema(nil, nil)
	p, err := newProjector(cfg, schema, call)
	if err != nil {
		return err
	}
	defer p.Release()

	// One batch keeps the sequence continuous across the whole count.
	rec := array.NewRecord(schema, nil, int64(c.Count))
	defer rec.Release()
	out, err := p.Evaluate(context.Background(), rec)
	if err != nil {
		return err
	}
	defer out.Release()
	return printColumn(out.Column(0))
}

// SQLCmd runs a query through the SQL bridge.
type SQLCmd struct {
	DB       string `default:":memory:" help:"SQLite database path or DSN"`
	ReadOnly bool   `name:"readonly" help:"Open the database file read-only"`
	Query    string `arg:"" help:"SQL query"`
}

func (c *SQLCmd) Run(g *Globals) error {
	cfg, err := g.Setup()
	if err != nil {
		return err
	}
	sqlite.Configure(sqlite.NewFunctions(newBinder(cfg)))

	open := sqlite.Open
	if c.ReadOnly {
		open = sqlite.OpenReadOnly
	}
	db, err := open(c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Query(c.Query)
	if err != nil {
		return errors.Wrap(err, "query failed")
	}
	defer rows.Close()
	n, err := printRows(rows)
	if err != nil {
		return err
	}
	logging.Info("query_complete", "rows", n, "readonly", c.ReadOnly)
	return nil
}

func printRows(rows *sql.Rows) (int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	fields := make([]string, len(cols))
	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		for i, v := range values {
			fields[i] = sqlText(v)
		}
		fmt.Fprintln(stdout, strings.Join(fields, "\t"))
		n++
	}
	return n, rows.Err()
}

func sqlText(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// FunctionsCmd lists the function registry.
type FunctionsCmd struct{}

func (c *FunctionsCmd) Run() error {
	for _, k := range registry.Default().Kernels() {
		line := k.Signature()
		if len(k.Aliases) > 0 {
			line += "  (aliases: " + strings.Join(k.Aliases, ", ") + ")"
		}
		fmt.Fprintln(stdout, line)
		fmt.Fprintf(stdout, "    %s\n", k.Doc)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "holders version %s\n", version)
	fmt.Fprintf(stdout, "sqlite driver: %s (%s)\n", sqlite.DriverType(), sqlite.GetInfo().Package)
	return nil
}

func newProjector(cfg config.Config, schema *arrow.Schema, call *expr.FunctionNode) (*projector.Projector, error) {
	return projector.New(schema,
		[]projector.Expression{{Name: call.Name, Call: call}},
		newBinder(cfg),
		projector.WithArenaOptions(arena.WithChunkSize(cfg.ArenaChunkSize), arena.WithLimit(cfg.ArenaLimit)),
	)
}

// projectLines evaluates call over the lines of file in batches and prints
// one output value per line.
func projectLines(g *Globals, file string, call *expr.FunctionNode) error {
	cfg, err := g.Setup()
	if err != nil {
		return err
	}
	schema := arrow.NewSchema([]arrow.Field{{Name: "line", Type: arrow.BinaryTypes.String}}, nil)
	p, err := newProjector(cfg, schema, call)
	if err != nil {
		return err
	}
	defer p.Release()

	r, closer, err := input.Open(file)
	if err != nil {
		return err
	}
	defer closer.Close()

	recs, err := readBatches(r, schema, cfg.BatchSize)
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	if err != nil {
		return err
	}

	outs, err := p.EvaluateAll(context.Background(), recs, cfg.EffectiveWorkers())
	if err != nil {
		return err
	}
	logging.Info("input_evaluated", "file", file, "batches", len(recs), "function", call.Name)
	defer func() {
		for _, out := range outs {
			out.Release()
		}
	}()
	for _, out := range outs {
		if err := printColumn(out.Column(0)); err != nil {
			return err
		}
	}
	return nil
}

func readBatches(r io.Reader, schema *arrow.Schema, batchSize int) ([]arrow.Record, error) {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	lines := b.Field(0).(*array.StringBuilder)

	var recs []arrow.Record
	err := input.Lines(r, func(line []byte) error {
		lines.BinaryBuilder.Append(line)
		if lines.Len() >= batchSize {
			recs = append(recs, b.NewRecord())
		}
		return nil
	})
	if lines.Len() > 0 {
		recs = append(recs, b.NewRecord())
	}
	return recs, err
}

func printColumn(col arrow.Array) error {
	switch c := col.(type) {
	case *array.String:
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				fmt.Fprintln(stdout, "NULL")
			} else {
				fmt.Fprintln(stdout, c.Value(i))
			}
		}
	case *array.Float64:
		for _, v := range c.Float64Values() {
			fmt.Fprintln(stdout, strconv.FormatFloat(v, 'g', -1, 64))
		}
	default:
		return fmt.Errorf("unsupported output column type %s", col.DataType())
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("holders"),
		kong.Description("Stateful scalar functions: regexp_extract, get_json_object and rand"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&CLI.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/exprholders/core/sqlite"
	"github.com/FocuswithJustin/exprholders/internal/logging"
)

func testGlobals() *Globals {
	return &Globals{
		LogLevel:        "error",
		LogFormat:       "text",
		ArenaChunkSize:  4096,
		BatchSize:       2,
		Workers:         2,
		HolderCacheSize: 8,
		PathCacheSize:   4,
	}
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() {
		stdout = old
		logging.SetOutput(os.Stderr)
	})
	return &buf
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func outputLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestExtractCmd(t *testing.T) {
	buf := captureOutput(t)
	path := writeFile(t, "ranges.txt", "100-200\na-100-200-b\nabc-abc\n7-8\n9-10\n")

	cmd := &ExtractCmd{Pattern: `(\d+)-(\d+)`, Group: 2, File: path}
	if err := cmd.Run(testGlobals()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"200", "200", "", "8", "10"}
	if diff := cmp.Diff(want, outputLines(buf)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractCmd_BadPattern(t *testing.T) {
	captureOutput(t)
	path := writeFile(t, "in.txt", "x\n")

	err := (&ExtractCmd{Pattern: "(", Group: 1, File: path}).Run(testGlobals())
	if err == nil || !strings.Contains(err.Error(), "Building regex pattern '(' failed") {
		t.Errorf("error = %v", err)
	}
}

func TestJSONCmd_XZInput(t *testing.T) {
	buf := captureOutput(t)

	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	if err != nil {
		t.Fatal(err)
	}
	docs := `{"user":{"name":"ada","langs":["go","sql"]}}
{"user":{"name":null}}
not json
{"user":{"name":"bob"}}
`
	if _, err := w.Write([]byte(docs)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	path := writeFile(t, "docs.jsonl.xz", compressed.String())

	if err := (&JSONCmd{Path: "$.user.name", File: path}).Run(testGlobals()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{"ada", "NULL", "NULL", "bob"}
	if diff := cmp.Diff(want, outputLines(buf)); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRandomCmd_Reproducible(t *testing.T) {
	buf := captureOutput(t)

	run := func(seed int64, offset int32) []string {
		t.Helper()
		buf.Reset()
		if err := (&RandomCmd{Seed: seed, Offset: offset, Count: 5}).Run(testGlobals()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return outputLines(buf)
	}

	first := run(10, 0)
	if len(first) != 5 {
		t.Fatalf("got %d values, want 5", len(first))
	}
	if diff := cmp.Diff(first, run(7, 3)); diff != "" {
		t.Errorf("seed 7 offset 3 differs from seed 10 (-want +got):\n%s", diff)
	}
	if cmp.Equal(first, run(11, 0)) {
		t.Error("different seeds produced the same sequence")
	}
}

func TestRandomCmd_NegativeCount(t *testing.T) {
	captureOutput(t)
	if err := (&RandomCmd{Count: -1}).Run(testGlobals()); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestSQLCmd(t *testing.T) {
	buf := captureOutput(t)

	cmd := &SQLCmd{
		DB:    ":memory:",
		Query: `SELECT regexp_extract('k=v', 'k=(\w)', 1), get_json_object('{"a":[1,2]}', '$.a'), get_json_object('{}', '$.a')`,
	}
	if err := cmd.Run(testGlobals()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got, want := strings.TrimSpace(buf.String()), "v\t[1,2]\tNULL"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFunctionsCmd(t *testing.T) {
	buf := captureOutput(t)
	if err := (&FunctionsCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"get_json_object(", "regexp_extract(", "random(", "aliases: rand"} {
		if !strings.Contains(out, want) {
			t.Errorf("functions output missing %q:\n%s", want, out)
		}
	}
}

func TestGlobals_InvalidConfig(t *testing.T) {
	g := testGlobals()
	g.BatchSize = 0
	if _, err := g.Setup(); err == nil {
		t.Error("expected error for zero batch size")
	}
}

func TestVersionCmd(t *testing.T) {
	buf := captureOutput(t)
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "holders version "+version) {
		t.Errorf("version output = %q", buf.String())
	}
}

func TestSQLCmd_ReadOnly(t *testing.T) {
	buf := captureOutput(t)
	path := filepath.Join(t.TempDir(), "lines.db")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{`CREATE TABLE lines (l TEXT)`, `INSERT INTO lines VALUES ('id=42')`} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
	}
	db.Close()

	read := &SQLCmd{DB: path, ReadOnly: true, Query: `SELECT regexp_extract(l, 'id=(\d+)', 1) FROM lines`}
	if err := read.Run(testGlobals()); err != nil {
		t.Fatalf("read-only query failed: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "42" {
		t.Errorf("output = %q, want 42", got)
	}

	write := &SQLCmd{DB: path, ReadOnly: true, Query: `INSERT INTO lines VALUES ('x') RETURNING l`}
	if err := write.Run(testGlobals()); err == nil {
		t.Errorf("read-only write error = %v", err)
	}
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datascript-lang/datascript/internal/clihost"
	"github.com/datascript-lang/datascript/internal/config"
	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/pkg/datascript/parser"
)

// run parses and evaluates src with a fresh context whose print/debug/etc.
// natives write to a BufferedLogger instead of stdout, returning whatever
// it logged and the exit code evalProgram would have produced.
func run(t *testing.T, src string) (string, int) {
	t.Helper()
	ctx, err := clihost.NewContext(t.TempDir(), config.Defaults())
	if err != nil {
		t.Fatalf("building context: %v", err)
	}
	logger := interp.NewBufferedLogger()
	ctx.Logger = logger

	prog, perr := parser.ParseNamed(src, "<test>")
	if perr != nil {
		t.Fatalf("parse error: %s", perr.String())
	}
	code := evalProgram(prog, ctx, "<test>")
	return logger.String(), code
}

func TestRunEvalPrintsValues(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"number", `print(1 + 2);`, "3\n"},
		{"string", `print("hello");`, "hello\n"},
		{"boolean", `print(true);`, "true\n"},
		{"null", `print(null);`, "null\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, code := run(t, tt.code)
			if code != 0 {
				t.Fatalf("exit code = %d, want 0; output: %q", code, got)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunEvalReportsScriptError(t *testing.T) {
	_, code := run(t, `throw "boom";`)
	if code != 1 {
		t.Errorf("exit code = %d, want 1 for an uncaught throw", code)
	}
}

func TestRunEvalReportsParseError(t *testing.T) {
	_, perr := parser.ParseNamed(`let = ;`, "<test>")
	if perr == nil {
		t.Fatal("expected a parse error for malformed source")
	}
}

func TestRunFileEvaluatesScriptFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.ds")
	if err := os.WriteFile(path, []byte(`print("hi from file");`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	code := runFile(path, config.Defaults())
	if code != 0 {
		t.Errorf("runFile exit code = %d, want 0", code)
	}
}

func TestRunFileMissingFileFails(t *testing.T) {
	code := runFile(filepath.Join(t.TempDir(), "missing.ds"), config.Defaults())
	if code != 1 {
		t.Errorf("runFile exit code = %d, want 1 for a missing file", code)
	}
}


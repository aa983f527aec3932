package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/natives"
)

func newTestContext(t *testing.T) *interp.Context {
	t.Helper()
	ctx := interp.NewContext(t.TempDir())
	if err := natives.Register(ctx.Global, ctx); err != nil {
		t.Fatalf("registering natives: %v", err)
	}
	return ctx
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"complete statement", `let x = 1;`, false},
		{"open brace", `func f() {`, true},
		{"balanced braces", `func f() { return 1; }`, false},
		{"open bracket", `let xs = [1, 2,`, true},
		{"open paren", `print(1,`, true},
		{"brace inside string literal ignored", `let s = "{";`, false},
		{"escaped quote inside string doesn't close it early", `let s = "a\"` + `{}"; `, false},
		{"empty input", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsMoreInput(tt.input); got != tt.want {
				t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilterCompletions(t *testing.T) {
	got := filterCompletions("pri")
	found := false
	for _, w := range got {
		if w == "print" {
			found = true
		}
	}
	if !found {
		t.Errorf("filterCompletions(%q) = %v, want it to include %q", "pri", got, "print")
	}

	if got := filterCompletions("print "); got != nil {
		t.Errorf("filterCompletions after trailing space = %v, want nil", got)
	}
	if got := filterCompletions(""); got != nil {
		t.Errorf("filterCompletions(\"\") = %v, want nil", got)
	}
}

func TestEvalAndPrintShowsResultAndNull(t *testing.T) {
	ctx := newTestContext(t)
	env := interp.NewEnclosedEnvironment(ctx.Global)

	var out bytes.Buffer
	evalAndPrint(`1 + 2;`, env, ctx, &out)
	if got := strings.TrimSpace(out.String()); got != "3" {
		t.Errorf("output = %q, want %q", got, "3")
	}

	out.Reset()
	evalAndPrint(`let x = 5;`, env, ctx, &out)
	if got := strings.TrimSpace(out.String()); got != "null" {
		t.Errorf("output for a non-expression statement = %q, want %q", got, "null")
	}

	out.Reset()
	evalAndPrint(`x;`, env, ctx, &out)
	if got := strings.TrimSpace(out.String()); got != "5" {
		t.Errorf("a prior let binding should be visible to a later statement in the same scope; got %q", got)
	}
}

func TestEvalAndPrintReportsErrors(t *testing.T) {
	ctx := newTestContext(t)
	env := interp.NewEnclosedEnvironment(ctx.Global)

	var out bytes.Buffer
	evalAndPrint(`let = ;`, env, ctx, &out)
	if out.Len() == 0 {
		t.Error("expected a parse error message to be printed")
	}

	out.Reset()
	evalAndPrint(`throw "boom";`, env, ctx, &out)
	if !strings.Contains(out.String(), "boom") {
		t.Errorf("expected the thrown message to be printed, got %q", out.String())
	}
}

func TestHandleCommandClearResetsEnvironment(t *testing.T) {
	ctx := newTestContext(t)
	env := interp.NewEnclosedEnvironment(ctx.Global)

	var out bytes.Buffer
	evalAndPrint(`let x = 1;`, env, ctx, &out)

	cleared := handleCommand(":clear", env, ctx, &out)
	if cleared == nil {
		t.Fatal("expected :clear to return a fresh environment, not nil")
	}
	if _, err := cleared.LookupVar("x"); err == nil {
		t.Error("expected x to be gone from the cleared environment")
	}
}

func TestHandleCommandHelpAndUnknown(t *testing.T) {
	ctx := newTestContext(t)
	env := interp.NewEnclosedEnvironment(ctx.Global)

	var out bytes.Buffer
	if got := handleCommand(":help", env, ctx, &out); got != env {
		t.Error(":help should return the same environment unchanged")
	}
	if out.Len() == 0 {
		t.Error("expected :help to print something")
	}

	out.Reset()
	handleCommand(":nope", env, ctx, &out)
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("expected an unknown-command message, got %q", out.String())
	}
}

func TestPrintEnvironmentTruncatesLongValues(t *testing.T) {
	ctx := newTestContext(t)
	env := interp.NewEnclosedEnvironment(ctx.Global)

	var out bytes.Buffer
	evalAndPrint(`let s = "`+strings.Repeat("a", 100)+`";`, env, ctx, &out)

	out.Reset()
	printEnvironment(env, &out)
	line := out.String()
	if !strings.Contains(line, "...") {
		t.Errorf("expected a truncated value with an ellipsis, got %q", line)
	}
	if strings.Contains(line, strings.Repeat("a", 100)) {
		t.Error("expected the full 100-character value not to appear untruncated")
	}
}

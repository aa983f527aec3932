// Package repl implements the interactive Datascript shell: line editing
// and history via peterh/liner, multi-line input buffering until braces
// balance, and a small set of `:`-prefixed meta-commands.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/parser"
)

const prompt = ">> "
const continuationPrompt = ".. "

const logo = `
█▀▄ ▄▀█ ▀█▀ ▄▀█ █▀ █▀▀ █▀█ █ █▀█ ▀█▀
█▄▀ █▀█ ░█░ █▀█ ▄█ █▄▄ █▀▄ █ █▀▀ ░█░`

// completionWords lists keywords and natives offered for Tab completion.
var completionWords = []string{
	"let", "const", "declare", "func", "class", "create", "required", "optional",
	"schema", "extends", "if", "else", "while", "true", "false", "null",
	"return", "break", "continue", "try", "catch", "throw", "import", "exposing",
	"default", "export", "as", "update", "use", "using", "from", "with", "where",
	"set", "mongo", "many", "query", "database", "collection", "await",
	"print", "debug", "info", "warn", "error", "assert", "inspect",
	"abs", "sqrt", "pow", "max", "min", "clamp", "round", "floor", "ceil",
	"strlen", "uppercase", "lowercase", "trim", "split", "contains", "match",
	"keys", "values", "entries", "len", "sort", "clone", "deepClone",
	"connect", "disconnect", "schedule", "sleep", "uuid", "time",
	"typeOf", "toString", "toNumber", "schemaInfo", "now", "toDate",
}

// Start runs the REPL loop against ctx, reading from in and writing to out.
// Top-level bindings live in an environment enclosed by ctx.Global (which
// holds the natives), so `:env` and `:clear` can introspect/reset the
// user's own scope separately from natives.
func Start(in io.Reader, out io.Writer, ctx *interp.Context, version string) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string { return filterCompletions(l) })

	historyFile := filepath.Join(os.TempDir(), ".datascript_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprint(out, logo)
	fmt.Fprintln(out, "\nv"+version)
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for REPL commands.")
	fmt.Fprintln(out)

	env := interp.NewEnclosedEnvironment(ctx.Global)
	var buf strings.Builder

	for {
		currentPrompt := prompt
		if buf.Len() > 0 {
			currentPrompt = continuationPrompt
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if buf.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
					buf.Reset()
				} else {
					fmt.Fprintln(out, "^C")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nbye")
				return
			}
			fmt.Fprintf(out, "error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if buf.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "bye")
			return
		}
		if buf.Len() == 0 && strings.HasPrefix(trimmed, ":") {
			if env = handleCommand(trimmed, env, ctx, out); env == nil {
				return
			}
			continue
		}
		if buf.Len() == 0 && trimmed == "" {
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(input)

		full := buf.String()
		if needsMoreInput(full) {
			continue
		}

		if trimmed != "" {
			line.AppendHistory(full)
		}
		evalAndPrint(full, env, ctx, out)
		buf.Reset()
	}
}

func evalAndPrint(src string, env *interp.Environment, ctx *interp.Context, out io.Writer) {
	prog, perr := parser.ParseNamed(src, "<repl>")
	if perr != nil {
		fmt.Fprintln(out, perr.String())
		return
	}
	result, serr := interp.EvalProgramResult(prog, env, ctx)
	if serr != nil {
		fmt.Fprintln(out, serr.String())
		return
	}
	if result == nil {
		return
	}
	if _, isNull := result.(*object.Null); isNull {
		fmt.Fprintln(out, "null")
		return
	}
	fmt.Fprintln(out, result.Inspect())
}

// handleCommand handles a `:`-prefixed meta-command, returning the
// environment to continue with (":clear" swaps in a fresh one) or nil to
// signal the REPL should exit.
func handleCommand(cmd string, env *interp.Environment, ctx *interp.Context, out io.Writer) *interp.Environment {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :env            Show variables bound at the top level")
		fmt.Fprintln(out, "  :clear          Clear all user-declared bindings")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")
		return env

	case ":env":
		printEnvironment(env, out)
		return env

	case ":clear":
		fmt.Fprintln(out, "environment cleared")
		return interp.NewEnclosedEnvironment(ctx.Global)

	default:
		fmt.Fprintf(out, "unknown command: %s (type :help for commands)\n", fields[0])
		return env
	}
}

func printEnvironment(env *interp.Environment, out io.Writer) {
	vars := env.OwnBindings()
	if len(vars) == 0 {
		fmt.Fprintln(out, "(no bindings)")
		return
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := vars[name]
		value := v.Inspect()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", name, v.Kind(), value)
	}
}

func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasSuffix(line, " ") || strings.HasSuffix(line, "\t") {
		return nil
	}
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}
	last := words[len(words)-1]
	var matches []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, last) {
			matches = append(matches, w)
		}
	}
	return matches
}

// needsMoreInput reports whether input has unclosed braces, brackets, or
// parentheses outside of a string literal, so the REPL keeps buffering
// lines until a statement is complete.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	braces, brackets, parens := 0, 0, 0
	inString := false
	escapeNext := false

	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if ch == '\\' {
			escapeNext = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		case '(':
			parens++
		case ')':
			parens--
		}
	}
	return braces > 0 || brackets > 0 || parens > 0
}

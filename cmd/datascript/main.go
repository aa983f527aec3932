// Command datascript runs Datascript programs: a file argument executes
// that file's module program; -e evaluates an inline expression and
// prints its result (nothing when that result is null); with no file and
// no -e, it starts an interactive REPL.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/datascript-lang/datascript/internal/clihost"
	"github.com/datascript-lang/datascript/internal/config"
	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/internal/repl"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
	"github.com/datascript-lang/datascript/pkg/datascript/parser"
)

// Version is set at compile time via -ldflags.
var Version = "0.1.0"

var (
	helpFlag    = flag.Bool("h", false, "Show help message")
	versionFlag = flag.Bool("V", false, "Show version information")
	evalFlag    = flag.String("e", "", "Evaluate an inline expression and print its result")
	configFlag  = flag.String("c", "", "Path to datascript.yaml (default: search ./datascript.yaml)")
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: datascript [-c config.yaml] [-e expr | file.ds]")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *helpFlag {
		usage()
		return
	}
	if *versionFlag {
		fmt.Println("datascript " + Version)
		return
	}

	cfg, err := config.Load(*configFlag, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *evalFlag != "" {
		os.Exit(runEval(*evalFlag, cfg))
	}

	args := flag.Args()
	switch len(args) {
	case 0:
		runREPL(cfg)
	case 1:
		os.Exit(runFile(args[0], cfg))
	default:
		usage()
		os.Exit(2)
	}
}

func runEval(src string, cfg *config.Config) int {
	cwd, _ := os.Getwd()
	ctx, err := clihost.NewContext(cwd, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	prog, perr := parser.ParseNamed(src, "<eval>")
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.String())
		return 1
	}
	env := interp.NewEnclosedEnvironment(ctx.Global)
	result, serr := interp.EvalProgramResult(prog, env, ctx)
	if serr != nil {
		fmt.Fprintln(os.Stderr, serr.WithFile("<eval>").String())
		return 1
	}
	if _, isNull := result.(*object.Null); result != nil && !isNull {
		fmt.Println(result.Inspect())
	}
	drainTimers(ctx)
	return 0
}

func runFile(path string, cfg *config.Config) int {
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ctx, err := clihost.NewContext(filepath.Dir(abs), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	prog, perr := interp.ParseFile(abs, os.ReadFile)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.WithFile(abs).String())
		return 1
	}
	return evalProgram(prog, ctx, abs)
}

func runREPL(cfg *config.Config) {
	cwd, _ := os.Getwd()
	ctx, err := clihost.NewContext(cwd, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	repl.Start(os.Stdin, os.Stdout, ctx, Version)
}

// evalProgram runs prog to completion in a scope enclosed by ctx.Global and
// drains any timers it scheduled, reporting the given file name on error.
func evalProgram(prog *ast.Program, ctx *interp.Context, file string) int {
	env := interp.NewEnclosedEnvironment(ctx.Global)
	if serr := interp.EvalProgram(prog, env, ctx); serr != nil {
		fmt.Fprintln(os.Stderr, serr.WithFile(file).String())
		return 1
	}
	drainTimers(ctx)
	return 0
}

// drainTimers runs every `schedule`d callback in delay order (registration
// order among equal delays). The core records timers but performs no I/O
// or real waiting; a CLI host has no event loop to hand them to, so it runs
// them once, without waiting out their delays, after the program's
// top-level statements complete, and keeps draining as long as a callback
// schedules more work.
func drainTimers(ctx *interp.Context) {
	for len(ctx.Timers) > 0 {
		pending := ctx.Timers
		ctx.Timers = nil
		sort.SliceStable(pending, func(i, j int) bool { return pending[i].DelayMS < pending[j].DelayMS })
		for _, t := range pending {
			if _, err := interp.CallValue(t.Callable, t.Args, ctx); err != nil {
				if se, ok := err.(*errors.ScriptError); ok {
					fmt.Fprintln(os.Stderr, se.String())
				} else {
					fmt.Fprintln(os.Stderr, err.Error())
				}
			}
		}
	}
}

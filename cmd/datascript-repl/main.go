// Command datascript-repl starts the interactive Datascript shell. With
// -watch <file>, it runs that file immediately and reruns it each time it
// changes on disk, instead of starting the interactive loop.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/datascript-lang/datascript/internal/clihost"
	"github.com/datascript-lang/datascript/internal/config"
	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/repl"
)

var Version = "0.1.0"

var (
	configFlag = flag.String("c", "", "Path to datascript.yaml (default: search ./datascript.yaml)")
	watchFlag  = flag.String("watch", "", "Run and rerun this file on every change instead of starting the REPL")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *watchFlag != "" {
		if err := runWatch(*watchFlag, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cwd, _ := os.Getwd()
	ctx, err := clihost.NewContext(cwd, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	repl.Start(os.Stdin, os.Stdout, ctx, Version)
}

// runWatch runs path once, then watches its containing directory and
// reruns it in a fresh context on every write or create event naming it,
// debouncing rapid successive events from editors that save in bursts.
func runWatch(path string, cfg *config.Config) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	runOnce(abs, cfg)

	const debounce = 100 * time.Millisecond
	var lastRun time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastRun) < debounce {
				continue
			}
			lastRun = time.Now()
			runOnce(abs, cfg)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", werr)
		}
	}
}

// runOnce builds a fresh context and evaluates path, reporting any error
// without stopping the watch loop.
func runOnce(path string, cfg *config.Config) {
	fmt.Fprintf(os.Stderr, "[watch] running %s\n", path)

	ctx, err := clihost.NewContext(filepath.Dir(path), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	prog, perr := interp.ParseFile(path, os.ReadFile)
	if perr != nil {
		fmt.Fprintln(os.Stderr, perr.WithFile(path).String())
		return
	}
	env := interp.NewEnclosedEnvironment(ctx.Global)
	if serr := interp.EvalProgram(prog, env, ctx); serr != nil {
		fmt.Fprintln(os.Stderr, serr.WithFile(path).String())
	}
}

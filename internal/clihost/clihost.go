// Package clihost builds an interp.Context from host configuration,
// shared by every command-line entry point (datascript, datascript-repl)
// so they stay wired the same way: native library registration, logging
// destination, and an optional auto-connected document store.
package clihost

import (
	"fmt"
	"os"

	"github.com/datascript-lang/datascript/internal/config"
	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/natives"
	"github.com/datascript-lang/datascript/internal/sqlitestore"
)

// NewContext builds a Context rooted at baseDir with the native library
// registered, logging directed per cfg.Logging, and — if cfg.Database.URI
// is set — a document store connected and bound as the active database.
func NewContext(baseDir string, cfg *config.Config) (*interp.Context, error) {
	ctx := interp.NewContext(baseDir)
	ctx.Logger = LoggerFor(cfg.Logging)

	if err := natives.Register(ctx.Global, ctx); err != nil {
		return nil, fmt.Errorf("registering native library: %w", err)
	}

	if cfg.Database.URI != "" {
		connector := sqlitestore.NewConnector()
		ctx.Connector = connector
		handle, err := connector.Connect(cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return nil, fmt.Errorf("connecting configured database: %w", err)
		}
		if err := bindConfiguredDatabase(ctx, handle, cfg.Database.Alias); err != nil {
			return nil, err
		}
	}

	return ctx, nil
}

// bindConfiguredDatabase registers handle as the active database and binds
// it under alias in the global scope, mirroring what the `database ident =
// expr;` statement does for a database connected from script code.
func bindConfiguredDatabase(ctx *interp.Context, handle dsl.DatabaseHandle, alias string) error {
	dbVal := &dsl.DatabaseHandleValue{Handle: handle, Collections: make(map[string]*dsl.CollectionHandleValue)}
	ctx.SetActiveDatabase(dbVal)
	if alias == "" {
		alias = "db"
	}
	if err := ctx.Global.DeclareVar(alias, dbVal, true); err != nil {
		return fmt.Errorf("binding configured database: %w", err)
	}
	return nil
}

// LoggerFor dispatches on cfg.Output: "stdout" (the default), "stderr", or
// a file path to append to.
func LoggerFor(cfg config.LoggingConfig) interp.Logger {
	switch cfg.Output {
	case "", "stdout":
		return interp.DefaultLogger
	case "stderr":
		return interp.WriterLogger(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "opening log output:", err)
			return interp.DefaultLogger
		}
		return interp.WriterLogger(f)
	}
}

// Package natives implements the built-in function library, split by
// concern across a handful of files (math, string, collection, schema,
// document-store helpers) as plain functions over internal/object's Value
// model rather than a dictionary module: every native here is declared
// directly into the global environment, since the native library is one
// flat namespace, not an importable module tree.
package natives

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/interp"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// Register declares every native function (and the true/false/null
// constants) into env, evaluating natives that need it against ctx
// (print, debug/info/warn/error, schedule, connect, disconnect).
func Register(env *interp.Environment, ctx *interp.Context) error {
	entries := allNatives(ctx)
	for name, fn := range entries {
		if err := env.DeclareVar(name, fn, true); err != nil {
			return err
		}
	}
	if err := env.DeclareVar("true", object.True, true); err != nil {
		return err
	}
	if err := env.DeclareVar("false", object.False, true); err != nil {
		return err
	}
	return env.DeclareVar("null", object.NullValue, true)
}

func native(name string, fn func(args []object.Value) (object.Value, error)) *object.NativeFunction {
	return &object.NativeFunction{Name: name, Fn: fn}
}

func allNatives(ctx *interp.Context) map[string]*object.NativeFunction {
	out := map[string]*object.NativeFunction{
		"print":       native("print", nativePrint(ctx)),
		"time":        native("time", nativeTime),
		"sleep":       native("sleep", nativeSleep),
		"showASTNode": native("showASTNode", nativeShowASTNode),
		"typeOf":      native("typeOf", nativeTypeOf),
		"inspect":     native("inspect", nativeInspect),
		"assert":      native("assert", nativeAssert),
		"env":         native("env", nativeEnv),
		"uuid":        native("uuid", nativeUUID),
		"schedule":    native("schedule", nativeSchedule(ctx)),
		"connect":     native("connect", nativeConnect(ctx)),
		"disconnect":  native("disconnect", nativeDisconnect(ctx)),
		"debug":       native("debug", nativeLog(ctx, "DEBUG")),
		"info":        native("info", nativeLog(ctx, "INFO")),
		"warn":        native("warn", nativeLog(ctx, "WARN")),
		"error":       native("error", nativeLog(ctx, "ERROR")),
	}
	for name, fn := range mathNatives() {
		out[name] = fn
	}
	for name, fn := range stringNatives() {
		out[name] = fn
	}
	for name, fn := range collectionNatives() {
		out[name] = fn
	}
	for name, fn := range schemaNatives() {
		out[name] = fn
	}
	for name, fn := range dslNatives() {
		out[name] = fn
	}
	for name, fn := range datetimeNatives() {
		out[name] = fn
	}
	return out
}

// ---- arg-checking helpers ---------------------------------------------------

func arityExact(fn string, args []object.Value, want int) *errors.ScriptError {
	if len(args) != want {
		return errors.New("ARITY-0001", map[string]any{"Function": fn, "Want": want, "Got": len(args)})
	}
	return nil
}

func arityErrorAtLeastOne(fn string) *errors.ScriptError {
	return errors.New("ARITY-0001", map[string]any{"Function": fn, "Want": "1+", "Got": 0})
}

func arityRange(fn string, args []object.Value, min, max int) *errors.ScriptError {
	if len(args) < min || len(args) > max {
		want := fmt.Sprintf("%d-%d", min, max)
		return errors.New("ARITY-0001", map[string]any{"Function": fn, "Want": want, "Got": len(args)})
	}
	return nil
}

func typeErr(fn, expected string, got object.Value) *errors.ScriptError {
	return errors.New("TYPE-0001", map[string]any{"Function": fn, "Expected": expected, "Got": describeKind(got)})
}

func describeKind(v object.Value) string {
	if obj, ok := v.(*object.Object); ok && obj.SchemaName != "" {
		return obj.SchemaName
	}
	return string(v.Kind())
}

func asNumber(fn string, v object.Value) (float64, *errors.ScriptError) {
	n, ok := v.(*object.Number)
	if !ok {
		return 0, typeErr(fn, "number", v)
	}
	return n.Value, nil
}

func asString(fn string, v object.Value) (string, *errors.ScriptError) {
	s, ok := v.(*object.String)
	if !ok {
		return "", typeErr(fn, "string", v)
	}
	return s.Value, nil
}

func asArray(fn string, v object.Value) (*object.Array, *errors.ScriptError) {
	a, ok := v.(*object.Array)
	if !ok {
		return nil, typeErr(fn, "array", v)
	}
	return a, nil
}

// ---- misc natives -----------------------------------------------------------

func nativePrint(ctx *interp.Context) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		parts := make([]any, len(args))
		for i, a := range args {
			parts[i] = a.Inspect()
		}
		ctx.Logger.LogLine(parts...)
		return object.NullValue, nil
	}
}

func nativeLog(ctx *interp.Context, level string) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		parts := make([]any, 0, len(args)+1)
		parts = append(parts, "["+level+"]")
		for _, a := range args {
			parts = append(parts, a.Inspect())
		}
		ctx.Logger.LogLine(parts...)
		return object.NullValue, nil
	}
}

func nativeTime(args []object.Value) (object.Value, error) {
	if err := arityExact("time", args, 0); err != nil {
		return nil, err
	}
	return &object.Number{Value: float64(time.Now().UnixMilli())}, nil
}

func nativeSleep(args []object.Value) (object.Value, error) {
	if err := arityExact("sleep", args, 1); err != nil {
		return nil, err
	}
	if _, err := asNumber("sleep", args[0]); err != nil {
		return nil, err
	}
	// The evaluator is single-threaded cooperative: sleep resolves
	// immediately to a settled Promise rather than blocking a Go goroutine.
	// A host scheduler that wants real delay runs the awaiting caller after
	// its own clock, not this core.
	return object.ResolvedPromise(object.NullValue), nil
}

func nativeShowASTNode(args []object.Value) (object.Value, error) {
	if err := arityExact("showASTNode", args, 1); err != nil {
		return nil, err
	}
	fn, ok := args[0].(*object.Function)
	if !ok {
		return nil, typeErr("showASTNode", "function", args[0])
	}
	body, ok := fn.Body.([]ast.Statement)
	if !ok {
		return &object.String{Value: fn.Inspect()}, nil
	}
	s := "func " + fn.Name + "(...) {\n"
	for _, stmt := range body {
		s += "  " + stmt.String() + "\n"
	}
	s += "}"
	return &object.String{Value: s}, nil
}

func nativeTypeOf(args []object.Value) (object.Value, error) {
	if err := arityExact("typeOf", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Class:
		return &object.String{Value: v.Name}, nil
	case *object.Object:
		if v.SchemaName != "" {
			return &object.String{Value: v.SchemaName}, nil
		}
		return &object.String{Value: string(v.Kind())}, nil
	default:
		return &object.String{Value: string(v.Kind())}, nil
	}
}

func nativeInspect(args []object.Value) (object.Value, error) {
	if err := arityExact("inspect", args, 1); err != nil {
		return nil, err
	}
	return &object.String{Value: args[0].Inspect()}, nil
}

func nativeAssert(args []object.Value) (object.Value, error) {
	if err := arityRange("assert", args, 1, 2); err != nil {
		return nil, err
	}
	if object.Truthy(args[0]) {
		return object.NullValue, nil
	}
	message := "assertion failed"
	if len(args) == 2 {
		if s, ok := args[1].(*object.String); ok {
			message = s.Value
		} else {
			message = args[1].Inspect()
		}
	}
	return nil, &interp.ThrownSignal{Value: &object.String{Value: message}}
}

func nativeEnv(args []object.Value) (object.Value, error) {
	if err := arityExact("env", args, 1); err != nil {
		return nil, err
	}
	name, err := asString("env", args[0])
	if err != nil {
		return nil, err
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return object.NullValue, nil
	}
	return &object.String{Value: v}, nil
}

func nativeUUID(args []object.Value) (object.Value, error) {
	if err := arityExact("uuid", args, 0); err != nil {
		return nil, err
	}
	return &object.String{Value: uuid.NewString()}, nil
}

func nativeSchedule(ctx *interp.Context) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if err := arityRange("schedule", args, 2, 3); err != nil {
			return nil, err
		}
		delay, err := asNumber("schedule", args[0])
		if err != nil {
			return nil, err
		}
		switch args[1].(type) {
		case *object.Function, *object.NativeFunction:
		default:
			return nil, typeErr("schedule", "function", args[1])
		}
		var callArgs []object.Value
		if len(args) == 3 {
			arr, aerr := asArray("schedule", args[2])
			if aerr != nil {
				return nil, aerr
			}
			callArgs = make([]object.Value, len(arr.Elements))
			for i, el := range arr.Elements {
				callArgs[i] = deepCloneValue(el, make(map[object.Value]object.Value))
			}
		}
		id := ctx.ScheduleTimer(delay, args[1], callArgs)
		return &object.Number{Value: float64(id)}, nil
	}
}

func nativeConnect(ctx *interp.Context) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if err := arityRange("connect", args, 1, 2); err != nil {
			return nil, err
		}
		uri, err := asString("connect", args[0])
		if err != nil {
			return nil, err
		}
		dbName := ""
		if len(args) == 2 {
			if _, isNull := args[1].(*object.Null); !isNull {
				n, serr := asString("connect", args[1])
				if serr != nil {
					return nil, serr
				}
				dbName = n
			}
		}
		if ctx.Connector == nil {
			return nil, errors.NewSimple(errors.ClassDSL, "no connector configured for `connect`")
		}
		handle, cerr := ctx.Connector.Connect(uri, dbName)
		if cerr != nil {
			return nil, &interp.ThrownSignal{Value: &object.String{Value: cerr.Error()}}
		}
		dbVal := &dsl.DatabaseHandleValue{Handle: handle, Collections: make(map[string]*dsl.CollectionHandleValue)}
		return object.ResolvedPromise(dbVal), nil
	}
}

func nativeDisconnect(ctx *interp.Context) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if err := arityRange("disconnect", args, 0, 1); err != nil {
			return nil, err
		}
		var db *dsl.DatabaseHandleValue
		if len(args) == 1 {
			d, ok := args[0].(*dsl.DatabaseHandleValue)
			if !ok {
				return nil, typeErr("disconnect", "databaseHandle", args[0])
			}
			db = d
		} else {
			db = ctx.ActiveDatabase()
			if db == nil {
				return nil, errors.New("DSL-0001", nil)
			}
		}
		if cerr := db.Handle.Close(); cerr != nil {
			return nil, errors.NewSimple(errors.ClassDSL, cerr.Error())
		}
		if ctx.ActiveDatabase() == db {
			ctx.ClearDSL()
		}
		return object.NullValue, nil
	}
}

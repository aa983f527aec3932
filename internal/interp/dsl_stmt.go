package interp

import (
	"math"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// evalDatabaseStatement implements `database ident = expr;`: expr must
// evaluate to a database handle; any prior active database and its
// collection bindings are dropped, ident is bound as a constant, and the
// handle becomes the active database.
func evalDatabaseStatement(n *ast.DatabaseStatement, env *Environment, ctx *Context) error {
	v, err := EvalExpr(n.Value, env, ctx)
	if err != nil {
		return err
	}
	db, ok := v.(*dsl.DatabaseHandleValue)
	if !ok {
		return errors.New("TYPE-0005", map[string]any{"Where": "database statement", "Expected": "databaseHandle", "Got": string(v.Kind())})
	}
	ctx.SetActiveDatabase(db)
	return env.DeclareVar(n.Name, db, true)
}

// evalCollectionStatement implements `collection ident [= expr];`.
func evalCollectionStatement(n *ast.CollectionStatement, env *Environment, ctx *Context) error {
	var handle *dsl.CollectionHandleValue

	if n.Value == nil {
		h, derr := ctx.DeriveCollection(n.Name)
		if derr != nil {
			return derr
		}
		handle = h
	} else {
		v, err := EvalExpr(n.Value, env, ctx)
		if err != nil {
			return err
		}
		switch val := v.(type) {
		case *object.String:
			h, derr := ctx.DeriveCollection(val.Value)
			if derr != nil {
				return derr
			}
			handle = h
		case *dsl.CollectionHandleValue:
			handle = val
		case *dsl.DatabaseHandleValue:
			h, derr := val.Handle.Collection(n.Name)
			if derr != nil {
				return errors.NewSimple(errors.ClassDSL, derr.Error())
			}
			handle = &dsl.CollectionHandleValue{Handle: h}
		default:
			return errors.New("TYPE-0005", map[string]any{"Where": "collection statement", "Expected": "collectionHandle", "Got": string(v.Kind())})
		}
	}

	ctx.RegisterCollection(n.Name, handle)
	return env.DeclareVar(n.Name, handle, true)
}

// evalUseCollectionStatement implements `use collection ident [with opts];`.
func evalUseCollectionStatement(n *ast.UseCollectionStatement, env *Environment, ctx *Context) error {
	handle, ok := ctx.LookupCollection(n.Name)
	if !ok {
		h, derr := ctx.DeriveCollection(n.Name)
		if derr != nil {
			return derr
		}
		handle = h
	}

	if n.Options != nil {
		v, err := EvalExpr(n.Options, env, ctx)
		if err != nil {
			return err
		}
		opts, ok := v.(*object.Object)
		if !ok {
			return errors.New("TYPE-0005", map[string]any{"Where": "use collection with", "Expected": "object", "Got": string(v.Kind())})
		}
		if aerr := applyCollectionOptions(handle, opts); aerr != nil {
			return aerr
		}
	}
	return nil
}

// applyCollectionOptions sets projection/sort/limit/batchSize defaults
// from opts, validating each (only objects for projection/sort; only
// finite numbers for limit/batchSize).
func applyCollectionOptions(handle *dsl.CollectionHandleValue, opts *object.Object) *errors.ScriptError {
	if v, ok := opts.Get("projection"); ok {
		obj, ok := v.(*object.Object)
		if !ok {
			return errors.New("TYPE-0005", map[string]any{"Where": "projection", "Expected": "object", "Got": string(v.Kind())})
		}
		plain, perr := dsl.ToPlain(obj)
		if perr != nil {
			return perr
		}
		handle.Projection = plain.(map[string]any)
	}
	if v, ok := opts.Get("sort"); ok {
		obj, ok := v.(*object.Object)
		if !ok {
			return errors.New("TYPE-0005", map[string]any{"Where": "sort", "Expected": "object", "Got": string(v.Kind())})
		}
		plain, perr := dsl.ToPlain(obj)
		if perr != nil {
			return perr
		}
		handle.Sort = plain.(map[string]any)
	}
	if v, ok := opts.Get("limit"); ok {
		n, ok := v.(*object.Number)
		if !ok || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
			return errors.New("TYPE-0005", map[string]any{"Where": "limit", "Expected": "finite number", "Got": string(v.Kind())})
		}
		handle.Limit = int(n.Value)
		handle.HasLimit = true
	}
	if v, ok := opts.Get("batchSize"); ok {
		n, ok := v.(*object.Number)
		if !ok || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
			return errors.New("TYPE-0005", map[string]any{"Where": "batchSize", "Expected": "finite number", "Got": string(v.Kind())})
		}
		handle.BatchSize = int(n.Value)
		handle.HasBatch = true
	}
	return nil
}

// evalUsingStatement implements `using mongo from uri [database db] [as
// alias] [with opts] { body }`: snapshot/clear/connect/bind/execute, with
// guaranteed disconnect + snapshot restore on every exit path.
func evalUsingStatement(n *ast.UsingStatement, env *Environment, ctx *Context) error {
	if ctx.Connector == nil {
		return errors.NewSimple(errors.ClassDSL, "no connector configured for `using mongo`")
	}

	uriVal, err := EvalExpr(n.URI, env, ctx)
	if err != nil {
		return err
	}
	uriStr, ok := uriVal.(*object.String)
	if !ok {
		return errors.New("TYPE-0005", map[string]any{"Where": "using mongo from", "Expected": "string", "Got": string(uriVal.Kind())})
	}

	dbName := ""
	if n.Database != nil {
		dbVal, derr := EvalExpr(n.Database, env, ctx)
		if derr != nil {
			return derr
		}
		dbStr, ok := dbVal.(*object.String)
		if !ok {
			return errors.New("TYPE-0005", map[string]any{"Where": "using mongo database", "Expected": "string", "Got": string(dbVal.Kind())})
		}
		dbName = dbStr.Value
	}

	alias := n.Alias
	if alias == "" {
		alias = "db"
	}

	var opts *object.Object
	if n.Options != nil {
		optsVal, oerr := EvalExpr(n.Options, env, ctx)
		if oerr != nil {
			return oerr
		}
		o, ok := optsVal.(*object.Object)
		if !ok {
			return errors.New("TYPE-0005", map[string]any{"Where": "using mongo with", "Expected": "object", "Got": string(optsVal.Kind())})
		}
		opts = o
	}

	snapshot := ctx.SnapshotDSL()
	ctx.ClearDSL()

	handle, cerr := ctx.Connector.Connect(uriStr.Value, dbName)
	if cerr != nil {
		ctx.RestoreDSL(snapshot)
		return errors.NewSimple(errors.ClassDSL, cerr.Error())
	}
	dbVal := &dsl.DatabaseHandleValue{Handle: handle, Collections: make(map[string]*dsl.CollectionHandleValue)}
	ctx.SetActiveDatabase(dbVal)

	if opts != nil {
		if collsVal, ok := opts.Get("collections"); ok {
			if collsObj, ok := collsVal.(*object.Object); ok {
				for _, name := range collsObj.Keys {
					h, derr := dbVal.Handle.Collection(name)
					if derr != nil {
						_ = handle.Close()
						ctx.ClearDSL()
						ctx.RestoreDSL(snapshot)
						return errors.NewSimple(errors.ClassDSL, derr.Error())
					}
					ch := &dsl.CollectionHandleValue{Handle: h}
					if withVal, _ := collsObj.Get(name); withVal != nil {
						if withObj, ok := withVal.(*object.Object); ok {
							if aerr := applyCollectionOptions(ch, withObj); aerr != nil {
								_ = handle.Close()
								ctx.ClearDSL()
								ctx.RestoreDSL(snapshot)
								return aerr
							}
						}
					}
					dbVal.Collections[name] = ch
					ctx.RegisterCollection(name, ch)
				}
			}
		}
	}

	scopeEnv := NewEnclosedEnvironment(env)
	if derr := scopeEnv.DeclareVar(alias, dbVal, true); derr != nil {
		_ = handle.Close()
		ctx.ClearDSL()
		ctx.RestoreDSL(snapshot)
		return derr
	}

	runErr := evalStatements(n.Body, scopeEnv, ctx)

	_ = handle.Close()
	ctx.ClearDSL()
	ctx.RestoreDSL(snapshot)

	return runErr
}

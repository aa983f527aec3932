package interp

import (
	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// evalMongoOperation lowers `collection <op> operand` (the document-store
// operator table) into a driver call and wraps the result in an
// *dsl.OperationChainValue.
func evalMongoOperation(n *ast.MongoOperationExpr, env *Environment, ctx *Context) (object.Value, error) {
	colVal, err := EvalExpr(n.Collection, env, ctx)
	if err != nil {
		return nil, err
	}
	col, cerr := asCollection(colVal, ctx)
	if cerr != nil {
		return nil, cerr
	}

	operandVal, err := EvalExpr(n.Operand, env, ctx)
	if err != nil {
		return nil, err
	}
	operand := dsl.Unwrap(operandVal)

	switch n.Operator {
	case "<-":
		return execInsert(col, operand)
	case "!":
		return execDelete(col, operand, false)
	case "!!":
		return execDelete(col, operand, true)
	case "?":
		return execFindOne(col, operand)
	case "??":
		return execFindMany(col, operand)
	case "|>":
		return execAggregate(col, operand)
	default:
		return nil, errors.New("OP-0002", map[string]any{"Operator": n.Operator})
	}
}

func asCollection(v object.Value, ctx *Context) (*dsl.CollectionHandleValue, *errors.ScriptError) {
	switch c := v.(type) {
	case *dsl.CollectionHandleValue:
		return c, nil
	case *dsl.OperationChainValue:
		return c.Collection, nil
	default:
		return nil, errors.New("DSL-0004", map[string]any{"Name": v.Inspect()})
	}
}

func chain(col *dsl.CollectionHandleValue, result object.Value) *dsl.OperationChainValue {
	return &dsl.OperationChainValue{LastResult: result, Collection: col}
}

func execInsert(col *dsl.CollectionHandleValue, operand object.Value) (object.Value, error) {
	if arr, ok := operand.(*object.Array); ok {
		docs := make([]map[string]any, len(arr.Elements))
		for i, el := range arr.Elements {
			doc, err := dsl.AsDocument(el)
			if err != nil {
				return nil, err
			}
			docs[i] = doc
		}
		ids, err := col.Handle.InsertMany(docs)
		if err != nil {
			return nil, errors.NewSimple(errors.ClassDSL, err.Error())
		}
		elems := make([]object.Value, len(ids))
		for i, id := range ids {
			elems[i] = &object.String{Value: id}
		}
		return chain(col, &object.Array{Elements: elems}), nil
	}
	doc, err := dsl.AsDocument(operand)
	if err != nil {
		return nil, err
	}
	id, ierr := col.Handle.InsertOne(doc)
	if ierr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, ierr.Error())
	}
	return chain(col, &object.String{Value: id}), nil
}

func execDelete(col *dsl.CollectionHandleValue, operand object.Value, many bool) (object.Value, error) {
	filter, err := dsl.AsFilter(operand)
	if err != nil {
		return nil, err
	}
	var count int
	var derr error
	if many {
		count, derr = col.Handle.DeleteMany(filter)
	} else {
		count, derr = col.Handle.DeleteOne(filter)
	}
	if derr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, derr.Error())
	}
	return chain(col, &object.Number{Value: float64(count)}), nil
}

func execFindOne(col *dsl.CollectionHandleValue, operand object.Value) (object.Value, error) {
	filter, err := dsl.AsFilter(operand)
	if err != nil {
		return nil, err
	}
	doc, ferr := col.Handle.FindOne(filter, col.FindOpts())
	if ferr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, ferr.Error())
	}
	if doc == nil {
		return chain(col, object.NullValue), nil
	}
	return chain(col, dsl.FromPlain(doc)), nil
}

func execFindMany(col *dsl.CollectionHandleValue, operand object.Value) (object.Value, error) {
	filter, err := dsl.AsFilter(operand)
	if err != nil {
		return nil, err
	}
	cursor, ferr := col.Handle.FindMany(filter, col.FindOpts())
	if ferr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, ferr.Error())
	}
	docs, terr := cursor.ToArray()
	if terr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, terr.Error())
	}
	elems := make([]object.Value, len(docs))
	for i, d := range docs {
		elems[i] = dsl.FromPlain(d)
	}
	return chain(col, &object.Array{Elements: elems}), nil
}

func execAggregate(col *dsl.CollectionHandleValue, operand object.Value) (object.Value, error) {
	pipeline, err := dsl.AsPipeline(operand)
	if err != nil {
		return nil, err
	}
	cursor, aerr := col.Handle.Aggregate(pipeline)
	if aerr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, aerr.Error())
	}
	docs, terr := cursor.ToArray()
	if terr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, terr.Error())
	}
	elems := make([]object.Value, len(docs))
	for i, d := range docs {
		elems[i] = dsl.FromPlain(d)
	}
	return chain(col, &object.Array{Elements: elems}), nil
}

// evalMongoUpdate lowers `target update [many] where filter set update [with
// options]` into updateOne/updateMany, building the
// {matchedCount,modifiedCount,upsertedCount,upsertedId,upsertedIds?} result
// object a Mongo-style update result carries.
func evalMongoUpdate(n *ast.MongoUpdateExpr, env *Environment, ctx *Context) (object.Value, error) {
	targetVal, err := EvalExpr(n.Target, env, ctx)
	if err != nil {
		return nil, err
	}
	col, cerr := asCollection(targetVal, ctx)
	if cerr != nil {
		return nil, cerr
	}

	filterVal, err := EvalExpr(n.Filter, env, ctx)
	if err != nil {
		return nil, err
	}
	filter, ferr := dsl.AsFilter(dsl.Unwrap(filterVal))
	if ferr != nil {
		return nil, ferr
	}

	updateVal, err := EvalExpr(n.Update, env, ctx)
	if err != nil {
		return nil, err
	}
	update, uerr := dsl.AsDocument(dsl.Unwrap(updateVal))
	if uerr != nil {
		return nil, uerr
	}

	var opts map[string]any
	if n.Options != nil {
		optsVal, err := EvalExpr(n.Options, env, ctx)
		if err != nil {
			return nil, err
		}
		opts, uerr = dsl.AsDocument(dsl.Unwrap(optsVal))
		if uerr != nil {
			return nil, uerr
		}
	}

	var result dsl.UpdateResult
	var updErr error
	if n.Many {
		result, updErr = col.Handle.UpdateMany(filter, update, opts)
	} else {
		result, updErr = col.Handle.UpdateOne(filter, update, opts)
	}
	if updErr != nil {
		return nil, errors.NewSimple(errors.ClassDSL, updErr.Error())
	}

	out := object.NewObject()
	out.Set("matchedCount", &object.Number{Value: float64(result.MatchedCount)})
	out.Set("modifiedCount", &object.Number{Value: float64(result.ModifiedCount)})
	out.Set("upsertedCount", &object.Number{Value: float64(result.UpsertedCount)})
	if result.UpsertedID != nil {
		out.Set("upsertedId", dsl.FromPlain(result.UpsertedID))
	} else {
		out.Set("upsertedId", object.NullValue)
	}
	if result.UpsertedIDs != nil {
		elems := make([]object.Value, len(result.UpsertedIDs))
		for i, id := range result.UpsertedIDs {
			elems[i] = dsl.FromPlain(id)
		}
		out.Set("upsertedIds", &object.Array{Elements: elems})
	}
	return chain(col, out), nil
}

// evalChainMember resolves property/method access on an Operation chain
// value: direct properties (value, collection, unwrap/valueOf/toJSON) and
// the `then…` family, each of which re-executes the corresponding operator
// against the chain's owning collection.
func evalChainMember(c *dsl.OperationChainValue, name string) (object.Value, error) {
	switch name {
	case "value", "unwrap", "valueOf", "toJSON":
		return c.LastResult, nil
	case "collection":
		if c.Collection == nil {
			return object.NullValue, nil
		}
		return c.Collection, nil
	}
	if !dsl.ChainMembers[name] {
		return object.NullValue, nil
	}
	col := c.Collection
	return &object.NativeFunction{Name: name, Fn: func(args []object.Value) (object.Value, error) {
		return invokeChainThen(col, name, args)
	}}, nil
}

func invokeChainThen(col *dsl.CollectionHandleValue, name string, args []object.Value) (object.Value, error) {
	arg := func(i int) object.Value {
		if i < len(args) {
			return args[i]
		}
		return object.NullValue
	}
	switch name {
	case "thenInsert", "thenInsertMany":
		return execInsert(col, dsl.Unwrap(arg(0)))
	case "thenDelete":
		return execDelete(col, dsl.Unwrap(arg(0)), false)
	case "thenDeleteMany":
		return execDelete(col, dsl.Unwrap(arg(0)), true)
	case "thenFind":
		return execFindOne(col, dsl.Unwrap(arg(0)))
	case "thenFindMany":
		return execFindMany(col, dsl.Unwrap(arg(0)))
	case "thenAggregate":
		return execAggregate(col, dsl.Unwrap(arg(0)))
	case "thenUpdate", "thenUpdateMany":
		filter, err := dsl.AsFilter(dsl.Unwrap(arg(0)))
		if err != nil {
			return nil, err
		}
		update, uerr := dsl.AsDocument(dsl.Unwrap(arg(1)))
		if uerr != nil {
			return nil, uerr
		}
		var result dsl.UpdateResult
		var updErr error
		if name == "thenUpdateMany" {
			result, updErr = col.Handle.UpdateMany(filter, update, nil)
		} else {
			result, updErr = col.Handle.UpdateOne(filter, update, nil)
		}
		if updErr != nil {
			return nil, errors.NewSimple(errors.ClassDSL, updErr.Error())
		}
		out := object.NewObject()
		out.Set("matchedCount", &object.Number{Value: float64(result.MatchedCount)})
		out.Set("modifiedCount", &object.Number{Value: float64(result.ModifiedCount)})
		out.Set("upsertedCount", &object.Number{Value: float64(result.UpsertedCount)})
		if result.UpsertedID != nil {
			out.Set("upsertedId", dsl.FromPlain(result.UpsertedID))
		} else {
			out.Set("upsertedId", object.NullValue)
		}
		return chain(col, out), nil
	default:
		return object.NullValue, nil
	}
}

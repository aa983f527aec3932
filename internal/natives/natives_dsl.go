package natives

import (
	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
)

// dslNatives covers the document-store helper natives: stage
// builders (`match, project, sort, limit, skip, group, lookup, unwind,
// addFields, count`) and condition builders (`eq, ne, gt, gte, lt, lte,
// and, or`), each a thin wrapper over internal/dsl's pure lowering helpers.
func dslNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"match":     native("match", dslStageFromDoc("match")),
		"project":   native("project", dslStageFromDoc("project")),
		"sort":      native("sort", dslStageFromDoc("sort")),
		"group":     native("group", dslStageFromDoc("group")),
		"addFields": native("addFields", dslStageFromDoc("addFields")),
		"limit":     native("limit", dslLimit),
		"skip":      native("skip", dslSkip),
		"count":     native("count", dslCount),
		"lookup":    native("lookup", dslLookup),
		"unwind":    native("unwind", dslUnwind),
		"eq":        native("eq", dslComparator("eq", dsl.Eq)),
		"ne":        native("ne", dslComparator("ne", dsl.Ne)),
		"gt":        native("gt", dslComparator("gt", dsl.Gt)),
		"gte":       native("gte", dslComparator("gte", dsl.Gte)),
		"lt":        native("lt", dslComparator("lt", dsl.Lt)),
		"lte":       native("lte", dslComparator("lte", dsl.Lte)),
		"and":       native("and", dslCombine("and", "$and")),
		"or":        native("or", dslCombine("or", "$or")),
	}
}

func dslStageFromDoc(name string) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if err := arityExact(name, args, 1); err != nil {
			return nil, err
		}
		obj, ok := args[0].(*object.Object)
		if !ok {
			return nil, typeErr(name, "object", args[0])
		}
		plain, perr := dsl.ToPlain(obj)
		if perr != nil {
			return nil, perr
		}
		return dsl.FromPlain(dsl.Stage(name, plain)), nil
	}
}

func dslLimit(args []object.Value) (object.Value, error) {
	if err := arityExact("limit", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("limit", args[0])
	if err != nil {
		return nil, err
	}
	return dsl.FromPlain(dsl.Stage("limit", n)), nil
}

func dslSkip(args []object.Value) (object.Value, error) {
	if err := arityExact("skip", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("skip", args[0])
	if err != nil {
		return nil, err
	}
	return dsl.FromPlain(dsl.Stage("skip", n)), nil
}

func dslCount(args []object.Value) (object.Value, error) {
	if err := arityExact("count", args, 1); err != nil {
		return nil, err
	}
	name, err := asString("count", args[0])
	if err != nil {
		return nil, err
	}
	return dsl.FromPlain(dsl.CountStage(name)), nil
}

func dslLookup(args []object.Value) (object.Value, error) {
	if len(args) == 1 {
		obj, ok := args[0].(*object.Object)
		if !ok {
			return nil, typeErr("lookup", "object or (from, localField, foreignField, as)", args[0])
		}
		from, _ := stringField(obj, "from")
		localField, _ := stringField(obj, "localField")
		foreignField, _ := stringField(obj, "foreignField")
		as, _ := stringField(obj, "as")
		return dsl.FromPlain(dsl.LookupStage(from, localField, foreignField, as)), nil
	}
	if err := arityExact("lookup", args, 4); err != nil {
		return nil, err
	}
	from, err := asString("lookup", args[0])
	if err != nil {
		return nil, err
	}
	localField, err := asString("lookup", args[1])
	if err != nil {
		return nil, err
	}
	foreignField, err := asString("lookup", args[2])
	if err != nil {
		return nil, err
	}
	as, err := asString("lookup", args[3])
	if err != nil {
		return nil, err
	}
	return dsl.FromPlain(dsl.LookupStage(from, localField, foreignField, as)), nil
}

func stringField(obj *object.Object, key string) (string, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(*object.String)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func dslUnwind(args []object.Value) (object.Value, error) {
	if err := arityExact("unwind", args, 1); err != nil {
		return nil, err
	}
	if obj, ok := args[0].(*object.Object); ok {
		plain, perr := dsl.ToPlain(obj)
		if perr != nil {
			return nil, perr
		}
		return dsl.FromPlain(dsl.Stage("unwind", plain)), nil
	}
	path, err := asString("unwind", args[0])
	if err != nil {
		return nil, typeErr("unwind", "string or object", args[0])
	}
	return dsl.FromPlain(dsl.UnwindStage(path)), nil
}

func dslComparator(name string, fn func(field string, value any) map[string]any) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if err := arityExact(name, args, 2); err != nil {
			return nil, err
		}
		field, err := asString(name, args[0])
		if err != nil {
			return nil, err
		}
		plain, perr := dsl.ToPlain(args[1])
		if perr != nil {
			return nil, perr
		}
		return dsl.FromPlain(fn(field, plain)), nil
	}
}

func dslCombine(name, op string) func([]object.Value) (object.Value, error) {
	return func(args []object.Value) (object.Value, error) {
		if len(args) == 0 {
			return nil, arityErrorAtLeastOne(name)
		}
		var conds []any
		if len(args) == 1 {
			if arr, ok := args[0].(*object.Array); ok {
				for _, el := range arr.Elements {
					plain, perr := dsl.ToPlain(el)
					if perr != nil {
						return nil, perr
					}
					conds = append(conds, plain)
				}
				return dsl.FromPlain(dsl.Combine(op, conds)), nil
			}
		}
		for _, a := range args {
			plain, perr := dsl.ToPlain(a)
			if perr != nil {
				return nil, perr
			}
			conds = append(conds, plain)
		}
		return dsl.FromPlain(dsl.Combine(op, conds)), nil
	}
}

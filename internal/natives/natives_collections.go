package natives

import "github.com/datascript-lang/datascript/internal/object"

// collectionNatives covers `keys, values, entries, len,
// clone, deepClone`.
func collectionNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"keys":      native("keys", colKeys),
		"values":    native("values", colValues),
		"entries":   native("entries", colEntries),
		"len":       native("len", colLen),
		"clone":     native("clone", colClone),
		"deepClone": native("deepClone", colDeepClone),
	}
}

func colKeys(args []object.Value) (object.Value, error) {
	if err := arityExact("keys", args, 1); err != nil {
		return nil, err
	}
	obj, ok := args[0].(*object.Object)
	if !ok {
		return nil, typeErr("keys", "object", args[0])
	}
	elems := make([]object.Value, len(obj.Keys))
	for i, k := range obj.Keys {
		elems[i] = &object.String{Value: k}
	}
	return &object.Array{Elements: elems}, nil
}

func colValues(args []object.Value) (object.Value, error) {
	if err := arityExact("values", args, 1); err != nil {
		return nil, err
	}
	obj, ok := args[0].(*object.Object)
	if !ok {
		return nil, typeErr("values", "object", args[0])
	}
	elems := make([]object.Value, len(obj.Keys))
	for i, k := range obj.Keys {
		elems[i], _ = obj.Get(k)
	}
	return &object.Array{Elements: elems}, nil
}

func colEntries(args []object.Value) (object.Value, error) {
	if err := arityExact("entries", args, 1); err != nil {
		return nil, err
	}
	obj, ok := args[0].(*object.Object)
	if !ok {
		return nil, typeErr("entries", "object", args[0])
	}
	elems := make([]object.Value, len(obj.Keys))
	for i, k := range obj.Keys {
		v, _ := obj.Get(k)
		elems[i] = &object.Array{Elements: []object.Value{&object.String{Value: k}, v}}
	}
	return &object.Array{Elements: elems}, nil
}

func colLen(args []object.Value) (object.Value, error) {
	if err := arityExact("len", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Array:
		return &object.Number{Value: float64(len(v.Elements))}, nil
	case *object.Object:
		return &object.Number{Value: float64(len(v.Keys))}, nil
	case *object.String:
		return &object.Number{Value: float64(len([]rune(v.Value)))}, nil
	default:
		return nil, typeErr("len", "array, object, or string", args[0])
	}
}

// colClone makes a shallow copy: a fresh Array/Object shell over the same
// element Values.
func colClone(args []object.Value) (object.Value, error) {
	if err := arityExact("clone", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Array:
		elems := append([]object.Value(nil), v.Elements...)
		return &object.Array{Elements: elems}, nil
	case *object.Object:
		out := object.NewObject()
		out.SchemaName = v.SchemaName
		out.Class = v.Class
		for _, k := range v.Keys {
			val, _ := v.Get(k)
			out.Set(k, val)
		}
		return out, nil
	default:
		return v, nil
	}
}

// colDeepClone recursively copies Arrays/Objects, preserving reference
// cycles via an identity-keyed visited map so cycles terminate rather
// than recursing forever.
func colDeepClone(args []object.Value) (object.Value, error) {
	if err := arityExact("deepClone", args, 1); err != nil {
		return nil, err
	}
	return deepCloneValue(args[0], make(map[object.Value]object.Value)), nil
}

func deepCloneValue(v object.Value, seen map[object.Value]object.Value) object.Value {
	switch x := v.(type) {
	case *object.Array:
		if existing, ok := seen[x]; ok {
			return existing
		}
		clone := &object.Array{Elements: make([]object.Value, len(x.Elements))}
		seen[x] = clone
		for i, el := range x.Elements {
			clone.Elements[i] = deepCloneValue(el, seen)
		}
		return clone
	case *object.Object:
		if existing, ok := seen[x]; ok {
			return existing
		}
		clone := object.NewObject()
		clone.SchemaName = x.SchemaName
		clone.Class = x.Class
		seen[x] = clone
		for _, k := range x.Keys {
			val, _ := x.Get(k)
			clone.Set(k, deepCloneValue(val, seen))
		}
		return clone
	default:
		return v
	}
}

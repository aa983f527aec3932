package natives

import (
	"sort"

	"github.com/datascript-lang/datascript/internal/object"
)

// schemaNatives covers `schemaInfo`.
func schemaNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"schemaInfo": native("schemaInfo", nativeSchemaInfo),
	}
}

func nativeSchemaInfo(args []object.Value) (object.Value, error) {
	if err := arityExact("schemaInfo", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Class:
		return classInfo(v, "class"), nil
	case *object.Object:
		if v.Class != nil {
			return classInfo(v.Class, "instance"), nil
		}
		if v.SchemaName != "" {
			out := object.NewObject()
			out.Set("kind", &object.String{Value: "instance"})
			out.Set("name", &object.String{Value: v.SchemaName})
			out.Set("extends", object.NullValue)
			out.Set("fields", &object.Array{})
			out.Set("methods", &object.Array{})
			out.Set("constructor", &object.Array{})
			return out, nil
		}
		return nil, typeErr("schemaInfo", "class or tagged instance", args[0])
	default:
		return nil, typeErr("schemaInfo", "class or tagged instance", args[0])
	}
}

func classInfo(class *object.Class, kind string) *object.Object {
	out := object.NewObject()
	out.Set("kind", &object.String{Value: kind})
	out.Set("name", &object.String{Value: class.Name})
	if class.Base != nil {
		out.Set("extends", &object.String{Value: class.Base.Name})
	} else {
		out.Set("extends", object.NullValue)
	}

	fields := make([]object.Value, len(class.Fields))
	for i, f := range class.Fields {
		fo := object.NewObject()
		fo.Set("name", &object.String{Value: f.Name})
		fo.Set("required", object.BoolValue(f.Required))
		fo.Set("type", &object.String{Value: f.Annotation.String()})
		fo.Set("hasDefault", object.BoolValue(f.Initializer != nil))
		fields[i] = fo
	}
	out.Set("fields", &object.Array{Elements: fields})

	seen := make(map[string]bool)
	var names []string
	for c := class; c != nil; c = c.Base {
		for name := range c.Methods {
			if name == "save" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	methodNames := make([]object.Value, len(names))
	for i, name := range names {
		methodNames[i] = &object.String{Value: name}
	}
	out.Set("methods", &object.Array{Elements: methodNames})

	ctor := make([]object.Value, len(class.ConstructorParams))
	for i, p := range class.ConstructorParams {
		po := object.NewObject()
		po.Set("name", &object.String{Value: p.Name})
		po.Set("type", &object.String{Value: p.Annotation.String()})
		ctor[i] = po
	}
	out.Set("constructor", &object.Array{Elements: ctor})

	return out
}

package interp

import (
	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// BuildClass resolves a ClassDeclaration into a runtime *object.Class,
// merging in its base class (if any): fields/methods are inherited and
// may be overridden by name; constructor parameters start as a copy of
// the base's list, then each of this declaration's own params either
// replaces an existing same-named slot or is appended.
func BuildClass(n *ast.ClassDeclaration, env *Environment, ctx *Context) (*object.Class, error) {
	var base *object.Class
	if n.Base != "" {
		baseVal, err := env.LookupVar(n.Base)
		if err != nil {
			return nil, errors.New("SCHEMA-0001", map[string]any{"Base": n.Base})
		}
		bc, ok := baseVal.(*object.Class)
		if !ok {
			return nil, errors.New("SCHEMA-0001", map[string]any{"Base": n.Base})
		}
		base = bc
	}

	class := &object.Class{
		Name:           n.Name,
		Base:           base,
		Methods:        make(map[string]object.Method),
		DeclarationEnv: env,
	}

	// Fields: inherited order first, then this declaration's own (a
	// same-named field here shadows rather than duplicates the base one,
	// following the usual "override by name" pattern).
	fieldIndex := make(map[string]int)
	if base != nil {
		for _, f := range base.Fields {
			fieldIndex[f.Name] = len(class.Fields)
			class.Fields = append(class.Fields, f)
		}
		for name, m := range base.Methods {
			class.Methods[name] = m
		}
	}
	for _, f := range n.Fields {
		field := object.Field{
			Name:        f.Name,
			Annotation:  toObjectAnnotation(f.Annotation),
			Required:    f.Required,
			Initializer: f.Initializer,
		}
		if idx, ok := fieldIndex[f.Name]; ok {
			class.Fields[idx] = field
		} else {
			fieldIndex[f.Name] = len(class.Fields)
			class.Fields = append(class.Fields, field)
		}
	}
	for _, m := range n.Methods {
		class.Methods[m.Name] = object.Method{Name: m.Name, Params: toObjectParams(m.Params), Body: m.Body}
	}

	class.ConstructorParams = append([]object.Parameter(nil), constructorParamsOf(base)...)
	class.HasConstructor = base != nil && base.HasConstructor
	if n.HasConstructor {
		class.HasConstructor = true
		paramIndex := make(map[string]int, len(class.ConstructorParams))
		for i, p := range class.ConstructorParams {
			paramIndex[p.Name] = i
		}
		for _, p := range toObjectParams(n.ConstructorParams) {
			if idx, ok := paramIndex[p.Name]; ok {
				class.ConstructorParams[idx] = p
			} else {
				paramIndex[p.Name] = len(class.ConstructorParams)
				class.ConstructorParams = append(class.ConstructorParams, p)
			}
		}
	}

	return class, nil
}

// constructorParamsOf lets BuildClass read a possibly-nil base uniformly.
func constructorParamsOf(c *object.Class) []object.Parameter {
	if c == nil {
		return nil
	}
	return c.ConstructorParams
}

// Instantiate builds a fresh instance of class: a single object argument
// is a named-argument map keyed by field name; otherwise arguments are
// positional against class.ConstructorParams if present, else
// class.Fields in declaration order.
func Instantiate(class *object.Class, args []object.Value, ctx *Context) (object.Value, error) {
	instance := object.NewObject()
	instance.SchemaName = class.Name
	instance.Class = class

	ctorValues := make(map[string]object.Value)
	if len(args) == 1 {
		if named, ok := args[0].(*object.Object); ok {
			allowed := make(map[string]bool, len(class.Fields))
			for _, f := range class.Fields {
				allowed[f.Name] = true
			}
			for _, key := range named.Keys {
				if !allowed[key] {
					return nil, errors.New("UNDEF-0003", map[string]any{"Name": key, "Schema": class.Name})
				}
				v, _ := named.Get(key)
				ctorValues[key] = v
			}
			return buildInstance(class, instance, ctorValues, ctx)
		}
	}

	positionalParams := class.ConstructorParams
	if len(positionalParams) == 0 {
		for _, f := range class.Fields {
			positionalParams = append(positionalParams, object.Parameter{Name: f.Name, Annotation: f.Annotation})
		}
	}
	if len(args) > len(positionalParams) {
		return nil, errors.New("SCHEMA-0003", map[string]any{"Schema": class.Name})
	}
	for i, v := range args {
		ctorValues[positionalParams[i].Name] = v
	}
	return buildInstance(class, instance, ctorValues, ctx)
}

func buildInstance(class *object.Class, instance *object.Object, ctorValues map[string]object.Value, ctx *Context) (object.Value, error) {
	declEnv, _ := class.DeclarationEnv.(*Environment)
	ctorEnv := NewEnclosedEnvironment(declEnv)
	ctorEnv.DeclareVar("this", instance, false)
	for _, field := range class.Fields {
		if v, ok := ctorValues[field.Name]; ok {
			ctorEnv.DeclareVar(field.Name, v, false)
		} else {
			ctorEnv.DeclareVar(field.Name, object.NullValue, false)
		}
	}

	for _, field := range class.Fields {
		value, provided := ctorValues[field.Name]
		if !provided {
			if field.Initializer != nil {
				initExpr, ok := field.Initializer.(ast.Expression)
				if !ok {
					return nil, errors.NewSimple(errors.ClassType, "malformed field initializer")
				}
				v, err := EvalExpr(initExpr, ctorEnv, ctx)
				if err != nil {
					return nil, err
				}
				value = v
				provided = true
			}
		}
		if !provided {
			if field.Required {
				return nil, errors.New("SCHEMA-0002", map[string]any{"Field": field.Name, "Schema": class.Name})
			}
			value = object.NullValue
		}
		if field.Annotation != nil {
			if cerr := CheckType(value, field.Annotation, field.Required, "field '"+field.Name+"' of "+class.Name); cerr != nil {
				return nil, cerr
			}
		}
		instance.Set(field.Name, value)
	}

	bindMethods(class, instance, ctx)
	return instance, nil
}

// bindMethods attaches every method (own and inherited) as a native thunk
// over class/instance, plus a default `save` if none is defined anywhere
// in the chain.
func bindMethods(class *object.Class, instance *object.Object, ctx *Context) {
	seen := make(map[string]bool)
	for c := class; c != nil; c = c.Base {
		for name, method := range c.Methods {
			if seen[name] {
				continue
			}
			seen[name] = true
			m, cls := method, class
			instance.Set(name, &object.NativeFunction{
				Name: name,
				Fn: func(args []object.Value) (object.Value, error) {
					return invokeMethod(cls, m, instance, args, ctx)
				},
			})
		}
	}
	if !seen["save"] {
		cls := class
		instance.Set("save", &object.NativeFunction{
			Name: "save",
			Fn: func(args []object.Value) (object.Value, error) {
				return defaultSave(cls, instance)
			},
		})
	}
}

// invokeMethod runs a bound method: fields are declared as locals seeded
// from the instance, parameters shadow same-named fields, and on every
// exit path (return or fall-through) the field locals are written back
// into the instance.
func invokeMethod(class *object.Class, method object.Method, instance *object.Object, args []object.Value, ctx *Context) (object.Value, error) {
	declEnv, _ := class.DeclarationEnv.(*Environment)
	methodEnv := NewEnclosedEnvironment(declEnv)
	methodEnv.DeclareVar("this", instance, false)

	for _, fieldName := range class.FieldOrder() {
		v, _ := instance.Get(fieldName)
		methodEnv.DeclareVar(fieldName, v, false)
	}

	if len(args) > len(method.Params) {
		return nil, errors.New("ARITY-0003", map[string]any{"Function": method.Name})
	}
	for i, param := range method.Params {
		var value object.Value
		if i < len(args) {
			value = args[i]
		} else if param.Default != nil {
			defExpr, ok := param.Default.(ast.Expression)
			if !ok {
				return nil, errors.NewSimple(errors.ClassType, "malformed parameter default")
			}
			v, derr := EvalExpr(defExpr, methodEnv, ctx)
			if derr != nil {
				return nil, derr
			}
			value = v
		} else {
			return nil, errors.New("ARITY-0002", map[string]any{"Param": param.Name})
		}
		if param.Annotation != nil {
			if cerr := CheckType(value, param.Annotation, true, "parameter '"+param.Name+"'"); cerr != nil {
				return nil, cerr
			}
		}
		// A parameter colliding with a field name assigns into the field
		// local rather than redeclaring it.
		if methodEnv.HasOwnBinding(param.Name) {
			if aerr := methodEnv.AssignVar(param.Name, value); aerr != nil {
				return nil, aerr
			}
			continue
		}
		if derr := methodEnv.DeclareVar(param.Name, value, false); derr != nil {
			return nil, derr
		}
	}

	body, ok := method.Body.([]ast.Statement)
	if !ok {
		return nil, errors.NewSimple(errors.ClassType, "malformed method body")
	}

	var result object.Value = object.NullValue
	runErr := evalStatements(body, methodEnv, ctx)
	if runErr != nil {
		if ret, ok := runErr.(*ReturnSignal); ok {
			result = ret.Value
		} else if _, ok := runErr.(*BreakSignal); ok {
			if werr := writeBackFields(class, methodEnv, instance); werr != nil {
				return nil, werr
			}
			return nil, errors.New("CTRL-0002", map[string]any{"Keyword": "break"})
		} else if _, ok := runErr.(*ContinueSignal); ok {
			if werr := writeBackFields(class, methodEnv, instance); werr != nil {
				return nil, werr
			}
			return nil, errors.New("CTRL-0002", map[string]any{"Keyword": "continue"})
		} else {
			if werr := writeBackFields(class, methodEnv, instance); werr != nil {
				return nil, werr
			}
			return nil, runErr
		}
	}

	if werr := writeBackFields(class, methodEnv, instance); werr != nil {
		return nil, werr
	}
	return result, nil
}

// writeBackFields copies each field local back onto instance, re-checking
// its annotation; a failed re-check is fatal rather than silently keeping
// the instance's stale pre-call value.
func writeBackFields(class *object.Class, methodEnv *Environment, instance *object.Object) error {
	for _, field := range class.Fields {
		v, err := methodEnv.LookupVar(field.Name)
		if err != nil {
			continue
		}
		if field.Annotation != nil {
			if cerr := CheckType(v, field.Annotation, field.Required, "field '"+field.Name+"' of "+class.Name); cerr != nil {
				return cerr
			}
		}
		instance.Set(field.Name, v)
	}
	return nil
}

// defaultSave builds `{ __schema: class.Name, field: runtimeValToJSON(field)... }`
// using the DSL package's Plain conversion for "runtimeValToJSON".
func defaultSave(class *object.Class, instance *object.Object) (object.Value, error) {
	payload := object.NewObject()
	payload.Set("__schema", &object.String{Value: class.Name})
	for _, field := range class.Fields {
		v, _ := instance.Get(field.Name)
		plain, err := dsl.ToPlain(v)
		if err != nil {
			return nil, err
		}
		payload.Set(field.Name, dsl.FromPlain(plain))
	}
	return payload, nil
}

package interp

import (
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// CallValue invokes callee with args, dispatching on its dynamic type: a
// Class instantiates, a Function runs its body in a fresh enclosed scope,
// a NativeFunction runs directly, anything else is fatal (TYPE-0004).
func CallValue(callee object.Value, args []object.Value, ctx *Context) (object.Value, error) {
	switch fn := callee.(type) {
	case *object.Class:
		return Instantiate(fn, args, ctx)
	case *object.Function:
		return callFunction(fn, args, ctx)
	case *object.NativeFunction:
		v, err := fn.Fn(args)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, errors.New("TYPE-0004", map[string]any{"Type": string(callee.Kind())})
	}
}

// callFunction binds args (with defaults and type-checks) in a fresh scope
// parented on the closure environment, runs the body, and unwraps a
// ReturnSignal to its value (or Null on fall-through).
func callFunction(fn *object.Function, args []object.Value, ctx *Context) (object.Value, error) {
	closureEnv, ok := fn.Env.(*Environment)
	if !ok {
		closureEnv = ctx.Global
	}
	callEnv := NewEnclosedEnvironment(closureEnv)

	if len(args) > len(fn.Params) {
		return nil, errors.New("ARITY-0003", map[string]any{"Function": fn.Name})
	}

	for i, param := range fn.Params {
		var value object.Value
		if i < len(args) {
			value = args[i]
		} else if param.Default != nil {
			defExpr, ok := param.Default.(ast.Expression)
			if !ok {
				return nil, errors.NewSimple(errors.ClassType, "malformed parameter default")
			}
			v, derr := EvalExpr(defExpr, callEnv, ctx)
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
		if derr := callEnv.DeclareVar(param.Name, value, false); derr != nil {
			return nil, derr
		}
	}

	body, ok := fn.Body.([]ast.Statement)
	if !ok {
		return nil, errors.NewSimple(errors.ClassType, "malformed function body")
	}

	if err := evalStatements(body, callEnv, ctx); err != nil {
		if ret, ok := err.(*ReturnSignal); ok {
			return ret.Value, nil
		}
		return nil, err
	}
	return object.NullValue, nil
}

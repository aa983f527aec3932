package interp

import (
	"fmt"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// EvalExpr dispatches on the dynamic AST node type and returns its Value.
// The returned error is either a fatal *errors.ScriptError or one of this
// package's control signals (*ThrownSignal in practice, for expressions —
// Return/Break/Continue only ever originate from statements).
func EvalExpr(node ast.Expression, env *Environment, ctx *Context) (object.Value, error) {
	switch n := node.(type) {
	case *ast.NumericLiteral:
		return &object.Number{Value: n.Value}, nil
	case *ast.StringLiteral:
		return &object.String{Value: n.Value}, nil
	case *ast.BooleanLiteral:
		return object.BoolValue(n.Value), nil
	case *ast.NullLiteral:
		return object.NullValue, nil
	case *ast.Identifier:
		v, err := env.LookupVar(n.Name)
		if err != nil {
			return nil, err
		}
		return v, nil
	case *ast.ObjectLiteral:
		return evalObjectLiteral(n, env, ctx)
	case *ast.ArrayLiteral:
		return evalArrayLiteral(n, env, ctx)
	case *ast.AssignmentExpr:
		return evalAssignment(n, env, ctx)
	case *ast.BinaryExpr:
		return evalBinary(n, env, ctx)
	case *ast.UnaryExpr:
		return evalUnary(n, env, ctx)
	case *ast.AwaitExpr:
		return evalAwait(n, env, ctx)
	case *ast.CallExpr:
		return evalCall(n, env, ctx)
	case *ast.MemberExpr:
		return evalMember(n, env, ctx)
	case *ast.MongoQueryExpr:
		return evalQueryExpr(n, env, ctx)
	case *ast.MongoOperationExpr:
		return evalMongoOperation(n, env, ctx)
	case *ast.MongoUpdateExpr:
		return evalMongoUpdate(n, env, ctx)
	default:
		return nil, errors.NewSimple(errors.ClassType, fmt.Sprintf("unsupported expression node %T", node))
	}
}

func evalObjectLiteral(n *ast.ObjectLiteral, env *Environment, ctx *Context) (object.Value, error) {
	obj := object.NewObject()
	for _, prop := range n.Properties {
		if prop.Value == nil {
			v, err := env.LookupVar(prop.Key)
			if err != nil {
				return nil, err
			}
			obj.Set(prop.Key, v)
			continue
		}
		v, err := EvalExpr(prop.Value, env, ctx)
		if err != nil {
			return nil, err
		}
		obj.Set(prop.Key, v)
	}
	return obj, nil
}

func evalArrayLiteral(n *ast.ArrayLiteral, env *Environment, ctx *Context) (object.Value, error) {
	elems := make([]object.Value, len(n.Elements))
	for i, el := range n.Elements {
		v, err := EvalExpr(el, env, ctx)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &object.Array{Elements: elems}, nil
}

func evalAssignment(n *ast.AssignmentExpr, env *Environment, ctx *Context) (object.Value, error) {
	val, err := EvalExpr(n.Value, env, ctx)
	if err != nil {
		return nil, err
	}
	if aerr := env.AssignVar(n.Target.Name, val); aerr != nil {
		return nil, aerr
	}
	return val, nil
}

func evalUnary(n *ast.UnaryExpr, env *Environment, ctx *Context) (object.Value, error) {
	operand, err := EvalExpr(n.Operand, env, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "!":
		return object.BoolValue(!object.Truthy(operand)), nil
	case "-":
		num, ok := operand.(*object.Number)
		if !ok {
			return nil, errors.New("TYPE-0003", map[string]any{"Type": string(operand.Kind())})
		}
		return &object.Number{Value: -num.Value}, nil
	default:
		return nil, errors.New("OP-0002", map[string]any{"Operator": n.Operator})
	}
}

func evalAwait(n *ast.AwaitExpr, env *Environment, ctx *Context) (object.Value, error) {
	v, err := EvalExpr(n.Value, env, ctx)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*object.Promise)
	if !ok {
		return v, nil
	}
	if p.Err != nil {
		return nil, AsThrown(p.Err)
	}
	return p.Value, nil
}

func evalBinary(n *ast.BinaryExpr, env *Environment, ctx *Context) (object.Value, error) {
	if n.Operator == "&&" || n.Operator == "||" {
		left, err := EvalExpr(n.Left, env, ctx)
		if err != nil {
			return nil, err
		}
		leftTruthy := object.Truthy(left)
		if n.Operator == "&&" && !leftTruthy {
			return object.False, nil
		}
		if n.Operator == "||" && leftTruthy {
			return object.True, nil
		}
		right, err := EvalExpr(n.Right, env, ctx)
		if err != nil {
			return nil, err
		}
		return object.BoolValue(object.Truthy(right)), nil
	}

	left, err := EvalExpr(n.Left, env, ctx)
	if err != nil {
		return nil, err
	}
	right, err := EvalExpr(n.Right, env, ctx)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "==":
		return object.BoolValue(object.Equal(left, right)), nil
	case "!=":
		return object.BoolValue(!object.Equal(left, right)), nil
	case "<", "<=", ">", ">=":
		return evalRelational(n.Operator, left, right)
	case "+":
		return evalPlus(left, right)
	case "-", "*", "/", "%":
		return evalArithmetic(n.Operator, left, right)
	default:
		return nil, errors.New("OP-0002", map[string]any{"Operator": n.Operator})
	}
}

func evalRelational(op string, left, right object.Value) (object.Value, error) {
	if ln, ok := left.(*object.Number); ok {
		rn, ok := right.(*object.Number)
		if !ok {
			return nil, typeMismatchErr(op, left, right)
		}
		return object.BoolValue(compareNumbers(op, ln.Value, rn.Value)), nil
	}
	if ls, ok := left.(*object.String); ok {
		rs, ok := right.(*object.String)
		if !ok {
			return nil, typeMismatchErr(op, left, right)
		}
		return object.BoolValue(compareStrings(op, ls.Value, rs.Value)), nil
	}
	return nil, typeMismatchErr(op, left, right)
}

func compareNumbers(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}

func compareStrings(op string, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}

func typeMismatchErr(op string, left, right object.Value) *errors.ScriptError {
	return errors.New("TYPE-0002", map[string]any{
		"LeftType": string(left.Kind()), "Operator": op, "RightType": string(right.Kind()),
	})
}

func evalPlus(left, right object.Value) (object.Value, error) {
	_, leftStr := left.(*object.String)
	_, rightStr := right.(*object.String)
	if leftStr || rightStr {
		return &object.String{Value: stringify(left) + stringify(right)}, nil
	}
	ln, ok := left.(*object.Number)
	if !ok {
		return nil, typeMismatchErr("+", left, right)
	}
	rn, ok := right.(*object.Number)
	if !ok {
		return nil, typeMismatchErr("+", left, right)
	}
	return &object.Number{Value: ln.Value + rn.Value}, nil
}

func stringify(v object.Value) string { return v.Inspect() }

func evalArithmetic(op string, left, right object.Value) (object.Value, error) {
	ln, ok := left.(*object.Number)
	if !ok {
		return nil, typeMismatchErr(op, left, right)
	}
	rn, ok := right.(*object.Number)
	if !ok {
		return nil, typeMismatchErr(op, left, right)
	}
	switch op {
	case "-":
		return &object.Number{Value: ln.Value - rn.Value}, nil
	case "*":
		return &object.Number{Value: ln.Value * rn.Value}, nil
	case "/":
		if rn.Value == 0 {
			return nil, errors.New("OP-0001", nil)
		}
		return &object.Number{Value: ln.Value / rn.Value}, nil
	case "%":
		if rn.Value == 0 {
			return nil, errors.New("OP-0001", nil)
		}
		return &object.Number{Value: mod(ln.Value, rn.Value)}, nil
	default:
		return nil, errors.New("OP-0002", map[string]any{"Operator": op})
	}
}

func mod(a, b float64) float64 {
	m := a - b*float64(int64(a/b))
	return m
}

func evalCall(n *ast.CallExpr, env *Environment, ctx *Context) (object.Value, error) {
	callee, err := EvalExpr(n.Callee, env, ctx)
	if err != nil {
		return nil, err
	}
	args := make([]object.Value, len(n.Args))
	for i, a := range n.Args {
		v, aerr := EvalExpr(a, env, ctx)
		if aerr != nil {
			return nil, aerr
		}
		args[i] = v
	}
	return CallValue(callee, args, ctx)
}

func evalMember(n *ast.MemberExpr, env *Environment, ctx *Context) (object.Value, error) {
	objVal, err := EvalExpr(n.Object, env, ctx)
	if err != nil {
		return nil, err
	}

	var propName string
	var computedIndex object.Value
	if n.Computed {
		idx, ierr := EvalExpr(n.Property, env, ctx)
		if ierr != nil {
			return nil, ierr
		}
		computedIndex = idx
		if s, ok := idx.(*object.String); ok {
			propName = s.Value
		}
	} else {
		propName = n.Property.(*ast.Identifier).Name
	}

	switch target := objVal.(type) {
	case *object.Array:
		return evalArrayMember(target, n.Computed, propName, computedIndex)
	case *object.Object:
		v, ok := target.Get(propName)
		if !ok {
			return object.NullValue, nil
		}
		return v, nil
	case *dsl.DatabaseHandleValue:
		return ctx.derefDatabaseProperty(target, propName)
	case *dsl.CollectionHandleValue:
		return object.NullValue, nil
	case *dsl.OperationChainValue:
		return evalChainMember(target, propName)
	default:
		return object.NullValue, nil
	}
}

func evalArrayMember(arr *object.Array, computed bool, propName string, computedIndex object.Value) (object.Value, error) {
	if computed {
		if n, ok := computedIndex.(*object.Number); ok {
			idx := int(n.Value)
			if idx < 0 || idx >= len(arr.Elements) {
				return nil, errors.New("INDEX-0001", map[string]any{"Index": idx, "Length": len(arr.Elements)})
			}
			return arr.Elements[idx], nil
		}
	}
	if propName == "length" {
		return &object.Number{Value: float64(len(arr.Elements))}, nil
	}
	return object.NullValue, nil
}

func (ctx *Context) derefDatabaseProperty(db *dsl.DatabaseHandleValue, name string) (object.Value, error) {
	if h, ok := db.Collections[name]; ok {
		return h, nil
	}
	handle, err := db.Handle.Collection(name)
	if err != nil {
		return nil, errors.NewSimple(errors.ClassDSL, err.Error())
	}
	ch := &dsl.CollectionHandleValue{Handle: handle}
	if db.Collections == nil {
		db.Collections = make(map[string]*dsl.CollectionHandleValue)
	}
	db.Collections[name] = ch
	return ch, nil
}

func evalQueryExpr(n *ast.MongoQueryExpr, env *Environment, ctx *Context) (object.Value, error) {
	conditions := make([]dsl.Condition, len(n.Conditions))
	for i, c := range n.Conditions {
		v, err := EvalExpr(c.Value, env, ctx)
		if err != nil {
			return nil, err
		}
		plain, perr := dsl.ToPlain(v)
		if perr != nil {
			return nil, perr
		}
		conditions[i] = dsl.Condition{Field: c.Field, Operator: c.Operator, Value: plain}
	}
	doc := dsl.BuildQuery(conditions)
	return dsl.FromPlain(doc), nil
}

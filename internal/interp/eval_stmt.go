package interp

import (
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// EvalProgram runs every top-level statement of prog in env, the module or
// script root scope.
func EvalProgram(prog *ast.Program, env *Environment, ctx *Context) *errors.ScriptError {
	_, serr := EvalProgramResult(prog, env, ctx)
	return serr
}

// EvalProgramResult runs prog like EvalProgram, additionally returning the
// value of a trailing expression statement (or object.NullValue for any
// other last statement kind), for hosts that echo a result — a REPL, most
// notably.
func EvalProgramResult(prog *ast.Program, env *Environment, ctx *Context) (object.Value, *errors.ScriptError) {
	result, err := evalStatementsResult(prog.Statements, env, ctx)
	if err != nil {
		if se, ok := err.(*errors.ScriptError); ok {
			return nil, se
		}
		// A Return/Break/Continue/Thrown signal escaping to top level is a
		// host fault: nothing at this level could have intercepted it.
		switch err.(type) {
		case *ReturnSignal:
			return nil, errors.New("CTRL-0001", nil)
		case *BreakSignal:
			return nil, errors.New("CTRL-0002", map[string]any{"Keyword": "break"})
		case *ContinueSignal:
			return nil, errors.New("CTRL-0002", map[string]any{"Keyword": "continue"})
		case *ThrownSignal:
			return nil, errors.NewSimple(errors.ClassThrown, err.Error())
		default:
			return nil, errors.NewSimple(errors.ClassType, err.Error())
		}
	}
	return result, nil
}

// evalStatementsResult runs stmts in order, like evalStatements, but
// additionally captures the value of a final *ast.ExpressionStatement.
func evalStatementsResult(stmts []ast.Statement, env *Environment, ctx *Context) (object.Value, error) {
	result := object.Value(object.NullValue)
	for i, stmt := range stmts {
		if i == len(stmts)-1 {
			if exprStmt, ok := stmt.(*ast.ExpressionStatement); ok {
				v, err := EvalExpr(exprStmt.Expr, env, ctx)
				if err != nil {
					return nil, err
				}
				result = v
				continue
			}
		}
		if err := evalStatement(stmt, env, ctx); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// evalStatements runs stmts in order in env, stopping at the first signal or
// error.
func evalStatements(stmts []ast.Statement, env *Environment, ctx *Context) error {
	for _, stmt := range stmts {
		if err := evalStatement(stmt, env, ctx); err != nil {
			return err
		}
	}
	return nil
}

// evalBlock runs a block's statements in a freshly enclosed scope.
func evalBlock(stmts []ast.Statement, env *Environment, ctx *Context) error {
	return evalStatements(stmts, NewEnclosedEnvironment(env), ctx)
}

func evalStatement(node ast.Statement, env *Environment, ctx *Context) error {
	switch n := node.(type) {
	case *ast.VarDeclaration:
		return evalVarDeclaration(n, env, ctx)
	case *ast.FunctionDeclaration:
		fn := &object.Function{Name: n.Name, Params: toObjectParams(n.Params), Body: n.Body, Env: env}
		return env.DeclareVar(n.Name, fn, false)
	case *ast.ClassDeclaration:
		class, err := BuildClass(n, env, ctx)
		if err != nil {
			return err
		}
		return env.DeclareVar(n.Name, class, false)
	case *ast.IfStatement:
		return evalIf(n, env, ctx)
	case *ast.WhileStatement:
		return evalWhile(n, env, ctx)
	case *ast.ReturnStatement:
		var val object.Value = object.NullValue
		if n.Value != nil {
			v, err := EvalExpr(n.Value, env, ctx)
			if err != nil {
				return err
			}
			val = v
		}
		return &ReturnSignal{Value: val}
	case *ast.BreakStatement:
		return &BreakSignal{}
	case *ast.ContinueStatement:
		return &ContinueSignal{}
	case *ast.TryCatchStatement:
		return evalTryCatch(n, env, ctx)
	case *ast.ThrowStatement:
		v, err := EvalExpr(n.Value, env, ctx)
		if err != nil {
			return err
		}
		return &ThrownSignal{Value: v}
	case *ast.ImportStatement:
		return evalImportStatement(n, env, ctx)
	case *ast.ExportDeclaration:
		return evalExportDeclaration(n, env, ctx)
	case *ast.DatabaseStatement:
		return evalDatabaseStatement(n, env, ctx)
	case *ast.CollectionStatement:
		return evalCollectionStatement(n, env, ctx)
	case *ast.UseCollectionStatement:
		return evalUseCollectionStatement(n, env, ctx)
	case *ast.UsingStatement:
		return evalUsingStatement(n, env, ctx)
	case *ast.ExpressionStatement:
		_, err := EvalExpr(n.Expr, env, ctx)
		return err
	default:
		return errors.NewSimple(errors.ClassType, "unsupported statement node")
	}
}

func evalVarDeclaration(n *ast.VarDeclaration, env *Environment, ctx *Context) error {
	var val object.Value = object.NullValue
	if n.Value != nil {
		v, err := EvalExpr(n.Value, env, ctx)
		if err != nil {
			return err
		}
		val = v
	}
	if n.Annotation != nil {
		ann := toObjectAnnotation(n.Annotation)
		if cerr := CheckType(val, ann, false, "variable '"+n.Name+"'"); cerr != nil {
			return cerr
		}
	}
	return env.DeclareVar(n.Name, val, n.Const)
}

func evalIf(n *ast.IfStatement, env *Environment, ctx *Context) error {
	cond, err := EvalExpr(n.Condition, env, ctx)
	if err != nil {
		return err
	}
	if object.Truthy(cond) {
		return evalBlock(n.Then, env, ctx)
	}
	if len(n.Else) > 0 {
		return evalStatements(n.Else, env, ctx)
	}
	return nil
}

func evalWhile(n *ast.WhileStatement, env *Environment, ctx *Context) error {
	for {
		cond, err := EvalExpr(n.Condition, env, ctx)
		if err != nil {
			return err
		}
		if !object.Truthy(cond) {
			return nil
		}
		err = evalBlock(n.Body, env, ctx)
		if err != nil {
			if _, ok := err.(*BreakSignal); ok {
				return nil
			}
			if _, ok := err.(*ContinueSignal); ok {
				continue
			}
			return err
		}
	}
}

func evalTryCatch(n *ast.TryCatchStatement, env *Environment, ctx *Context) error {
	err := evalBlock(n.Try, env, ctx)
	if err == nil {
		return nil
	}
	thrown, ok := err.(*ThrownSignal)
	if !ok {
		return err
	}
	catchEnv := NewEnclosedEnvironment(env)
	if n.CatchParam != "" {
		if derr := catchEnv.DeclareVar(n.CatchParam, thrown.Value, false); derr != nil {
			return derr
		}
	}
	return evalStatements(n.Catch, catchEnv, ctx)
}

func toObjectParams(params []ast.Parameter) []object.Parameter {
	out := make([]object.Parameter, len(params))
	for i, p := range params {
		out[i] = object.Parameter{Name: p.Name, Annotation: toObjectAnnotation(p.Annotation), Default: p.Default}
	}
	return out
}

func toObjectAnnotation(ann *ast.TypeAnnotation) *object.TypeAnnotation {
	if ann == nil {
		return nil
	}
	return &object.TypeAnnotation{Base: ann.Base, ArrayDepth: ann.ArrayDepth}
}

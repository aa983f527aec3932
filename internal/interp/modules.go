package interp

import (
	"os"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
	"github.com/datascript-lang/datascript/pkg/datascript/parser"
)

func readSourceFile(path string) ([]byte, error) { return os.ReadFile(path) }

// ParseFile parses the source file at path into a Program, used both as the
// top-level entry point and as the parseFn passed to Context.GetModuleProgram.
func ParseFile(path string, readFile func(string) ([]byte, error)) (*ast.Program, *errors.ScriptError) {
	src, err := readFile(path)
	if err != nil {
		return nil, errors.New("IMPORT-0003", map[string]any{"Path": path, "GoError": err.Error()})
	}
	return parser.ParseNamed(string(src), path)
}

// evalImportStatement implements `import "specifier" [as name] [exposing
// {a,b}] [default name];` on top of Context's module-loader primitives.
func evalImportStatement(n *ast.ImportStatement, env *Environment, ctx *Context) error {
	fromDir := ctx.BaseDir
	if len(ctx.importStack) > 0 {
		fromDir = ModuleDir(ctx.importStack[len(ctx.importStack)-1])
	}
	path := ctx.ResolveImportPath(n.Specifier, fromDir)

	prog, perr := ctx.GetModuleProgram(path, func(p string) (*ast.Program, *errors.ScriptError) {
		return ParseFile(p, readSourceFile)
	})
	if perr != nil {
		return perr
	}

	ns, eerr := ctx.EvalImport(path, prog, func(p *ast.Program, modEnv *Environment) *errors.ScriptError {
		return EvalProgram(p, modEnv, ctx)
	})
	if eerr != nil {
		return eerr
	}

	bind := func(name string, value object.Value) error {
		if env.HasOwnBinding(name) {
			return errors.New("IMPORT-0004", map[string]any{"Name": name})
		}
		return env.DeclareVar(name, value, true)
	}

	if n.As != "" {
		if err := bind(n.As, ns); err != nil {
			return err
		}
	}
	for _, name := range n.Exposing {
		v, ok := ns.Get(name)
		if !ok {
			return errors.New("UNDEF-0002", map[string]any{"Name": name})
		}
		if err := bind(name, v); err != nil {
			return err
		}
	}
	if n.DefaultAs != "" {
		v, ok := ns.Get("default")
		if !ok {
			return errors.New("UNDEF-0002", map[string]any{"Name": "default"})
		}
		if err := bind(n.DefaultAs, v); err != nil {
			return err
		}
	}
	return nil
}

// evalExportDeclaration implements `export <decl>;`, `export default
// <expr|decl>;`, and `export { a, b };`, recording each exported name in the
// enclosing module environment's export table.
func evalExportDeclaration(n *ast.ExportDeclaration, env *Environment, ctx *Context) error {
	if n.Default {
		if n.DefaultExpr != nil {
			v, err := EvalExpr(n.DefaultExpr, env, ctx)
			if err != nil {
				return err
			}
			env.SetModuleExport("default", v)
			return nil
		}
		if n.Decl != nil {
			if err := evalStatement(n.Decl, env, ctx); err != nil {
				return err
			}
			name := declaredName(n.Decl)
			v, err := env.LookupVar(name)
			if err != nil {
				return err
			}
			env.SetModuleExport("default", v)
			return nil
		}
		return errors.NewSimple(errors.ClassType, "malformed export default")
	}

	if n.Decl != nil {
		if err := evalStatement(n.Decl, env, ctx); err != nil {
			return err
		}
		name := declaredName(n.Decl)
		v, err := env.LookupVar(name)
		if err != nil {
			return err
		}
		env.SetModuleExport(name, v)
		return nil
	}

	for _, name := range n.Names {
		v, err := env.LookupVar(name)
		if err != nil {
			return err
		}
		env.SetModuleExport(name, v)
	}
	return nil
}

func declaredName(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case *ast.VarDeclaration:
		return s.Name
	case *ast.FunctionDeclaration:
		return s.Name
	case *ast.ClassDeclaration:
		return s.Name
	default:
		return ""
	}
}

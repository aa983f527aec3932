package parser

import (
	"testing"

	"github.com/datascript-lang/datascript/pkg/datascript/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := ParseString(src)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return prog
}

func TestParseVarDeclaration(t *testing.T) {
	prog := mustParse(t, `declare x = 1 + 2;`)
	if len(prog.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.VarDeclaration)
	if !ok {
		t.Fatalf("got %T, want *ast.VarDeclaration", prog.Statements[0])
	}
	if decl.Name != "x" || decl.Const {
		t.Errorf("got %+v", decl)
	}
	bin, ok := decl.Value.(*ast.BinaryExpr)
	if !ok || bin.Operator != "+" {
		t.Errorf("got %+v", decl.Value)
	}
}

func TestParseConstRequiresInitializer(t *testing.T) {
	_, err := ParseString(`declare const x;`)
	if err == nil {
		t.Fatal("expected error for const without initializer")
	}
	if err.Code != "PARSE-0007" {
		t.Errorf("got code %s, want PARSE-0007", err.Code)
	}
}

func TestParseTypeAnnotation(t *testing.T) {
	prog := mustParse(t, `declare x: number[] = [1,2];`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	if decl.Annotation.Base != "number" || decl.Annotation.ArrayDepth != 1 {
		t.Errorf("got %+v", decl.Annotation)
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog := mustParse(t, `func add(a: number, b: number = 2) { return a + b; }`)
	fn, ok := prog.Statements[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 {
		t.Fatalf("got %+v", fn)
	}
	if fn.Params[1].Default == nil {
		t.Errorf("expected default on second param")
	}
}

func TestParseClassDeclarationFieldsAndMethods(t *testing.T) {
	src := `
	class Point extends Shape create(x, y) {
		required x: number;
		y: number = 0;
		dist() { return x; }
	}`
	prog := mustParse(t, src)
	cl, ok := prog.Statements[0].(*ast.ClassDeclaration)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if cl.Name != "Point" || cl.Base != "Shape" || !cl.HasConstructor {
		t.Fatalf("got %+v", cl)
	}
	if len(cl.Fields) != 2 {
		t.Fatalf("got %d fields", len(cl.Fields))
	}
	if !cl.Fields[0].Required {
		t.Errorf("field x should be required (explicit)")
	}
	if cl.Fields[1].Required {
		t.Errorf("field y should not be required (has initializer)")
	}
	if len(cl.Methods) != 1 || cl.Methods[0].Name != "dist" {
		t.Errorf("got methods %+v", cl.Methods)
	}
}

func TestParseIfElseIfChain(t *testing.T) {
	prog := mustParse(t, `if (x) { y(); } else if (z) { w(); } else { v(); }`)
	ifs, ok := prog.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if len(ifs.Else) != 1 {
		t.Fatalf("expected a single nested if in else, got %d stmts", len(ifs.Else))
	}
	if _, ok := ifs.Else[0].(*ast.IfStatement); !ok {
		t.Errorf("got %T, want nested *ast.IfStatement", ifs.Else[0])
	}
}

func TestParseTryCatchMandatory(t *testing.T) {
	_, err := ParseString(`try { x(); }`)
	if err == nil || err.Code != "PARSE-0005" {
		t.Fatalf("expected PARSE-0005, got %v", err)
	}
}

func TestParseTryCatchWithParam(t *testing.T) {
	prog := mustParse(t, `try { x(); } catch (e) { throw e; }`)
	tc, ok := prog.Statements[0].(*ast.TryCatchStatement)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if tc.CatchParam != "e" {
		t.Errorf("got catch param %q", tc.CatchParam)
	}
}

func TestParseImportStatement(t *testing.T) {
	prog := mustParse(t, `import "./util" as u exposing { a, b } default main;`)
	imp, ok := prog.Statements[0].(*ast.ImportStatement)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if imp.As != "u" || imp.DefaultAs != "main" || len(imp.Exposing) != 2 {
		t.Errorf("got %+v", imp)
	}
}

func TestParseExportDefaultExpr(t *testing.T) {
	prog := mustParse(t, `export default 42;`)
	exp, ok := prog.Statements[0].(*ast.ExportDeclaration)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if !exp.Default || exp.DefaultExpr == nil {
		t.Errorf("got %+v", exp)
	}
}

func TestParseExportNameList(t *testing.T) {
	prog := mustParse(t, `export { a, b };`)
	exp := prog.Statements[0].(*ast.ExportDeclaration)
	if len(exp.Names) != 2 {
		t.Errorf("got %+v", exp.Names)
	}
}

func TestParseDatabaseCollectionUse(t *testing.T) {
	prog := mustParse(t, `
		database d = connect("mongodb://x");
		collection users;
		use collection users with { limit: 10 };
	`)
	if len(prog.Statements) != 3 {
		t.Fatalf("got %d statements", len(prog.Statements))
	}
	if _, ok := prog.Statements[0].(*ast.DatabaseStatement); !ok {
		t.Errorf("stmt0 got %T", prog.Statements[0])
	}
	if _, ok := prog.Statements[1].(*ast.CollectionStatement); !ok {
		t.Errorf("stmt1 got %T", prog.Statements[1])
	}
	use, ok := prog.Statements[2].(*ast.UseCollectionStatement)
	if !ok {
		t.Fatalf("stmt2 got %T", prog.Statements[2])
	}
	if use.Options == nil {
		t.Errorf("expected options on use collection")
	}
}

func TestParseUsingMongoBlock(t *testing.T) {
	prog := mustParse(t, `
		using mongo from "mongodb://x" database "mydb" as store with { timeout: 5 } {
			collection users;
		}
	`)
	u, ok := prog.Statements[0].(*ast.UsingStatement)
	if !ok {
		t.Fatalf("got %T", prog.Statements[0])
	}
	if u.Alias != "store" || u.Database == nil || u.Options == nil {
		t.Errorf("got %+v", u)
	}
	if len(u.Body) != 1 {
		t.Errorf("got %d body statements", len(u.Body))
	}
}

func TestParseQueryExpr(t *testing.T) {
	prog := mustParse(t, `declare q = query { age >= 18, name == "al" };`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	q, ok := decl.Value.(*ast.MongoQueryExpr)
	if !ok {
		t.Fatalf("got %T", decl.Value)
	}
	if len(q.Conditions) != 2 || q.Conditions[0].Operator != ">=" {
		t.Errorf("got %+v", q.Conditions)
	}
}

func TestParseMongoOperators(t *testing.T) {
	tests := []struct {
		src string
		op  string
	}{
		{`users <- { name: "a" };`, "<-"},
		{`users ! query { id == 1 };`, "!"},
		{`users !! query { id == 1 };`, "!!"},
		{`users ? query { id == 1 };`, "?"},
		{`users ?? query { id == 1 };`, "??"},
		{`users |> [stage1, stage2];`, "|>"},
	}
	for _, tt := range tests {
		prog := mustParse(t, tt.src)
		stmt, ok := prog.Statements[0].(*ast.ExpressionStatement)
		if !ok {
			t.Fatalf("%s: got %T", tt.src, prog.Statements[0])
		}
		op, ok := stmt.Expr.(*ast.MongoOperationExpr)
		if !ok {
			t.Fatalf("%s: got %T", tt.src, stmt.Expr)
		}
		if op.Operator != tt.op {
			t.Errorf("%s: got operator %q, want %q", tt.src, op.Operator, tt.op)
		}
	}
}

func TestParseMongoUpdate(t *testing.T) {
	prog := mustParse(t, `users update many where query { age < 18 } set { status: "minor" } with { upsert: true };`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	upd, ok := stmt.Expr.(*ast.MongoUpdateExpr)
	if !ok {
		t.Fatalf("got %T", stmt.Expr)
	}
	if !upd.Many || upd.Filter == nil || upd.Update == nil || upd.Options == nil {
		t.Errorf("got %+v", upd)
	}
}

func TestParseQuestionOutsideDSLIsFatal(t *testing.T) {
	_, err := ParseString(`declare x = ?;`)
	if err == nil || err.Code != "PARSE-0006" {
		t.Fatalf("expected PARSE-0006, got %v", err)
	}
}

func TestParsePrecedenceArithmeticBeforeRelational(t *testing.T) {
	prog := mustParse(t, `declare x = 1 + 2 * 3 < 10 && true;`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	top, ok := decl.Value.(*ast.BinaryExpr)
	if !ok || top.Operator != "&&" {
		t.Fatalf("got %+v", decl.Value)
	}
	lt, ok := top.Left.(*ast.BinaryExpr)
	if !ok || lt.Operator != "<" {
		t.Fatalf("got %+v", top.Left)
	}
}

func TestParseMemberAndCallChain(t *testing.T) {
	prog := mustParse(t, `declare x = a.b[0].c(1, 2);`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	call, ok := decl.Value.(*ast.CallExpr)
	if !ok {
		t.Fatalf("got %T", decl.Value)
	}
	member, ok := call.Callee.(*ast.MemberExpr)
	if !ok || member.Computed {
		t.Fatalf("got %+v", call.Callee)
	}
}

func TestParseObjectLiteralShorthandAndKeyOrder(t *testing.T) {
	prog := mustParse(t, `declare o = { b: 1, a: 2, c };`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	obj, ok := decl.Value.(*ast.ObjectLiteral)
	if !ok {
		t.Fatalf("got %T", decl.Value)
	}
	want := []string{"b", "a", "c"}
	for i, k := range want {
		if obj.Properties[i].Key != k {
			t.Errorf("property %d: got %q, want %q", i, obj.Properties[i].Key, k)
		}
	}
	if obj.Properties[2].Value != nil {
		t.Errorf("expected shorthand property to have nil value")
	}
}

func TestParseAwaitAndUnary(t *testing.T) {
	prog := mustParse(t, `declare x = await !ready();`)
	decl := prog.Statements[0].(*ast.VarDeclaration)
	aw, ok := decl.Value.(*ast.AwaitExpr)
	if !ok {
		t.Fatalf("got %T", decl.Value)
	}
	if _, ok := aw.Value.(*ast.UnaryExpr); !ok {
		t.Errorf("got %T", aw.Value)
	}
}

func TestParseAssignmentRequiresIdentifierTarget(t *testing.T) {
	_, err := ParseString(`1 = 2;`)
	if err == nil {
		t.Fatal("expected a parse error assigning to a non-identifier")
	}
}

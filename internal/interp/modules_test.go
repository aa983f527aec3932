package interp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/datascript-lang/datascript/internal/object"
)

// runFile writes src to a file named entry inside dir and evaluates it,
// exercising the full file-based import pipeline rather than EvalExpr/
// parser.ParseNamed on an in-memory string.
func runFile(t *testing.T, dir, entry, src string) object.Value {
	t.Helper()
	path := filepath.Join(dir, entry)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	prog, perr := ParseFile(path, os.ReadFile)
	if perr != nil {
		t.Fatalf("parse error in %s: %s", entry, perr.String())
	}
	ctx := NewContext(dir)
	env := NewEnclosedEnvironment(ctx.Global)
	result, serr := EvalProgramResult(prog, env, ctx)
	if serr != nil {
		t.Fatalf("eval error in %s: %s", entry, serr.String())
	}
	return result
}

func TestImportExposingBringsNamedExportIntoScope(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "math.ds"), []byte(`
		export func square(n) { return n * n; }
	`), 0o644)

	result := runFile(t, dir, "main.ds", `
		import "math.ds" exposing { square };
		square(5);
	`)
	n, ok := result.(*object.Number)
	if !ok || n.Value != 25 {
		t.Errorf("got %v, want 25", result)
	}
}

func TestImportAsBindsWholeNamespace(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "math.ds"), []byte(`
		export func double(n) { return n * 2; }
	`), 0o644)

	result := runFile(t, dir, "main.ds", `
		import "math.ds" as math;
		math.double(21);
	`)
	n, ok := result.(*object.Number)
	if !ok || n.Value != 42 {
		t.Errorf("got %v, want 42", result)
	}
}

func TestImportDefaultBindsDefaultExport(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "greeting.ds"), []byte(`
		export default "hello";
	`), 0o644)

	result := runFile(t, dir, "main.ds", `
		import "greeting.ds" default greeting;
		greeting;
	`)
	s, ok := result.(*object.String)
	if !ok || s.Value != "hello" {
		t.Errorf("got %v, want hello", result)
	}
}

func TestImportOfUnexportedNameIsFatal(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "math.ds"), []byte(`
		func hidden() { return 1; }
	`), 0o644)

	path := filepath.Join(dir, "main.ds")
	os.WriteFile(path, []byte(`import "math.ds" exposing { hidden };`), 0o644)
	prog, perr := ParseFile(path, os.ReadFile)
	if perr != nil {
		t.Fatalf("parse error: %s", perr.String())
	}
	ctx := NewContext(dir)
	env := NewEnclosedEnvironment(ctx.Global)
	_, serr := EvalProgramResult(prog, env, ctx)
	if serr == nil {
		t.Fatal("expected an error importing a name the module never exported")
	}
}

func TestCircularImportIsFatal(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.ds"), []byte(`import "b.ds" as b;`), 0o644)
	os.WriteFile(filepath.Join(dir, "b.ds"), []byte(`import "a.ds" as a;`), 0o644)

	path := filepath.Join(dir, "a.ds")
	prog, perr := ParseFile(path, os.ReadFile)
	if perr != nil {
		t.Fatalf("parse error: %s", perr.String())
	}
	ctx := NewContext(dir)
	env := NewEnclosedEnvironment(ctx.Global)
	_, serr := EvalProgramResult(prog, env, ctx)
	if serr == nil {
		t.Fatal("expected a circular-import error")
	}
}

func TestModuleProgramAndNamespaceAreCachedAcrossImports(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "counter.ds"), []byte(`
		export func next() { return 1; }
	`), 0o644)

	result := runFile(t, dir, "main.ds", `
		import "counter.ds" as c1;
		import "counter.ds" as c2;
		(c1 == c2);
	`)
	b, ok := result.(*object.Boolean)
	if !ok || !b.Value {
		t.Error("importing the same module specifier twice should return the identical cached namespace object")
	}
}

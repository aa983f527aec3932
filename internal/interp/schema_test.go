package interp

import (
	"testing"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

func TestMethodMutatesFieldByBareName(t *testing.T) {
	result := run(t, `
		schema Counter {
			required n: number;
			increment() { n = n + 1; return n; }
		}
		let c = Counter(0);
		c.increment();
		c.increment();
		c.n;
	`).(*object.Number)
	if result.Value != 2 {
		t.Errorf("got %v, want 2: a method's write to a bare field name should persist on the instance", result.Value)
	}
}

func TestDefaultSaveReturnsPlainFieldSnapshot(t *testing.T) {
	result := run(t, `
		schema Point {
			required x: number;
			required y: number;
		}
		let p = Point(1, 2);
		p.save();
	`).(*object.Object)
	xv, _ := result.Get("x")
	yv, _ := result.Get("y")
	if xv.(*object.Number).Value != 1 || yv.(*object.Number).Value != 2 {
		t.Errorf("save() result = %v, want x=1 y=2", result.Inspect())
	}
	schemaTag, ok := result.Get("__schema")
	if !ok || schemaTag.(*object.String).Value != "Point" {
		t.Errorf("save() result missing __schema tag naming the class, got %v", schemaTag)
	}
}

func TestUserDefinedMethodNamedSaveOverridesDefault(t *testing.T) {
	result := run(t, `
		schema Point {
			required x: number;
			save() { return "custom"; }
		}
		Point(1).save();
	`).(*object.String)
	if result.Value != "custom" {
		t.Errorf("got %q, want %q: a user-defined save() should win over the default", result.Value, "custom")
	}
}

func TestFieldInitializerSuppliesDefaultWhenOmitted(t *testing.T) {
	result := run(t, `
		schema Config {
			optional retries: number = 3;
		}
		Config({}).retries;
	`).(*object.Number)
	if result.Value != 3 {
		t.Errorf("got %v, want 3", result.Value)
	}
}

func TestTooManyPositionalConstructorArgsIsFatal(t *testing.T) {
	err := runErr(t, `
		schema Point { required x: number; }
		Point(1, 2);
	`)
	if err.Class != errors.ClassSchema {
		t.Errorf("class = %s, want %s", err.Class, errors.ClassSchema)
	}
}

func TestNamedConstructorArgumentNotAFieldIsFatal(t *testing.T) {
	err := runErr(t, `
		schema Point { required x: number; }
		Point({ x: 1, bogus: 2 });
	`)
	if err.Class != errors.ClassUndefined {
		t.Errorf("class = %s, want %s", err.Class, errors.ClassUndefined)
	}
}

func TestExtendingUnknownBaseIsFatal(t *testing.T) {
	err := runErr(t, `schema A extends Ghost { required x: number; }`)
	if err.Class != errors.ClassSchema {
		t.Errorf("class = %s, want %s", err.Class, errors.ClassSchema)
	}
}

func TestMethodWriteBackFailsFatallyOnTypeMismatch(t *testing.T) {
	err := runErr(t, `
		schema Counter {
			required n: number;
			breakIt() { n = "oops"; return n; }
		}
		let c = Counter(0);
		c.breakIt();
	`)
	if err.Class != errors.ClassType {
		t.Errorf("class = %s, want %s: a field write-back that fails its re-type-check must raise, not silently keep the stale value", err.Class, errors.ClassType)
	}
}

func TestExplicitConstructorParamsOverridePositionalOrder(t *testing.T) {
	result := run(t, `
		schema Point create(y, x) {
			required x: number;
			required y: number;
		}
		let p = Point(10, 1);
		p.x + p.y * 100;
	`).(*object.Number)
	if result.Value != 1001 {
		t.Errorf("got %v, want 1001: constructor(y, x) should bind the first arg to y and the second to x", result.Value)
	}
}

package interp

import (
	"testing"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
)

// newFakeCollectionContext builds a Context with an active fake database so
// `collection <name>;` statements can derive a handle backed by fakeCollection.
func newFakeCollectionContext(t *testing.T) (*Context, *fakeDatabase) {
	t.Helper()
	ctx := NewContext(t.TempDir())
	db := newFakeDatabase("shop", "fake://x")
	ctx.SetActiveDatabase(&dsl.DatabaseHandleValue{Handle: db, Collections: make(map[string]*dsl.CollectionHandleValue)})
	return ctx, db
}

func TestInsertOperator(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	result, serr := evalDSL(t, ctx, `
		collection users;
		users <- { name: "Ada" };
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result.Kind() != dsl.OperationChainKind {
		t.Fatalf("got %s, want operationChain", result.Kind())
	}
	if len(db.collections["users"].docs) != 1 {
		t.Errorf("expected the document to be inserted, got %d docs", len(db.collections["users"].docs))
	}
}

func TestInsertManyOperator(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	_, serr := evalDSL(t, ctx, `
		collection users;
		users <- [{ name: "Ada" }, { name: "Grace" }];
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if len(db.collections["users"].docs) != 2 {
		t.Errorf("expected 2 documents inserted, got %d", len(db.collections["users"].docs))
	}
}

func TestFindOneAndFindManyOperators(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	db.collections["users"] = &fakeCollection{name: "users", docs: []map[string]any{
		{"name": "Ada"}, {"name": "Grace"},
	}}

	one, serr := evalDSL(t, ctx, `
		collection users;
		(users ? { name: "Ada" }).value.name;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if s, ok := one.(*object.String); !ok || s.Value != "Ada" {
		t.Errorf("findOne result = %v, want Ada", one)
	}

	many, serr := evalDSL(t, ctx, `
		collection users;
		(users ?? { }).value;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	arr, ok := many.(*object.Array)
	if !ok || len(arr.Elements) != 2 {
		t.Errorf("findMany result = %v, want 2 elements", many)
	}
}

func TestFindOneMissingReturnsNullValue(t *testing.T) {
	ctx, _ := newFakeCollectionContext(t)
	result, serr := evalDSL(t, ctx, `
		collection users;
		(users ? { name: "nobody" }).value;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result != object.NullValue {
		t.Errorf("got %v, want null", result)
	}
}

func TestDeleteOperators(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	db.collections["users"] = &fakeCollection{name: "users", docs: []map[string]any{
		{"name": "Ada"}, {"name": "Grace"},
	}}

	result, serr := evalDSL(t, ctx, `
		collection users;
		(users !! { }).value;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if n, ok := result.(*object.Number); !ok || n.Value != 2 {
		t.Errorf("deleteMany count = %v, want 2", result)
	}
}

func TestAggregateOperator(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	db.collections["users"] = &fakeCollection{name: "users", docs: []map[string]any{{"name": "Ada"}}}

	result, serr := evalDSL(t, ctx, `
		collection users;
		(users |> [{ name: "Ada" }]).value;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	arr, ok := result.(*object.Array)
	if !ok || len(arr.Elements) != 1 {
		t.Errorf("aggregate result = %v, want 1 element", result)
	}
}

func TestUpdateOneAndManyExpressions(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	db.collections["users"] = &fakeCollection{name: "users", docs: []map[string]any{
		{"name": "Ada"}, {"name": "Grace"},
	}}

	result, serr := evalDSL(t, ctx, `
		collection users;
		users update many where { } set { active: true };
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	obj, ok := dsl.Unwrap(result).(*object.Object)
	if !ok {
		t.Fatalf("got %T, want an operation chain over *object.Object", result)
	}
	if v, _ := obj.Get("matchedCount"); v.(*object.Number).Value != 2 {
		t.Errorf("matchedCount = %v, want 2", v)
	}

	result, serr = evalDSL(t, ctx, `
		collection users;
		users update where { name: "Ada" } set { active: true };
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	obj, ok = dsl.Unwrap(result).(*object.Object)
	if !ok {
		t.Fatalf("got %T, want an operation chain over *object.Object", result)
	}
	if v, _ := obj.Get("matchedCount"); v.(*object.Number).Value != 1 {
		t.Errorf("updateOne matchedCount = %v, want 1", v)
	}
}

func TestChainThenMembersReexecuteAgainstTheSameCollection(t *testing.T) {
	ctx, db := newFakeCollectionContext(t)
	db.collections["users"] = &fakeCollection{name: "users"}

	result, serr := evalDSL(t, ctx, `
		collection users;
		(users <- { name: "Ada" }).thenInsert({ name: "Grace" });
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result.Kind() != dsl.OperationChainKind {
		t.Fatalf("got %s, want operationChain", result.Kind())
	}
	if len(db.collections["users"].docs) != 2 {
		t.Errorf("expected 2 documents after thenInsert, got %d", len(db.collections["users"].docs))
	}
}

func TestOperatorOnANonCollectionIsFatal(t *testing.T) {
	ctx := NewContext(t.TempDir())
	_, serr := evalDSL(t, ctx, `5 ? { };`)
	if serr == nil {
		t.Fatal("expected an error operating on a non-collection value")
	}
}

package dsl

import (
	"reflect"
	"testing"
	"time"

	"github.com/datascript-lang/datascript/internal/object"
)

type fakeObjectID string

func (id fakeObjectID) String() string { return string(id) }

func TestBuildQueryEqualityThenComparatorMerges(t *testing.T) {
	got := BuildQuery([]Condition{
		{Field: "a", Operator: "==", Value: 1.0},
		{Field: "a", Operator: ">", Value: 0.0},
		{Field: "b", Operator: "!=", Value: 2.0},
	})
	want := map[string]any{
		"a": map[string]any{"$eq": 1.0, "$gt": 0.0},
		"b": map[string]any{"$ne": 2.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestBuildQueryComparatorThenEquality(t *testing.T) {
	got := BuildQuery([]Condition{
		{Field: "a", Operator: ">", Value: 0.0},
		{Field: "a", Operator: "==", Value: 1.0},
	})
	want := map[string]any{"a": map[string]any{"$gt": 0.0, "$eq": 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestToPlainRoundTrip(t *testing.T) {
	obj := object.NewObject()
	obj.Set("name", &object.String{Value: "ada"})
	obj.Set("age", &object.Number{Value: 9})
	arr := &object.Array{Elements: []object.Value{&object.Number{Value: 1}, object.NullValue}}
	obj.Set("tags", arr)

	plain, err := ToPlain(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := plain.(map[string]any)
	if !ok {
		t.Fatalf("got %T", plain)
	}
	if m["name"] != "ada" || m["age"] != float64(9) {
		t.Errorf("got %#v", m)
	}

	back := FromPlain(plain)
	backObj, ok := back.(*object.Object)
	if !ok {
		t.Fatalf("got %T", back)
	}
	name, _ := backObj.Get("name")
	if name.(*object.String).Value != "ada" {
		t.Errorf("got %+v", name)
	}
}

func TestToPlainRejectsFunctions(t *testing.T) {
	fn := &object.Function{Name: "f"}
	if _, err := ToPlain(fn); err == nil || err.Code != "DSL-0005" {
		t.Fatalf("expected DSL-0005, got %v", err)
	}
}

func TestAsFilterNullMeansEmpty(t *testing.T) {
	m, err := AsFilter(object.NullValue)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("got %+v", m)
	}
}

func TestAsFilterRejectsNonObject(t *testing.T) {
	if _, err := AsFilter(&object.Number{Value: 1}); err == nil || err.Code != "DSL-0002" {
		t.Fatalf("expected DSL-0002, got %v", err)
	}
}

func TestAsPipelineRejectsNonArray(t *testing.T) {
	if _, err := AsPipeline(object.NewObject()); err == nil || err.Code != "DSL-0003" {
		t.Fatalf("expected DSL-0003, got %v", err)
	}
}

func TestOperationChainUnwrap(t *testing.T) {
	chain := &OperationChainValue{LastResult: &object.Number{Value: 5}}
	if Unwrap(chain).(*object.Number).Value != 5 {
		t.Errorf("expected unwrap to return LastResult")
	}
	if Unwrap(&object.Number{Value: 7}).(*object.Number).Value != 7 {
		t.Errorf("expected non-chain values to pass through unchanged")
	}
}

func TestCombineSingleArrayVsVarargs(t *testing.T) {
	fromArray := Combine("$and", []any{[]any{map[string]any{"a": 1.0}, map[string]any{"b": 2.0}}})
	fromVarargs := Combine("$and", []any{map[string]any{"a": 1.0}, map[string]any{"b": 2.0}})
	if !reflect.DeepEqual(fromArray, fromVarargs) {
		t.Errorf("got %#v vs %#v", fromArray, fromVarargs)
	}
}

func TestFromPlainRendersTimeAsISO8601(t *testing.T) {
	ts := time.Date(2021, time.April, 29, 12, 30, 0, 0, time.UTC)
	got := FromPlain(ts).(*object.String)
	want := "2021-04-29T12:30:00Z"
	if got.Value != want {
		t.Errorf("got %q, want %q", got.Value, want)
	}
}

func TestFromPlainRendersObjectIDLikeViaStringer(t *testing.T) {
	got := FromPlain(fakeObjectID("507f1f77bcf86cd799439011")).(*object.String)
	if got.Value != "507f1f77bcf86cd799439011" {
		t.Errorf("got %q, want the Stringer's string form", got.Value)
	}
}

func TestUnwindStageAutoPrefixesDollar(t *testing.T) {
	got := UnwindStage("items")
	want := map[string]any{"$unwind": "$items"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
	got2 := UnwindStage("$items")
	if !reflect.DeepEqual(got2, want) {
		t.Errorf("got %#v", got2)
	}
}

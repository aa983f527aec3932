package interp

import (
	"testing"

	"github.com/datascript-lang/datascript/internal/object"
)

func TestCheckTypeAcceptsMatchingBaseTypes(t *testing.T) {
	tests := []struct {
		base  string
		value object.Value
	}{
		{"string", &object.String{Value: "x"}},
		{"number", &object.Number{Value: 1}},
		{"boolean", object.BoolValue(true)},
		{"array", &object.Array{}},
		{"object", object.NewObject()},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			ann := &object.TypeAnnotation{Base: tt.base}
			if err := CheckType(tt.value, ann, true, "x"); err != nil {
				t.Errorf("CheckType(%s) = %v, want nil", tt.base, err)
			}
		})
	}
}

func TestCheckTypeRejectsMismatchedBaseType(t *testing.T) {
	ann := &object.TypeAnnotation{Base: "string"}
	err := CheckType(&object.Number{Value: 1}, ann, true, "field 'x' of Y")
	if err == nil {
		t.Fatal("expected a type error for a number where a string is required")
	}
}

func TestCheckTypeAnyAcceptsAnything(t *testing.T) {
	ann := &object.TypeAnnotation{Base: "any"}
	if err := CheckType(&object.Number{Value: 1}, ann, true, "x"); err != nil {
		t.Errorf("got %v, want nil", err)
	}
	if err := CheckType(object.NullValue, ann, true, "x"); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestCheckTypeNilAnnotationAcceptsAnything(t *testing.T) {
	if err := CheckType(&object.String{Value: "x"}, nil, true, "x"); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestCheckTypeOptionalAcceptsNull(t *testing.T) {
	ann := &object.TypeAnnotation{Base: "string"}
	if err := CheckType(object.NullValue, ann, false, "x"); err != nil {
		t.Errorf("a non-required field should accept null, got %v", err)
	}
	if err := CheckType(object.NullValue, ann, true, "x"); err == nil {
		t.Error("a required field should reject null")
	}
}

func TestCheckTypeArrayDepthValidatesElements(t *testing.T) {
	ann := &object.TypeAnnotation{Base: "number", ArrayDepth: 1}
	good := &object.Array{Elements: []object.Value{&object.Number{Value: 1}, &object.Number{Value: 2}}}
	if err := CheckType(good, ann, true, "x"); err != nil {
		t.Errorf("got %v, want nil", err)
	}

	bad := &object.Array{Elements: []object.Value{&object.Number{Value: 1}, &object.String{Value: "oops"}}}
	if err := CheckType(bad, ann, true, "x"); err == nil {
		t.Error("expected an error: one element does not match the declared element type")
	}

	if err := CheckType(&object.Number{Value: 1}, ann, true, "x"); err == nil {
		t.Error("expected an error: a bare number does not satisfy an array annotation")
	}
}

func TestCheckTypeMatchesSchemaNameForCustomBase(t *testing.T) {
	ann := &object.TypeAnnotation{Base: "Animal"}
	instance := object.NewObject()
	instance.SchemaName = "Animal"
	if err := CheckType(instance, ann, true, "x"); err != nil {
		t.Errorf("got %v, want nil", err)
	}

	other := object.NewObject()
	other.SchemaName = "Plant"
	if err := CheckType(other, ann, true, "x"); err == nil {
		t.Error("expected an error: schemaName mismatch against the annotation")
	}
}

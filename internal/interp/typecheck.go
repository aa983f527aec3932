package interp

import (
	"strings"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// CheckType implements the type-check algorithm shared by field
// assignment, constructor/method parameter binding, and plain function
// parameter binding. required controls whether Null is accepted
// regardless of base (non-required annotations always accept Null).
func CheckType(value object.Value, ann *object.TypeAnnotation, required bool, where string) *errors.ScriptError {
	if ok := matchesAnnotation(value, ann, required); ok {
		return nil
	}
	return errors.New("TYPE-0005", map[string]any{
		"Where":    where,
		"Expected": ann.String(),
		"Got":      describeValue(value),
	})
}

func matchesAnnotation(value object.Value, ann *object.TypeAnnotation, required bool) bool {
	if ann == nil || strings.EqualFold(ann.Base, "any") {
		return true
	}
	if !required {
		if _, isNull := value.(*object.Null); isNull {
			return true
		}
	}
	if ann.ArrayDepth > 0 {
		arr, ok := value.(*object.Array)
		if !ok {
			return false
		}
		inner := &object.TypeAnnotation{Base: ann.Base, ArrayDepth: ann.ArrayDepth - 1}
		for _, el := range arr.Elements {
			if !matchesAnnotation(el, inner, true) {
				return false
			}
		}
		return true
	}
	return matchesBase(value, ann.Base)
}

func matchesBase(value object.Value, base string) bool {
	switch strings.ToLower(base) {
	case "string":
		_, ok := value.(*object.String)
		return ok
	case "number":
		_, ok := value.(*object.Number)
		return ok
	case "boolean":
		_, ok := value.(*object.Boolean)
		return ok
	case "null":
		_, ok := value.(*object.Null)
		return ok
	case "array":
		_, ok := value.(*object.Array)
		return ok
	case "object":
		_, ok := value.(*object.Object)
		return ok
	default:
		obj, ok := value.(*object.Object)
		return ok && strings.EqualFold(obj.SchemaName, base)
	}
}

// describeValue names a value's type tag for a diagnostic, preferring its
// schemaName when the value is a tagged instance.
func describeValue(value object.Value) string {
	if obj, ok := value.(*object.Object); ok && obj.SchemaName != "" {
		return obj.SchemaName
	}
	return string(value.Kind())
}

package natives

import (
	"strconv"
	"strings"

	"github.com/datascript-lang/datascript/internal/object"
)

// stringNatives covers `strlen, uppercase, lowercase,
// contains, split, trim, toNumber, toString`.
func stringNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"strlen":    native("strlen", strStrlen),
		"uppercase": native("uppercase", strUppercase),
		"lowercase": native("lowercase", strLowercase),
		"contains":  native("contains", strContains),
		"split":     native("split", strSplit),
		"trim":      native("trim", strTrim),
		"toNumber":  native("toNumber", strToNumber),
		"toString":  native("toString", strToString),
	}
}

func strStrlen(args []object.Value) (object.Value, error) {
	if err := arityExact("strlen", args, 1); err != nil {
		return nil, err
	}
	s, err := asString("strlen", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: float64(len([]rune(s)))}, nil
}

func strUppercase(args []object.Value) (object.Value, error) {
	if err := arityExact("uppercase", args, 1); err != nil {
		return nil, err
	}
	s, err := asString("uppercase", args[0])
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.ToUpper(s)}, nil
}

func strLowercase(args []object.Value) (object.Value, error) {
	if err := arityExact("lowercase", args, 1); err != nil {
		return nil, err
	}
	s, err := asString("lowercase", args[0])
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.ToLower(s)}, nil
}

func strContains(args []object.Value) (object.Value, error) {
	if err := arityExact("contains", args, 2); err != nil {
		return nil, err
	}
	switch haystack := args[0].(type) {
	case *object.String:
		needle, err := asString("contains", args[1])
		if err != nil {
			return nil, err
		}
		return object.BoolValue(strings.Contains(haystack.Value, needle)), nil
	case *object.Array:
		for _, el := range haystack.Elements {
			if object.Equal(el, args[1]) {
				return object.True, nil
			}
		}
		return object.False, nil
	default:
		return nil, typeErr("contains", "string or array", args[0])
	}
}

func strSplit(args []object.Value) (object.Value, error) {
	if err := arityExact("split", args, 2); err != nil {
		return nil, err
	}
	s, err := asString("split", args[0])
	if err != nil {
		return nil, err
	}
	sep, err := asString("split", args[1])
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	elems := make([]object.Value, len(parts))
	for i, p := range parts {
		elems[i] = &object.String{Value: p}
	}
	return &object.Array{Elements: elems}, nil
}

func strTrim(args []object.Value) (object.Value, error) {
	if err := arityExact("trim", args, 1); err != nil {
		return nil, err
	}
	s, err := asString("trim", args[0])
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.TrimSpace(s)}, nil
}

func strToNumber(args []object.Value) (object.Value, error) {
	if err := arityExact("toNumber", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Number:
		return v, nil
	case *object.String:
		n, perr := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if perr != nil {
			return object.NullValue, nil
		}
		return &object.Number{Value: n}, nil
	case *object.Boolean:
		if v.Value {
			return &object.Number{Value: 1}, nil
		}
		return &object.Number{Value: 0}, nil
	default:
		return nil, typeErr("toNumber", "string, number, or boolean", args[0])
	}
}

func strToString(args []object.Value) (object.Value, error) {
	if err := arityExact("toString", args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(*object.String); ok {
		return s, nil
	}
	return &object.String{Value: args[0].Inspect()}, nil
}

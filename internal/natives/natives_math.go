package natives

import (
	"math"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// mathNatives covers `abs, sqrt, pow, max, min, clamp, round, floor, ceil`,
// following the same arity- and type-check-per-arg pattern (arityExact/
// arityRange + asNumber, which reports through typeErr) over this
// package's object.Value model.
func mathNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"abs":   native("abs", mathAbs),
		"sqrt":  native("sqrt", mathSqrt),
		"pow":   native("pow", mathPow),
		"max":   native("max", mathMax),
		"min":   native("min", mathMin),
		"clamp": native("clamp", mathClamp),
		"round": native("round", mathRound),
		"floor": native("floor", mathFloor),
		"ceil":  native("ceil", mathCeil),
	}
}

func mathAbs(args []object.Value) (object.Value, error) {
	if err := arityExact("abs", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("abs", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Abs(n)}, nil
}

func mathSqrt(args []object.Value) (object.Value, error) {
	if err := arityExact("sqrt", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("sqrt", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Sqrt(n)}, nil
}

func mathPow(args []object.Value) (object.Value, error) {
	if err := arityExact("pow", args, 2); err != nil {
		return nil, err
	}
	base, err := asNumber("pow", args[0])
	if err != nil {
		return nil, err
	}
	exp, err := asNumber("pow", args[1])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Pow(base, exp)}, nil
}

// numbersOrArray lets max/min accept either varargs or a single array
// argument, the conventional mathMax/mathMin shape.
func numbersOrArray(fn string, args []object.Value) ([]float64, *errors.ScriptError) {
	if len(args) == 1 {
		if arr, ok := args[0].(*object.Array); ok {
			out := make([]float64, len(arr.Elements))
			for i, el := range arr.Elements {
				n, err := asNumber(fn, el)
				if err != nil {
					return nil, err
				}
				out[i] = n
			}
			return out, nil
		}
	}
	out := make([]float64, len(args))
	for i, a := range args {
		n, err := asNumber(fn, a)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func mathMax(args []object.Value) (object.Value, error) {
	if len(args) == 0 {
		return nil, errors.New("ARITY-0001", map[string]any{"Function": "max", "Want": "1+", "Got": 0})
	}
	nums, err := numbersOrArray("max", args)
	if err != nil {
		return nil, err
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n > best {
			best = n
		}
	}
	return &object.Number{Value: best}, nil
}

func mathMin(args []object.Value) (object.Value, error) {
	if len(args) == 0 {
		return nil, errors.New("ARITY-0001", map[string]any{"Function": "min", "Want": "1+", "Got": 0})
	}
	nums, err := numbersOrArray("min", args)
	if err != nil {
		return nil, err
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n < best {
			best = n
		}
	}
	return &object.Number{Value: best}, nil
}

func mathClamp(args []object.Value) (object.Value, error) {
	if err := arityExact("clamp", args, 3); err != nil {
		return nil, err
	}
	v, err := asNumber("clamp", args[0])
	if err != nil {
		return nil, err
	}
	lo, err := asNumber("clamp", args[1])
	if err != nil {
		return nil, err
	}
	hi, err := asNumber("clamp", args[2])
	if err != nil {
		return nil, err
	}
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return &object.Number{Value: v}, nil
}

func mathRound(args []object.Value) (object.Value, error) {
	if err := arityRange("round", args, 1, 2); err != nil {
		return nil, err
	}
	n, err := asNumber("round", args[0])
	if err != nil {
		return nil, err
	}
	decimals := 0.0
	if len(args) == 2 {
		d, derr := asNumber("round", args[1])
		if derr != nil {
			return nil, derr
		}
		decimals = d
	}
	scale := math.Pow(10, decimals)
	return &object.Number{Value: math.Round(n*scale) / scale}, nil
}

func mathFloor(args []object.Value) (object.Value, error) {
	if err := arityExact("floor", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("floor", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Floor(n)}, nil
}

func mathCeil(args []object.Value) (object.Value, error) {
	if err := arityExact("ceil", args, 1); err != nil {
		return nil, err
	}
	n, err := asNumber("ceil", args[0])
	if err != nil {
		return nil, err
	}
	return &object.Number{Value: math.Ceil(n)}, nil
}

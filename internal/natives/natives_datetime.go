package natives

import (
	"time"

	"github.com/araddon/dateparse"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// datetimeNatives covers `now`/`toDate`: both hand back a runtime String in
// the ISO-8601 form the Plain->Runtime conversion table uses for dates,
// since Datascript has no Date type distinct from string.
func datetimeNatives() map[string]*object.NativeFunction {
	return map[string]*object.NativeFunction{
		"now":    native("now", nativeNow),
		"toDate": native("toDate", nativeToDate),
	}
}

func nativeNow(args []object.Value) (object.Value, error) {
	if err := arityExact("now", args, 0); err != nil {
		return nil, err
	}
	return &object.String{Value: time.Now().UTC().Format(time.RFC3339)}, nil
}

func nativeToDate(args []object.Value) (object.Value, error) {
	if err := arityExact("toDate", args, 1); err != nil {
		return nil, err
	}
	s, err := asString("toDate", args[0])
	if err != nil {
		return nil, err
	}
	t, perr := dateparse.ParseAny(s)
	if perr != nil {
		return nil, errors.New("DSL-0006", map[string]any{"Value": s})
	}
	return &object.String{Value: t.UTC().Format(time.RFC3339)}, nil
}

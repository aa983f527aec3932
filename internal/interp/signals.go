package interp

import "github.com/datascript-lang/datascript/internal/object"

// ReturnSignal unwinds to the innermost function/method call. It is never
// user-visible: the call site always intercepts it.
type ReturnSignal struct{ Value object.Value }

func (*ReturnSignal) Error() string { return "return used outside of a function" }

// BreakSignal unwinds to the innermost while loop.
type BreakSignal struct{}

func (*BreakSignal) Error() string { return "break used outside of a loop" }

// ContinueSignal unwinds to the innermost while loop's test.
type ContinueSignal struct{}

func (*ContinueSignal) Error() string { return "continue used outside of a loop" }

// ThrownSignal carries a user `throw`n Value up to the nearest try/catch.
// Unlike *errors.ScriptError, this is not a host fault — it is ordinary
// control flow defined by the language.
type ThrownSignal struct{ Value object.Value }

func (t *ThrownSignal) Error() string {
	if s, ok := t.Value.(*object.String); ok {
		return s.Value
	}
	return t.Value.Inspect()
}

// AsThrown wraps any Go error that is not already a control signal into a
// ThrownSignal, coercing it to a string Value: throwing a non-value host
// error is wrapped by coercing it to a string Value.
func AsThrown(err error) *ThrownSignal {
	if ts, ok := err.(*ThrownSignal); ok {
		return ts
	}
	return &ThrownSignal{Value: &object.String{Value: err.Error()}}
}

// Package interp implements the tree-walking evaluator: lexical
// environments, the module loader, schema/instance machinery, and AST
// dispatch.
package interp

import (
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// Environment is a lexical scope: a binding table plus a link to the
// enclosing scope, extended with a const-set and a module export table.
type Environment struct {
	store   map[string]object.Value
	consts  map[string]bool
	outer   *Environment
	exports map[string]object.Value // non-nil only for a module's root environment
}

// NewEnvironment creates a root environment with no parent.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]object.Value), consts: make(map[string]bool)}
}

// NewEnclosedEnvironment creates a scope parented on outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

// NewModuleEnvironment creates a root-like scope (parented on global, if
// given) with a fresh, empty export table.
func NewModuleEnvironment(global *Environment) *Environment {
	env := NewEnclosedEnvironment(global)
	env.exports = make(map[string]object.Value)
	return env
}

// DeclareVar binds name in the current scope. Redeclaration in the same
// scope is fatal (SCOPE-0001).
func (e *Environment) DeclareVar(name string, value object.Value, isConst bool) error {
	if _, exists := e.store[name]; exists {
		return errors.New("SCOPE-0001", map[string]any{"Name": name})
	}
	e.store[name] = value
	if isConst {
		e.consts[name] = true
	}
	return nil
}

// AssignVar walks outward from e looking for an existing binding of name
// and overwrites it in place. Reassigning a const is fatal (SCOPE-0003);
// an unknown name is fatal (SCOPE-0002).
func (e *Environment) AssignVar(name string, value object.Value) error {
	env := e.resolveEnv(name)
	if env == nil {
		return errors.NewUndefinedIdentifier(name, e.knownNames())
	}
	if env.consts[name] {
		return errors.New("SCOPE-0003", map[string]any{"Name": name})
	}
	env.store[name] = value
	return nil
}

// LookupVar returns the value bound to name anywhere in the scope chain,
// or a fatal SCOPE-0002 if unbound.
func (e *Environment) LookupVar(name string) (object.Value, error) {
	env := e.resolveEnv(name)
	if env == nil {
		return nil, errors.NewUndefinedIdentifier(name, e.knownNames())
	}
	return env.store[name], nil
}

// Resolve returns the environment that owns name, or an error if none does.
func (e *Environment) Resolve(name string) (*Environment, error) {
	env := e.resolveEnv(name)
	if env == nil {
		return nil, errors.NewUndefinedIdentifier(name, e.knownNames())
	}
	return env, nil
}

func (e *Environment) resolveEnv(name string) *Environment {
	for env := e; env != nil; env = env.outer {
		if _, ok := env.store[name]; ok {
			return env
		}
	}
	return nil
}

// HasOwnBinding reports whether name is bound directly in e (not an outer
// scope).
func (e *Environment) HasOwnBinding(name string) bool {
	_, ok := e.store[name]
	return ok
}

// OwnBindings returns a copy of the name->value bindings declared directly
// in e, not those of an outer scope — for a REPL's `:env` introspection.
func (e *Environment) OwnBindings() map[string]object.Value {
	out := make(map[string]object.Value, len(e.store))
	for name, v := range e.store {
		out[name] = v
	}
	return out
}

// HasBinding reports whether name is bound anywhere in the scope chain.
func (e *Environment) HasBinding(name string) bool {
	return e.resolveEnv(name) != nil
}

// RemoveVar deletes name from whichever scope owns it; silent if absent.
func (e *Environment) RemoveVar(name string) {
	env := e.resolveEnv(name)
	if env == nil {
		return
	}
	delete(env.store, name)
	delete(env.consts, name)
}

// SetModuleExport records name as exported from this module's root
// environment. Panics if called on a non-module environment — a bug in the
// evaluator, not a user-facing error.
func (e *Environment) SetModuleExport(name string, value object.Value) {
	if e.exports == nil {
		panic("SetModuleExport called on a non-module environment")
	}
	e.exports[name] = value
}

// GetModuleExports returns the export table of this module's root
// environment (nil if this is not a module root).
func (e *Environment) GetModuleExports() map[string]object.Value {
	return e.exports
}

// knownNames collects every bound identifier visible from e, for "did you
// mean" suggestions on an undefined-identifier error.
func (e *Environment) knownNames() []string {
	var names []string
	seen := make(map[string]bool)
	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

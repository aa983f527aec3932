package interp

import (
	"path/filepath"
	"strings"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/ast"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// SourceExtension is appended to an import specifier that has no
// extension of its own.
const SourceExtension = ".ds"

// dslState is one snapshot of the process-wide DSL registry: the active
// database binding and every registered collection. `using mongo`
// snapshots and restores this wholesale.
type dslState struct {
	activeDB    *dsl.DatabaseHandleValue
	collections map[string]*dsl.CollectionHandleValue
}

func newDSLState() dslState {
	return dslState{collections: make(map[string]*dsl.CollectionHandleValue)}
}

// Timer is a deferred `schedule` invocation. The host drains them
// (cmd/datascript's drainTimers); the core only records them.
type Timer struct {
	ID       int
	DelayMS  float64
	Callable object.Value
	Args     []object.Value
}

// Context is the single "interpreter context" object threaded through
// evaluation — it replaces what would otherwise be ad hoc process-global
// state (module caches, the DSL registry, the timer queue) with one
// explicit, constructible value.
type Context struct {
	Global *Environment

	BaseDir string

	Logger Logger

	programCache map[string]*ast.Program
	moduleCache  map[string]*object.Object
	inProgress   map[string]bool
	importStack  []string

	dsl dslState

	Connector dsl.Connector

	nextTimerID int
	Timers      []*Timer
}

// NewContext builds a Context rooted at baseDir (used to resolve relative
// import specifiers at the top level).
func NewContext(baseDir string) *Context {
	return &Context{
		Global:       NewEnvironment(),
		BaseDir:      baseDir,
		Logger:       DefaultLogger,
		programCache: make(map[string]*ast.Program),
		moduleCache:  make(map[string]*object.Object),
		inProgress:   make(map[string]bool),
		dsl:          newDSLState(),
	}
}

// ---- Module loader ----------------------------------------------------------

// ResolveImportPath resolves specifier against fromDir (the importing
// module's directory, or ctx.BaseDir at the root), normalizes it, and
// appends SourceExtension if the specifier has no extension.
func (ctx *Context) ResolveImportPath(specifier, fromDir string) string {
	path := specifier
	if !filepath.IsAbs(path) {
		path = filepath.Join(fromDir, path)
	}
	path = filepath.Clean(path)
	if !hasExplicitExtension(path) {
		path += SourceExtension
	}
	return path
}

// GetModuleProgram returns the memoized parse of path, parsing and caching
// it via parseFn on first access.
func (ctx *Context) GetModuleProgram(path string, parseFn func(path string) (*ast.Program, *errors.ScriptError)) (*ast.Program, *errors.ScriptError) {
	if prog, ok := ctx.programCache[path]; ok {
		return prog, nil
	}
	prog, err := parseFn(path)
	if err != nil {
		return nil, err
	}
	ctx.programCache[path] = prog
	return prog, nil
}

// EvalImport evaluates (or returns the cached namespace for) the module
// at path, per the cache / in-progress / context-stack protocol.
func (ctx *Context) EvalImport(path string, prog *ast.Program, evalProgram func(*ast.Program, *Environment) *errors.ScriptError) (*object.Object, *errors.ScriptError) {
	if ns, ok := ctx.moduleCache[path]; ok {
		return ns, nil
	}
	if ctx.inProgress[path] {
		return nil, errors.NewSimple(errors.ClassImport, "circular import: "+path).WithFile(path)
	}
	ctx.inProgress[path] = true
	ctx.importStack = append(ctx.importStack, path)
	defer func() {
		ctx.importStack = ctx.importStack[:len(ctx.importStack)-1]
		delete(ctx.inProgress, path)
	}()

	modEnv := NewModuleEnvironment(ctx.Global)
	if err := evalProgram(prog, modEnv); err != nil {
		return nil, err
	}
	ns := object.NewObject()
	ns.SchemaName = "module"
	for name, val := range modEnv.GetModuleExports() {
		ns.Set(name, val)
	}
	ctx.moduleCache[path] = ns
	return ns, nil
}

// ModuleDir is a small helper so callers threading a "current directory"
// through nested imports can derive the next one.
func ModuleDir(path string) string {
	return filepath.Dir(path)
}

func hasExplicitExtension(specifier string) bool {
	return strings.Contains(filepath.Base(specifier), ".")
}

// ---- DSL registry ------------------------------------------------------------

// SnapshotDSL captures the current active-database/collections registry so
// `using mongo` can restore it on exit.
func (ctx *Context) SnapshotDSL() dslState {
	snap := dslState{activeDB: ctx.dsl.activeDB, collections: make(map[string]*dsl.CollectionHandleValue, len(ctx.dsl.collections))}
	for k, v := range ctx.dsl.collections {
		snap.collections[k] = v
	}
	return snap
}

// RestoreDSL replaces the registry with a previously captured snapshot.
func (ctx *Context) RestoreDSL(snap dslState) {
	ctx.dsl = snap
}

// ClearDSL empties the active database and every collection binding.
func (ctx *Context) ClearDSL() {
	ctx.dsl = newDSLState()
}

// SetActiveDatabase installs db as the active database, per the `database`
// statement.
func (ctx *Context) SetActiveDatabase(db *dsl.DatabaseHandleValue) {
	ctx.dsl.activeDB = db
	ctx.dsl.collections = make(map[string]*dsl.CollectionHandleValue)
}

// ActiveDatabase returns the active database, or nil if none is bound.
func (ctx *Context) ActiveDatabase() *dsl.DatabaseHandleValue { return ctx.dsl.activeDB }

// RegisterCollection binds name to handle in the registry.
func (ctx *Context) RegisterCollection(name string, handle *dsl.CollectionHandleValue) {
	ctx.dsl.collections[name] = handle
}

// LookupCollection returns a previously registered collection by name.
func (ctx *Context) LookupCollection(name string) (*dsl.CollectionHandleValue, bool) {
	h, ok := ctx.dsl.collections[name]
	return h, ok
}

// DeriveCollection returns an existing registered collection, or derives a
// fresh one from the active database (fatal DSL-0001 if none is active).
func (ctx *Context) DeriveCollection(name string) (*dsl.CollectionHandleValue, *errors.ScriptError) {
	if h, ok := ctx.dsl.collections[name]; ok {
		return h, nil
	}
	if ctx.dsl.activeDB == nil {
		return nil, errors.New("DSL-0001", nil)
	}
	handle, err := ctx.dsl.activeDB.Handle.Collection(name)
	if err != nil {
		return nil, errors.NewSimple(errors.ClassDSL, err.Error())
	}
	ch := &dsl.CollectionHandleValue{Handle: handle}
	ctx.dsl.collections[name] = ch
	return ch, nil
}

// ---- Timers (`schedule`) -----------------------------------------------------

// ScheduleTimer records a deferred invocation and returns its id.
func (ctx *Context) ScheduleTimer(delayMS float64, callable object.Value, args []object.Value) int {
	ctx.nextTimerID++
	ctx.Timers = append(ctx.Timers, &Timer{ID: ctx.nextTimerID, DelayMS: delayMS, Callable: callable, Args: args})
	return ctx.nextTimerID
}

// Package dsl implements the pure half of the document-store DSL: lowering
// surface syntax (query conditions, stage helpers, update statements) into
// plain Query/Update/Pipeline documents, and the Plain<->Runtime value
// conversion the document-store DSL requires. It also declares the driver
// interfaces a host must implement and the Operation chain result shape.
// This package performs no I/O itself.
package dsl

import (
	"fmt"
	"sort"
	"time"

	"github.com/datascript-lang/datascript/internal/object"
	"github.com/datascript-lang/datascript/pkg/datascript/errors"
)

// ---- Driver interfaces (host-supplied) -------------------------------------

// UpdateResult is the result shape of updateOne/updateMany.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
	UpsertedCount int
	UpsertedID    any
	UpsertedIDs   []any
}

// Cursor is returned by find/aggregate; ToArray materializes it.
type Cursor interface {
	ToArray() ([]map[string]any, error)
}

// CollectionHandle is the logical operation surface the core issues
// against. A driver implements this over whatever wire protocol it likes.
type CollectionHandle interface {
	Name() string
	FindOne(filter map[string]any, opts map[string]any) (map[string]any, error)
	FindMany(filter map[string]any, opts map[string]any) (Cursor, error)
	InsertOne(doc map[string]any) (string, error)
	InsertMany(docs []map[string]any) ([]string, error)
	UpdateOne(filter, update map[string]any, opts map[string]any) (UpdateResult, error)
	UpdateMany(filter, update map[string]any, opts map[string]any) (UpdateResult, error)
	DeleteOne(filter map[string]any) (int, error)
	DeleteMany(filter map[string]any) (int, error)
	CountDocuments(filter map[string]any) (int, error)
	Aggregate(pipeline []any) (Cursor, error)
}

// DatabaseHandle is the host-supplied connection; collection() auto-creates
// and caches a CollectionHandle by name.
type DatabaseHandle interface {
	Name() string
	URI() string
	Collection(name string) (CollectionHandle, error)
	Close() error
}

// Connector opens a DatabaseHandle given a connection URI and an optional
// database name, via `connect(uri, dbName?)`.
type Connector interface {
	Connect(uri string, dbName string) (DatabaseHandle, error)
}

// ---- Runtime Values for handles and operation chains ----------------------

const (
	DatabaseHandleKind   object.Kind = "databaseHandle"
	CollectionHandleKind object.Kind = "collectionHandle"
	OperationChainKind   object.Kind = "operationChain"
)

// DatabaseHandleValue wraps a driver DatabaseHandle as a runtime Value.
type DatabaseHandleValue struct {
	Handle      DatabaseHandle
	Collections map[string]*CollectionHandleValue
}

func (*DatabaseHandleValue) Kind() object.Kind { return DatabaseHandleKind }
func (d *DatabaseHandleValue) Inspect() string { return "<database " + d.Handle.Name() + ">" }

// CollectionHandleValue wraps a driver CollectionHandle plus the defaults
// `use collection ... with {...}` may set (projection/sort/limit/batchSize).
type CollectionHandleValue struct {
	Handle     CollectionHandle
	Projection map[string]any
	Sort       map[string]any
	Limit      int
	HasLimit   bool
	BatchSize  int
	HasBatch   bool
}

func (*CollectionHandleValue) Kind() object.Kind { return CollectionHandleKind }
func (c *CollectionHandleValue) Inspect() string { return "<collection " + c.Handle.Name() + ">" }

// FindOpts builds the opts map passed to FindOne/FindMany from the
// collection's stored defaults.
func (c *CollectionHandleValue) FindOpts() map[string]any {
	opts := map[string]any{}
	if c.Projection != nil {
		opts["projection"] = c.Projection
	}
	if c.Sort != nil {
		opts["sort"] = c.Sort
	}
	if c.HasLimit {
		opts["limit"] = c.Limit
	}
	return opts
}

// OperationChainValue is the result of any DSL operator: the last result
// value plus enough context (the owning collection) to support chained
// `then…` calls. When a chain is used as an operand of another DSL
// operator, its lastResult is transparently unwrapped — see Unwrap.
type OperationChainValue struct {
	LastResult object.Value
	Collection *CollectionHandleValue
}

func (*OperationChainValue) Kind() object.Kind { return OperationChainKind }
func (o *OperationChainValue) Inspect() string { return "<operation " + o.LastResult.Inspect() + ">" }

// Unwrap returns v.LastResult if v is an *OperationChainValue, else v
// itself — the "transparent unwrap" rule used wherever a DSL operand is
// evaluated.
func Unwrap(v object.Value) object.Value {
	if chain, ok := v.(*OperationChainValue); ok {
		return chain.LastResult
	}
	return v
}

// ChainMembers lists the named properties/methods an Operation chain must
// carry. MemberExpr evaluation special-cases these.
var ChainMembers = map[string]bool{
	"value": true, "collection": true, "unwrap": true, "valueOf": true, "toJSON": true,
	"thenInsert": true, "thenInsertMany": true, "thenDelete": true, "thenDeleteMany": true,
	"thenFind": true, "thenFindMany": true, "thenAggregate": true,
	"thenUpdate": true, "thenUpdateMany": true,
}

// ---- Plain <-> Runtime conversion ------------------------------------------

// ToPlain converts a runtime Value into a plain Go value suitable for JSON
// encoding / passing to a driver. Function/NativeFn/Class/Promise values
// are not representable and return DSL-0005.
func ToPlain(v object.Value) (any, *errors.ScriptError) {
	switch x := v.(type) {
	case nil, *object.Null:
		return nil, nil
	case *object.Number:
		return x.Value, nil
	case *object.Boolean:
		return x.Value, nil
	case *object.String:
		return x.Value, nil
	case *object.Array:
		out := make([]any, len(x.Elements))
		for i, el := range x.Elements {
			p, err := ToPlain(el)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case *object.Object:
		out := make(map[string]any, len(x.Keys))
		for _, k := range x.Keys {
			p, err := ToPlain(x.Values[k])
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case *OperationChainValue:
		return ToPlain(x.LastResult)
	default:
		return nil, errors.New("DSL-0005", map[string]any{"Value": v.Inspect()})
	}
}

// FromPlain converts a plain Go value (as returned by a driver) back into a
// runtime Value. Maps are rendered with lexicographically sorted keys,
// since a driver round-trip has no source insertion order to preserve.
// Per the driver contract, a time.Time is rendered as an ISO-8601 string
// (Datascript has no Date type distinct from string); any other value that
// implements fmt.Stringer (an ObjectId-like driver id type) is rendered via
// its String() form rather than falling through to Null.
func FromPlain(v any) object.Value {
	switch x := v.(type) {
	case nil:
		return object.NullValue
	case float64:
		return &object.Number{Value: x}
	case int:
		return &object.Number{Value: float64(x)}
	case int64:
		return &object.Number{Value: float64(x)}
	case bool:
		return object.BoolValue(x)
	case string:
		return &object.String{Value: x}
	case time.Time:
		return &object.String{Value: x.UTC().Format(time.RFC3339)}
	case []any:
		elems := make([]object.Value, len(x))
		for i, el := range x {
			elems[i] = FromPlain(el)
		}
		return &object.Array{Elements: elems}
	case map[string]any:
		obj := object.NewObject()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, FromPlain(x[k]))
		}
		return obj
	case []map[string]any:
		elems := make([]object.Value, len(x))
		for i, el := range x {
			elems[i] = FromPlain(el)
		}
		return &object.Array{Elements: elems}
	default:
		if s, ok := v.(fmt.Stringer); ok {
			return &object.String{Value: s.String()}
		}
		return object.NullValue
	}
}

func asPlainMapArg(v object.Value, nullMeansEmpty bool) (map[string]any, *errors.ScriptError) {
	if _, isNull := v.(*object.Null); isNull && nullMeansEmpty {
		return map[string]any{}, nil
	}
	plain, err := ToPlain(v)
	if err != nil {
		return nil, err
	}
	m, ok := plain.(map[string]any)
	if !ok {
		return nil, errors.New("DSL-0002", map[string]any{"Got": string(v.Kind())})
	}
	return m, nil
}

// AsFilter converts a DSL filter operand: null means "match everything".
func AsFilter(v object.Value) (map[string]any, *errors.ScriptError) {
	return asPlainMapArg(Unwrap(v), true)
}

// AsDocument converts a DSL document operand (insert/update payload): must
// be an object, never null.
func AsDocument(v object.Value) (map[string]any, *errors.ScriptError) {
	return asPlainMapArg(Unwrap(v), false)
}

// AsPipeline converts a DSL pipeline operand: must be an array of stage
// documents.
func AsPipeline(v object.Value) ([]any, *errors.ScriptError) {
	unwrapped := Unwrap(v)
	arr, ok := unwrapped.(*object.Array)
	if !ok {
		return nil, errors.New("DSL-0003", map[string]any{"Got": string(unwrapped.Kind())})
	}
	out := make([]any, len(arr.Elements))
	for i, el := range arr.Elements {
		p, err := ToPlain(el)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// ---- Query builder ----------------------------------------------------------

var comparatorOps = map[string]string{
	"!=": "$ne", "<": "$lt", "<=": "$lte", ">": "$gt", ">=": "$gte",
}

// Condition is one lowered `field op value` clause.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// BuildQuery lowers a list of conditions into a single query document,
// following the `==` vs comparator merge rule: plain equality on a field
// with no condition yet stores the bare value, equality on a field that
// already holds comparators is added as `$eq`, and a comparator arriving
// after a bare value moves that value under `$eq` beside it.
func BuildQuery(conditions []Condition) map[string]any {
	query := map[string]any{}
	for _, c := range conditions {
		applyCondition(query, c.Field, c.Operator, c.Value)
	}
	return query
}

func applyCondition(query map[string]any, field, op string, value any) {
	existing, exists := query[field]
	if op == "==" {
		if m, ok := existing.(map[string]any); ok {
			m["$eq"] = value
			return
		}
		query[field] = value
		return
	}
	opKey := comparatorOps[op]
	if m, ok := existing.(map[string]any); ok {
		m[opKey] = value
		return
	}
	m := map[string]any{}
	if exists {
		m["$eq"] = existing
	}
	m[opKey] = value
	query[field] = m
}

// ---- Stage/query helper natives ----------------------------------------------

func comparatorHelper(op string) func(field string, value any) map[string]any {
	return func(field string, value any) map[string]any {
		m := map[string]any{}
		applyCondition(m, field, op, value)
		return m
	}
}

var (
	Eq  = comparatorHelper("==")
	Ne  = comparatorHelper("!=")
	Gt  = comparatorHelper(">")
	Gte = comparatorHelper(">=")
	Lt  = comparatorHelper("<")
	Lte = comparatorHelper("<=")
)

// Combine builds `{ $and|$or: [...] }` from either a single array argument
// or varargs of condition documents.
func Combine(op string, conds []any) map[string]any {
	if len(conds) == 1 {
		if arr, ok := conds[0].([]any); ok {
			conds = arr
		}
	}
	return map[string]any{op: conds}
}

// Stage wraps a payload in a single-key `{ $name: payload }` pipeline
// stage, used for match/project/sort/limit/skip/group/addFields.
func Stage(name string, payload any) map[string]any {
	return map[string]any{"$" + name: payload}
}

// CountStage builds `{ $count: name }`.
func CountStage(name string) map[string]any {
	return map[string]any{"$count": name}
}

// LookupStage builds a `$lookup` stage from the four strings (from,
// localField, foreignField, as). The `lookup` native also accepts a single
// object and reads those four keys from it before calling this.
func LookupStage(from, localField, foreignField, as string) map[string]any {
	return Stage("lookup", map[string]any{
		"from": from, "localField": localField, "foreignField": foreignField, "as": as,
	})
}

// UnwindStage builds a `$unwind` stage from a path string, auto-prefixing
// `$` if the caller didn't already.
func UnwindStage(path string) map[string]any {
	if len(path) == 0 || path[0] != '$' {
		path = "$" + path
	}
	return Stage("unwind", path)
}

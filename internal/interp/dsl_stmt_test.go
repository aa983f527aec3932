package interp

import (
	"testing"

	"github.com/datascript-lang/datascript/internal/dsl"
	"github.com/datascript-lang/datascript/internal/object"
	dserrors "github.com/datascript-lang/datascript/pkg/datascript/errors"
	"github.com/datascript-lang/datascript/pkg/datascript/parser"
)

// fakeCursor/fakeCollection/fakeDatabase/fakeConnector are minimal in-memory
// stand-ins for the dsl driver interfaces, letting database/collection/using
// statements be exercised without a real store.
type fakeCursor struct{ docs []map[string]any }

func (c *fakeCursor) ToArray() ([]map[string]any, error) { return c.docs, nil }

type fakeCollection struct {
	name string
	docs []map[string]any
}

func (c *fakeCollection) Name() string { return c.name }
func (c *fakeCollection) FindOne(filter, opts map[string]any) (map[string]any, error) {
	if len(c.docs) == 0 {
		return nil, nil
	}
	return c.docs[0], nil
}
func (c *fakeCollection) FindMany(filter map[string]any, opts map[string]any) (dsl.Cursor, error) {
	return &fakeCursor{docs: c.docs}, nil
}
func (c *fakeCollection) InsertOne(doc map[string]any) (string, error) {
	c.docs = append(c.docs, doc)
	return "id-1", nil
}
func (c *fakeCollection) InsertMany(docs []map[string]any) ([]string, error) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		c.docs = append(c.docs, d)
		ids[i] = "id"
	}
	return ids, nil
}
func (c *fakeCollection) UpdateOne(filter, update map[string]any, opts map[string]any) (dsl.UpdateResult, error) {
	return dsl.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}
func (c *fakeCollection) UpdateMany(filter, update map[string]any, opts map[string]any) (dsl.UpdateResult, error) {
	return dsl.UpdateResult{MatchedCount: len(c.docs), ModifiedCount: len(c.docs)}, nil
}
func (c *fakeCollection) DeleteOne(filter map[string]any) (int, error)  { return 1, nil }
func (c *fakeCollection) DeleteMany(filter map[string]any) (int, error) { return len(c.docs), nil }
func (c *fakeCollection) CountDocuments(filter map[string]any) (int, error) {
	return len(c.docs), nil
}
func (c *fakeCollection) Aggregate(pipeline []any) (dsl.Cursor, error) {
	return &fakeCursor{docs: c.docs}, nil
}

type fakeDatabase struct {
	name        string
	uri         string
	collections map[string]*fakeCollection
	closed      bool
}

func newFakeDatabase(name, uri string) *fakeDatabase {
	return &fakeDatabase{name: name, uri: uri, collections: make(map[string]*fakeCollection)}
}
func (d *fakeDatabase) Name() string { return d.name }
func (d *fakeDatabase) URI() string  { return d.uri }
func (d *fakeDatabase) Collection(name string) (dsl.CollectionHandle, error) {
	c, ok := d.collections[name]
	if !ok {
		c = &fakeCollection{name: name}
		d.collections[name] = c
	}
	return c, nil
}
func (d *fakeDatabase) Close() error { d.closed = true; return nil }

type fakeConnector struct {
	db  *fakeDatabase
	err error
}

func (c *fakeConnector) Connect(uri, dbName string) (dsl.DatabaseHandle, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.db, nil
}

func evalDSL(t *testing.T, ctx *Context, src string) (object.Value, *dserrors.ScriptError) {
	t.Helper()
	prog, perr := parser.ParseNamed(src, "<test>")
	if perr != nil {
		t.Fatalf("parse error: %s", perr.String())
	}
	env := NewEnclosedEnvironment(ctx.Global)
	return EvalProgramResult(prog, env, ctx)
}

func TestUsingMongoWithoutConnectorIsFatal(t *testing.T) {
	ctx := NewContext(t.TempDir())
	_, serr := evalDSL(t, ctx, `using mongo from "fake://x" { }`)
	if serr == nil || serr.Class != dserrors.ClassDSL {
		t.Fatalf("expected a ClassDSL error, got %v", serr)
	}
}

func TestUsingMongoBindsAliasAndRestoresAfterBody(t *testing.T) {
	ctx := NewContext(t.TempDir())
	ctx.Connector = &fakeConnector{db: newFakeDatabase("shop", "fake://x")}

	result, serr := evalDSL(t, ctx, `
		declare seen = null;
		using mongo from "fake://x" as store {
			seen = store;
		}
		seen;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result.Kind() != dsl.DatabaseHandleKind {
		t.Errorf("got %v (%s), want a databaseHandle", result.Inspect(), result.Kind())
	}
	if ctx.ActiveDatabase() != nil {
		t.Error("expected the active database to be cleared once the using block exits")
	}
}

func TestUsingMongoClosesConnectionOnBodyError(t *testing.T) {
	db := newFakeDatabase("shop", "fake://x")
	ctx := NewContext(t.TempDir())
	ctx.Connector = &fakeConnector{db: db}

	_, serr := evalDSL(t, ctx, `
		using mongo from "fake://x" {
			throw "boom";
		}
	`)
	if serr == nil || serr.Class != dserrors.ClassThrown {
		t.Fatalf("expected the body's throw to propagate out, got %v", serr)
	}
	if !db.closed {
		t.Error("expected the connection to be closed even though the body threw")
	}
}

func TestDatabaseStatementRejectsNonHandleValue(t *testing.T) {
	ctx := NewContext(t.TempDir())
	_, serr := evalDSL(t, ctx, `database db = 5;`)
	if serr == nil || serr.Class != dserrors.ClassType {
		t.Fatalf("expected a ClassType error, got %v", serr)
	}
}

func TestDatabaseStatementBindsAndActivates(t *testing.T) {
	ctx := NewContext(t.TempDir())
	fakeDB := &dsl.DatabaseHandleValue{Handle: newFakeDatabase("shop", "fake://x"), Collections: make(map[string]*dsl.CollectionHandleValue)}
	ctx.Global.DeclareVar("rawDB", fakeDB, true)

	result, serr := evalDSL(t, ctx, `
		database store = rawDB;
		store;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result != object.Value(fakeDB) {
		t.Error("expected the bound identifier to be the same handle")
	}
	if ctx.ActiveDatabase() != fakeDB {
		t.Error("expected the database statement to activate the handle")
	}
}

func TestCollectionStatementDerivesFromActiveDatabase(t *testing.T) {
	ctx := NewContext(t.TempDir())
	fakeDB := &dsl.DatabaseHandleValue{Handle: newFakeDatabase("shop", "fake://x"), Collections: make(map[string]*dsl.CollectionHandleValue)}
	ctx.SetActiveDatabase(fakeDB)

	result, serr := evalDSL(t, ctx, `
		collection users;
		users;
	`)
	if serr != nil {
		t.Fatalf("eval error: %s", serr.String())
	}
	if result.Kind() != dsl.CollectionHandleKind {
		t.Errorf("got %s, want a collectionHandle", result.Kind())
	}
	if _, ok := ctx.LookupCollection("users"); !ok {
		t.Error("expected the collection to be registered on the context")
	}
}

func TestCollectionStatementWithoutActiveDatabaseIsFatal(t *testing.T) {
	ctx := NewContext(t.TempDir())
	_, serr := evalDSL(t, ctx, `collection users;`)
	if serr == nil || serr.Class != dserrors.ClassDSL {
		t.Fatalf("expected a ClassDSL error, got %v", serr)
	}
}

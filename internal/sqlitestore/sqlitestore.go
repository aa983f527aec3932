// Package sqlitestore is a reference implementation of internal/dsl's
// driver interfaces (Connector/DatabaseHandle/CollectionHandle/Cursor): a
// connection cache guarding modernc.org/sqlite *sql.DB handles, creating
// each collection's table on first open. Documents are stored as one JSON
// blob per row; filter/pipeline evaluation happens in Go over the decoded
// documents rather than being translated to SQL, since the document
// shapes a script can produce are arbitrary and untyped.
package sqlitestore

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/datascript-lang/datascript/internal/dsl"
)

// Connector opens (or reuses) a *sql.DB for a URI and wraps it as a
// dsl.DatabaseHandle. A single Connector is safe for concurrent use.
type Connector struct {
	cache *connectionCache
}

// NewConnector returns a Connector whose underlying *sql.DB handles are
// pooled with a 30 minute TTL.
func NewConnector() *Connector {
	return &Connector{cache: newConnectionCache(100, 30*time.Minute)}
}

// Connect implements dsl.Connector. uri is a modernc.org/sqlite DSN (a file
// path, "file::memory:?cache=shared", etc); dbName defaults to "default".
func (c *Connector) Connect(uri string, dbName string) (dsl.DatabaseHandle, error) {
	if dbName == "" {
		dbName = "default"
	}
	db, err := c.cache.get(uri, func() (*sql.DB, error) { return openDB(uri) })
	if err != nil {
		return nil, fmt.Errorf("connecting to %q: %w", uri, err)
	}
	return &Database{uri: uri, name: dbName, db: db, cache: c.cache, collections: map[string]*Collection{}}, nil
}

// Close shuts down every pooled connection. Not part of dsl.Connector; a
// host calls this on process shutdown.
func (c *Connector) Close() error { return c.cache.closeAll() }

func openDB(uri string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Database implements dsl.DatabaseHandle over a shared *sql.DB; Close
// releases this handle's share of the pooled connection rather than
// necessarily closing the underlying *sql.DB (other handles may share it).
type Database struct {
	mu          sync.Mutex
	uri         string
	name        string
	db          *sql.DB
	cache       *connectionCache
	collections map[string]*Collection
}

func (d *Database) Name() string { return d.name }
func (d *Database) URI() string  { return d.uri }

// Collection implements dsl.DatabaseHandle.Collection: it creates the
// backing table on first use and caches the handle for subsequent calls.
func (d *Database) Collection(name string) (dsl.CollectionHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if col, ok := d.collections[name]; ok {
		return col, nil
	}
	if err := createCollectionTable(d.db, name); err != nil {
		return nil, err
	}
	col := &Collection{name: name, db: d.db}
	col.sibling = func(siblingName string) (*Collection, error) {
		handle, err := d.Collection(siblingName)
		if err != nil {
			return nil, err
		}
		return handle.(*Collection), nil
	}
	d.collections[name] = col
	return col, nil
}

// Close releases this Database's reference on the pooled *sql.DB.
func (d *Database) Close() error {
	return d.cache.release(d.uri)
}

func createCollectionTable(db *sql.DB, name string) error {
	stmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)`,
		quoteIdent(name),
	)
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("creating collection %q: %w", name, err)
	}
	return nil
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes.
// Collection names come from source identifiers (ast.Identifier), never
// arbitrary user input, but this keeps the generated SQL well-formed
// regardless.
func quoteIdent(name string) string {
	escaped := ""
	for _, r := range name {
		if r == '"' {
			escaped += `""`
			continue
		}
		escaped += string(r)
	}
	return `"` + escaped + `"`
}

func generateID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

func decodeDoc(raw string, id string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decoding stored document: %w", err)
	}
	doc["_id"] = id
	return doc, nil
}

func encodeDoc(doc map[string]any) (string, error) {
	stripped := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		stripped[k] = v
	}
	b, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}
	return string(b), nil
}

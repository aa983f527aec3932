package sqlitestore

import (
	"database/sql"
	"fmt"

	"github.com/datascript-lang/datascript/internal/dsl"
)

// Collection implements dsl.CollectionHandle over a single-table,
// JSON-blob-per-row store. Filter/update evaluation happens in Go
// (see filter.go/update.go) rather than as generated SQL, so the store
// matches whatever document shape a script constructs.
type Collection struct {
	name    string
	db      *sql.DB
	sibling func(name string) (*Collection, error)
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) scanAll() ([]map[string]any, error) {
	rows, err := c.db.Query(fmt.Sprintf(`SELECT id, doc FROM %s`, quoteIdent(c.name)))
	if err != nil {
		return nil, fmt.Errorf("scanning %q: %w", c.name, err)
	}
	defer rows.Close()

	var docs []map[string]any
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("reading row in %q: %w", c.name, err)
		}
		doc, err := decodeDoc(raw, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *Collection) FindOne(filter map[string]any, opts map[string]any) (map[string]any, error) {
	docs, err := c.scanAll()
	if err != nil {
		return nil, err
	}
	matched := applyFindOptions(filterDocs(docs, filter), opts)
	if len(matched) == 0 {
		return nil, nil
	}
	return matched[0], nil
}

func (c *Collection) FindMany(filter map[string]any, opts map[string]any) (dsl.Cursor, error) {
	docs, err := c.scanAll()
	if err != nil {
		return nil, err
	}
	return &sliceCursor{docs: applyFindOptions(filterDocs(docs, filter), opts)}, nil
}

func (c *Collection) InsertOne(doc map[string]any) (string, error) {
	id := generateID()
	raw, err := encodeDoc(doc)
	if err != nil {
		return "", err
	}
	_, err = c.db.Exec(fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (?, ?)`, quoteIdent(c.name)), id, raw)
	if err != nil {
		return "", fmt.Errorf("inserting into %q: %w", c.name, err)
	}
	return id, nil
}

func (c *Collection) InsertMany(docs []map[string]any) ([]string, error) {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		id, err := c.InsertOne(doc)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (c *Collection) UpdateOne(filter, update map[string]any, opts map[string]any) (dsl.UpdateResult, error) {
	return c.doUpdate(filter, update, opts, false)
}

func (c *Collection) UpdateMany(filter, update map[string]any, opts map[string]any) (dsl.UpdateResult, error) {
	return c.doUpdate(filter, update, opts, true)
}

func (c *Collection) doUpdate(filter, update map[string]any, opts map[string]any, many bool) (dsl.UpdateResult, error) {
	docs, err := c.scanAll()
	if err != nil {
		return dsl.UpdateResult{}, err
	}
	matched := filterDocs(docs, filter)
	result := dsl.UpdateResult{}
	if len(matched) == 0 {
		if upsert, _ := opts["upsert"].(bool); upsert {
			return c.upsert(filter, update)
		}
		return result, nil
	}
	if !many {
		matched = matched[:1]
	}
	for _, doc := range matched {
		id, _ := doc["_id"].(string)
		applyUpdate(doc, update)
		raw, err := encodeDoc(doc)
		if err != nil {
			return result, err
		}
		if _, err := c.db.Exec(fmt.Sprintf(`UPDATE %s SET doc = ? WHERE id = ?`, quoteIdent(c.name)), raw, id); err != nil {
			return result, fmt.Errorf("updating %q: %w", c.name, err)
		}
		result.MatchedCount++
		result.ModifiedCount++
	}
	return result, nil
}

func (c *Collection) upsert(filter, update map[string]any) (dsl.UpdateResult, error) {
	doc := map[string]any{}
	for k, v := range filter {
		if len(k) > 0 && k[0] != '$' {
			doc[k] = v
		}
	}
	applyUpdate(doc, update)
	id, err := c.InsertOne(doc)
	if err != nil {
		return dsl.UpdateResult{}, err
	}
	return dsl.UpdateResult{UpsertedCount: 1, UpsertedID: id}, nil
}

func (c *Collection) DeleteOne(filter map[string]any) (int, error) {
	return c.doDelete(filter, false)
}

func (c *Collection) DeleteMany(filter map[string]any) (int, error) {
	return c.doDelete(filter, true)
}

func (c *Collection) doDelete(filter map[string]any, many bool) (int, error) {
	docs, err := c.scanAll()
	if err != nil {
		return 0, err
	}
	matched := filterDocs(docs, filter)
	if len(matched) == 0 {
		return 0, nil
	}
	if !many {
		matched = matched[:1]
	}
	for _, doc := range matched {
		id, _ := doc["_id"].(string)
		if _, err := c.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, quoteIdent(c.name)), id); err != nil {
			return 0, fmt.Errorf("deleting from %q: %w", c.name, err)
		}
	}
	return len(matched), nil
}

func (c *Collection) CountDocuments(filter map[string]any) (int, error) {
	docs, err := c.scanAll()
	if err != nil {
		return 0, err
	}
	return len(filterDocs(docs, filter)), nil
}

func (c *Collection) Aggregate(pipeline []any) (dsl.Cursor, error) {
	docs, err := c.scanAll()
	if err != nil {
		return nil, err
	}
	out, err := runPipeline(docs, pipeline, c.sibling)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{docs: out}, nil
}

// sliceCursor implements dsl.Cursor over an already-materialized slice.
type sliceCursor struct {
	docs []map[string]any
}

func (s *sliceCursor) ToArray() ([]map[string]any, error) { return s.docs, nil }

// Limit is an optional cursor method, not part of dsl.Cursor but
// convenient for a host embedding this driver directly.
func (s *sliceCursor) Limit(n int) *sliceCursor {
	if n >= 0 && n < len(s.docs) {
		s.docs = s.docs[:n]
	}
	return s
}

func applyFindOptions(docs []map[string]any, opts map[string]any) []map[string]any {
	if opts == nil {
		return docs
	}
	if sortSpec, ok := opts["sort"].(map[string]any); ok {
		docs = sortDocs(docs, sortSpec)
	}
	if limit, ok := asInt(opts["limit"]); ok && limit >= 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	if proj, ok := opts["projection"].(map[string]any); ok {
		docs = projectDocs(docs, proj)
	}
	return docs
}

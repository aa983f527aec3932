package sqlitestore

import (
	"testing"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	c := NewConnector()
	t.Cleanup(func() { c.Close() })
	handle, err := c.Connect("file:"+t.TempDir()+"/test.db", "testdb")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return handle.(*Database)
}

func TestInsertAndFindOne(t *testing.T) {
	db := newTestDB(t)
	col, err := db.Collection("widgets")
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	id, err := col.InsertOne(map[string]any{"name": "sprocket", "qty": 4.0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	doc, err := col.FindOne(map[string]any{"name": "sprocket"}, nil)
	if err != nil {
		t.Fatalf("findOne: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a match")
	}
	if doc["_id"] != id {
		t.Errorf("_id = %v, want %v", doc["_id"], id)
	}
	if doc["qty"] != 4.0 {
		t.Errorf("qty = %v, want 4", doc["qty"])
	}
}

func TestFindManyWithComparators(t *testing.T) {
	db := newTestDB(t)
	col, _ := db.Collection("items")
	col.InsertOne(map[string]any{"price": 10.0})
	col.InsertOne(map[string]any{"price": 20.0})
	col.InsertOne(map[string]any{"price": 30.0})

	cur, err := col.FindMany(map[string]any{"price": map[string]any{"$gt": 15.0}}, nil)
	if err != nil {
		t.Fatalf("findMany: %v", err)
	}
	docs, _ := cur.ToArray()
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
}

func TestUpdateOneSet(t *testing.T) {
	db := newTestDB(t)
	col, _ := db.Collection("users")
	col.InsertOne(map[string]any{"name": "ada", "active": false})

	result, err := col.UpdateOne(
		map[string]any{"name": "ada"},
		map[string]any{"$set": map[string]any{"active": true}},
		nil,
	)
	if err != nil {
		t.Fatalf("updateOne: %v", err)
	}
	if result.MatchedCount != 1 || result.ModifiedCount != 1 {
		t.Errorf("result = %+v", result)
	}
	doc, _ := col.FindOne(map[string]any{"name": "ada"}, nil)
	if doc["active"] != true {
		t.Errorf("active = %v, want true", doc["active"])
	}
}

func TestUpdateUpsert(t *testing.T) {
	db := newTestDB(t)
	col, _ := db.Collection("users")

	result, err := col.UpdateOne(
		map[string]any{"name": "grace"},
		map[string]any{"$set": map[string]any{"role": "admin"}},
		map[string]any{"upsert": true},
	)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if result.UpsertedCount != 1 {
		t.Errorf("upsertedCount = %d, want 1", result.UpsertedCount)
	}
	doc, _ := col.FindOne(map[string]any{"name": "grace"}, nil)
	if doc == nil || doc["role"] != "admin" {
		t.Errorf("doc = %v", doc)
	}
}

func TestDeleteMany(t *testing.T) {
	db := newTestDB(t)
	col, _ := db.Collection("logs")
	col.InsertOne(map[string]any{"level": "debug"})
	col.InsertOne(map[string]any{"level": "debug"})
	col.InsertOne(map[string]any{"level": "error"})

	n, err := col.DeleteMany(map[string]any{"level": "debug"})
	if err != nil {
		t.Fatalf("deleteMany: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	remaining, _ := col.CountDocuments(map[string]any{})
	if remaining != 1 {
		t.Errorf("remaining = %d, want 1", remaining)
	}
}

func TestAggregateMatchGroupSort(t *testing.T) {
	db := newTestDB(t)
	col, _ := db.Collection("orders")
	col.InsertOne(map[string]any{"region": "east", "total": 10.0})
	col.InsertOne(map[string]any{"region": "east", "total": 5.0})
	col.InsertOne(map[string]any{"region": "west", "total": 7.0})

	pipeline := []any{
		map[string]any{"$match": map[string]any{"total": map[string]any{"$gt": 0.0}}},
		map[string]any{"$group": map[string]any{
			"_id":   "$region",
			"total": map[string]any{"$sum": "$total"},
		}},
		map[string]any{"$sort": map[string]any{"_id": 1.0}},
	}
	cur, err := col.Aggregate(pipeline)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	docs, _ := cur.ToArray()
	if len(docs) != 2 {
		t.Fatalf("len = %d, want 2", len(docs))
	}
	if docs[0]["_id"] != "east" || docs[0]["total"] != 15.0 {
		t.Errorf("docs[0] = %v", docs[0])
	}
	if docs[1]["_id"] != "west" || docs[1]["total"] != 7.0 {
		t.Errorf("docs[1] = %v", docs[1])
	}
}

func TestAggregateLookup(t *testing.T) {
	db := newTestDB(t)
	orders, _ := db.Collection("orders2")
	customers, _ := db.Collection("customers")

	custID, _ := customers.InsertOne(map[string]any{"name": "ada"})
	orders.InsertOne(map[string]any{"customerId": custID, "total": 42.0})

	pipeline := []any{
		map[string]any{"$lookup": map[string]any{
			"from": "customers", "localField": "customerId",
			"foreignField": "_id", "as": "customer",
		}},
	}
	cur, err := orders.Aggregate(pipeline)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	docs, _ := cur.ToArray()
	if len(docs) != 1 {
		t.Fatalf("len = %d", len(docs))
	}
	matched, ok := docs[0]["customer"].([]any)
	if !ok || len(matched) != 1 {
		t.Fatalf("customer = %v", docs[0]["customer"])
	}
}

func TestConnectionCacheSharesAndReleases(t *testing.T) {
	dir := t.TempDir()
	c := NewConnector()
	defer c.Close()

	a, err := c.Connect("file:"+dir+"/shared.db", "")
	if err != nil {
		t.Fatalf("connect a: %v", err)
	}
	b, err := c.Connect("file:"+dir+"/shared.db", "")
	if err != nil {
		t.Fatalf("connect b: %v", err)
	}
	if c.cache.size() != 1 {
		t.Fatalf("cache size = %d, want 1 (shared DSN)", c.cache.size())
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close a: %v", err)
	}
	if c.cache.size() != 1 {
		t.Fatalf("cache size after one release = %d, want 1 (b still holds it)", c.cache.size())
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close b: %v", err)
	}
	if c.cache.size() != 0 {
		t.Fatalf("cache size after final release = %d, want 0", c.cache.size())
	}
}

package index

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sitedesk/internal/collection"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "sitedesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSource lays out a repo with assets/data and opens a store over it.
func testSource(t *testing.T) (*storage.Root, *collection.Store) {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, "assets", "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	root, err := storage.Resolve(repo)
	if err != nil {
		t.Fatal(err)
	}
	store, err := collection.Open(root, collection.WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

func writeCollection(t *testing.T, root *storage.Root, kind, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root.DataDir, kind+".json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"collections", "records"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceKindAndChecksum(t *testing.T) {
	db := testDB(t)
	rows := []RecordRow{
		{ID: "a", Title: "Alpha", Body: "first body"},
		{ID: "b", Title: "Beta", Body: "second body"},
	}
	if err := db.ReplaceKind("music", "cs1", rows); err != nil {
		t.Fatalf("ReplaceKind: %v", err)
	}
	cs, err := db.KindChecksum("music")
	if err != nil || cs != "cs1" {
		t.Errorf("checksum = %q, %v", cs, err)
	}
	if n, _ := db.CountRecords("music"); n != 2 {
		t.Errorf("count = %d", n)
	}

	if err := db.ReplaceKind("music", "cs2", rows[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CountRecords("music"); n != 1 {
		t.Errorf("count after replace = %d", n)
	}
	all, _ := db.AllChecksums()
	if all["music"] != "cs2" {
		t.Errorf("all = %v", all)
	}
}

func TestDeleteKind(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceKind("live", "x", []RecordRow{{ID: "l1", Title: "Show"}})
	if err := db.DeleteKind("live"); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.KindChecksum("live"); cs != "" {
		t.Errorf("checksum after delete = %q", cs)
	}
	if n, _ := db.CountRecords("live"); n != 0 {
		t.Errorf("rows after delete = %d", n)
	}
}

func TestKindChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.KindChecksum("nothing")
	if err != nil || cs != "" {
		t.Errorf("cs = %q, err = %v", cs, err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceKind("topics", "1", []RecordRow{
		{ID: "t1", Title: "Release news", Date: "2024-01-01", Body: "uniqueword appears here"},
		{ID: "t2", Title: "Other", Body: "nothing"},
	})
	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Kind != "topics" || results[0].ID != "t1" {
		t.Errorf("results = %+v", results)
	}
}

func TestRows(t *testing.T) {
	mk := func(js string) *record.Record {
		r, err := record.FromJSON([]byte(js))
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	recs := []*record.Record{
		mk(`{"id":"l1","title":"Tour","date":"2024-02-02","note":"","description":"legacy"}`),
		mk(`{"title":"no id"}`),
		mk(`{"id":"l1","title":"dup"}`),
		mk(`{"id":"l2","note":"memo"}`),
	}
	rows := Rows("live", recs)
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Body != "legacy" || rows[0].Date != "2024-02-02" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Body != "memo" {
		t.Errorf("row 1 = %+v", rows[1])
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	root, store := testSource(t)
	writeCollection(t, root, "music", `{"items":[{"id":"m1","title":"Song","description":"lyrical"}]}`)
	writeCollection(t, root, "topics", `[{"id":"t1","title":"News","content":"hello"}]`)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if n, _ := db.CountRecords("music"); n != 1 {
		t.Errorf("music rows = %d", n)
	}
	if n, _ := db.CountRecords("topics"); n != 1 {
		t.Errorf("topics rows = %d", n)
	}

	if err := os.Remove(filepath.Join(root.DataDir, "topics.json")); err != nil {
		t.Fatal(err)
	}
	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if cs, _ := db.KindChecksum("topics"); cs != "" {
		t.Error("removed collection still indexed")
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	db := testDB(t)
	root, store := testSource(t)
	writeCollection(t, root, "music", `[{"id":"m1"}]`)
	_ = Sync(db, store, quietLogger())

	// Tamper with the index; an unchanged file must not be reindexed.
	_ = db.ReplaceKind("music", mustChecksum(t, store, "music"), nil)
	_ = Sync(db, store, quietLogger())
	if n, _ := db.CountRecords("music"); n != 0 {
		t.Errorf("unchanged collection was reindexed: %d rows", n)
	}
}

func mustChecksum(t *testing.T, store *collection.Store, kind string) string {
	t.Helper()
	cs, err := store.Checksum(kind)
	if err != nil {
		t.Fatal(err)
	}
	return cs
}

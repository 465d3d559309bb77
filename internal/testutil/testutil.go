// Package testutil provides shared test helpers for setting up site
// repositories, collection stores and index databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/sitedesk/internal/collection"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/storage"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestRepo creates a temporary site repository with an assets/data directory
// and returns its resolved root.
func TestRepo(t *testing.T) *storage.Root {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, "assets", "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	root, err := storage.Resolve(repo)
	if err != nil {
		t.Fatal(err)
	}
	return root
}

// TestStore creates a temporary repository and a collection store over it.
func TestStore(t *testing.T, opts ...collection.Option) (*storage.Root, *collection.Store) {
	t.Helper()
	root := TestRepo(t)
	opts = append([]collection.Option{collection.WithLogger(Logger())}, opts...)
	store, err := collection.Open(root, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFile writes a file under the repository root, creating directories.
func WriteFile(t *testing.T, root *storage.Root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root.RepoRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ReadFile reads a file under the repository root.
func ReadFile(t *testing.T, root *storage.Root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root.RepoRoot, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestDB creates a temporary SQLite index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sitedesk-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

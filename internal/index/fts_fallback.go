//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// Without FTS5 the body column of records is searched with LIKE.
func initFTS(_ *sql.DB) error { return nil }

func ftsInsert(_ *sql.Tx, _ string, _ RecordRow) error { return nil }

func ftsDeleteKind(_ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search over titles, ids and bodies.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT kind, id, title, date, substr(body, 1, 200)
		FROM records
		WHERE title LIKE ? OR body LIKE ? OR id LIKE ?
		ORDER BY kind, position
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

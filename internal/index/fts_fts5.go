//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, kind string, r RecordRow) error {
	_, err := tx.Exec(`INSERT INTO records_fts (kind, id, title, body) VALUES (?, ?, ?, ?)`,
		kind, r.ID, r.Title, r.Body)
	if err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}
	return nil
}

func ftsDeleteKind(tx *sql.Tx, kind string) error {
	if _, err := tx.Exec(`DELETE FROM records_fts WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Search runs an FTS5 query and returns hits with highlighted snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.kind,
		       f.id,
		       f.title,
		       coalesce(r.date, ''),
		       snippet(records_fts, 3, '<b>', '</b>', '...', 32)
		FROM records_fts f
		LEFT JOIN records r ON r.kind = f.kind AND r.id = f.id
		WHERE records_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

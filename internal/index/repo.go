package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordRow is the searchable projection of one record.
type RecordRow struct {
	Kind  string
	ID    string
	Title string
	Date  string
	Body  string
}

// SearchResult is one search hit.
type SearchResult struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// ReplaceKind swaps every row of kind for rows and records the collection
// checksum, in one transaction.
func (db *DB) ReplaceKind(kind, checksum string, rows []RecordRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteKindTx(tx, kind); err != nil {
		return err
	}

	if len(rows) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO records (kind, id, position, title, date, body)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare record insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range rows {
			if _, err := stmt.Exec(kind, r.ID, i, r.Title, r.Date, r.Body); err != nil {
				return fmt.Errorf("index: insert record %s/%s: %w", kind, r.ID, err)
			}
			if err := ftsInsert(tx, kind, r); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO collections (kind, checksum, records, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			checksum   = excluded.checksum,
			records    = excluded.records,
			indexed_at = excluded.indexed_at
	`, kind, checksum, len(rows), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert collection: %w", err)
	}
	return tx.Commit()
}

// DeleteKind forgets a collection and all of its rows.
func (db *DB) DeleteKind(kind string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteKindTx(tx, kind); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM collections WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("index: delete collection: %w", err)
	}
	return tx.Commit()
}

func deleteKindTx(tx *sql.Tx, kind string) error {
	if err := ftsDeleteKind(tx, kind); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM records WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("index: delete records: %w", err)
	}
	return nil
}

// KindChecksum returns the checksum the collection was last indexed at, or
// "" when it was never indexed.
func (db *DB) KindChecksum(kind string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM collections WHERE kind = ?`, kind).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed kind to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT kind, checksum FROM collections`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, cs string
		if err := rows.Scan(&k, &cs); err != nil {
			return nil, err
		}
		out[k] = cs
	}
	return out, rows.Err()
}

// CountRecords returns the number of indexed rows of kind.
func (db *DB) CountRecords(kind string) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records WHERE kind = ?`, kind).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Kind, &r.ID, &r.Title, &r.Date, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

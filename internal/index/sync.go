package index

import (
	"log/slog"
	"strings"

	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

// Source is the collection store as seen by the index.
// *collection.Store satisfies it.
type Source interface {
	Kinds() ([]string, error)
	Checksum(kind string) (string, error)
	Read(kind string) ([]*record.Record, error)
	KindOfPath(p string) (string, bool)
}

// Sync brings the index up to date with the data directory:
//   - collections whose checksum changed are reindexed
//   - collections removed from disk are dropped
func Sync(db *DB, src Source, logger *slog.Logger) error {
	kinds, err := src.Kinds()
	if err != nil {
		return err
	}
	indexed, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		disk[kind] = struct{}{}

		cs, err := src.Checksum(kind)
		if err != nil {
			logger.Warn("sync: checksum failed", slog.String("kind", kind), slog.String("error", err.Error()))
			continue
		}
		if cs != "" && indexed[kind] == cs {
			continue
		}
		if err := IndexKind(db, src, kind); err != nil {
			logger.Warn("sync: index failed", slog.String("kind", kind), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("kind", kind))
		}
	}

	for kind := range indexed {
		if _, ok := disk[kind]; ok {
			continue
		}
		if err := db.DeleteKind(kind); err != nil {
			logger.Warn("sync: delete failed", slog.String("kind", kind), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("kind", kind))
		}
	}
	return nil
}

// IndexKind reads one collection and replaces its rows.
func IndexKind(db *DB, src Source, kind string) error {
	recs, err := src.Read(kind)
	if err != nil {
		return err
	}
	// Read may have repaired the file, so take the checksum afterwards.
	cs, err := src.Checksum(kind)
	if err != nil {
		return err
	}
	return db.ReplaceKind(kind, cs, Rows(kind, recs))
}

// Rows projects records onto index rows. Records without an id are skipped;
// a duplicated id keeps its first occurrence.
func Rows(kind string, recs []*record.Record) []RecordRow {
	bodyKeys := []string{schema.KeyDescription, "content", "note"}
	if s, err := schema.Lookup(kind); err == nil {
		bodyKeys = []string{s.BodyKey}
		if s.BodyKey != schema.KeyDescription {
			bodyKeys = append(bodyKeys, schema.KeyDescription)
		}
	}

	seen := make(map[string]struct{}, len(recs))
	out := make([]RecordRow, 0, len(recs))
	for _, r := range recs {
		id := strings.TrimSpace(r.ID())
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var body string
		for _, k := range bodyKeys {
			if body = strings.TrimSpace(r.Text(k)); body != "" {
				break
			}
		}
		out = append(out, RecordRow{
			Kind:  kind,
			ID:    id,
			Title: r.Text(schema.KeyTitle),
			Date:  r.Text(schema.KeyDate),
			Body:  body,
		})
	}
	return out
}

// Package collection reads and writes the per-kind JSON collections of the
// site and manages the image and lyrics side stores next to them.
//
// Every call goes to disk. Nothing is cached between calls, so edits made to
// the JSON files by other tools are picked up by the next read; concurrent
// writers race and the last one wins.
package collection

import (
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/checksum"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/storage"
)

const itemsKey = "items"

// Store is the file-backed collection store.
type Store struct {
	root      *storage.Root
	fs        storage.Provider
	dataRel   string // data dir relative to the repo root, slash separated
	imagesRel string
	repair    bool
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRepair enables or disables the lenient repair of malformed collection
// files on read. Enabled by default.
func WithRepair(enabled bool) Option {
	return func(s *Store) { s.repair = enabled }
}

// WithLogger sets the logger used for repair and asset events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a store over root using fsys, which must be rooted at
// root.RepoRoot.
func New(root *storage.Root, fsys storage.Provider, opts ...Option) (*Store, error) {
	s := &Store{
		root:   root,
		fs:     fsys,
		repair: true,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	var err error
	if s.dataRel, err = root.Rel(root.DataDir); err != nil {
		return nil, err
	}
	if s.imagesRel, err = root.Rel(root.ImagesDir); err != nil {
		return nil, err
	}
	s.logger = s.logger.With(slog.String("component", "collection"))
	return s, nil
}

// Open builds the file-system provider for root and returns a store over it.
func Open(root *storage.Root, opts ...Option) (*Store, error) {
	fsys, err := storage.NewFS(root.RepoRoot)
	if err != nil {
		return nil, err
	}
	return New(root, fsys, opts...)
}

// Root returns the resolved layout.
func (s *Store) Root() *storage.Root { return s.root }

func validKind(kind string) error {
	if strings.TrimSpace(kind) == "" {
		return apperr.Validation("collection", "kind is required")
	}
	if strings.ContainsAny(kind, `/\`) || strings.Contains(kind, "..") {
		return apperr.Validation("collection", "invalid kind %q", kind)
	}
	return nil
}

func (s *Store) collectionPath(kind string) string {
	return path.Join(s.dataRel, kind+".json")
}

// Read loads the collection for kind. A missing file is an empty collection.
// A leading byte-order mark is ignored. Malformed files go through
// lenientRepair; a successful repair is written
// back in canonical form before the records are returned.
func (s *Store) Read(kind string) ([]*record.Record, error) {
	if err := validKind(kind); err != nil {
		return nil, err
	}
	p := s.collectionPath(kind)
	data, err := s.fs.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*record.Record{}, nil
		}
		return nil, apperr.Wrap(apperr.ErrPersistence, "collection: read "+kind, err)
	}

	root, parseErr := record.Parse(stripBOM(data))
	if parseErr == nil {
		return extractItems(root), nil
	}

	if !s.repair {
		return nil, apperr.Wrap(apperr.ErrPersistence, "collection: parse "+kind, parseErr)
	}

	repaired := lenientRepair(string(stripBOM(data)))
	repairedRoot, err := record.Parse([]byte(repaired))
	if err != nil {
		s.logger.Warn("repair failed",
			slog.String("kind", kind),
			slog.String("error", parseErr.Error()))
		return nil, apperr.Wrap(apperr.ErrPersistence, "collection: parse "+kind, parseErr)
	}
	arr, ok := itemsArray(repairedRoot)
	if !ok {
		return nil, apperr.Wrap(apperr.ErrPersistence, "collection: parse "+kind, parseErr)
	}

	// Persist what the caller sees, including non-object elements, so the
	// repaired file and the next plain read agree.
	canonical := record.New()
	canonical.Set(itemsKey, record.ArrayValue(arr...))
	if err := s.writeCanonical(p, canonical); err != nil {
		return nil, err
	}
	s.logger.Warn("repaired malformed collection",
		slog.String("kind", kind),
		slog.Int("original_bytes", len(data)),
		slog.Int("repaired_bytes", len(repaired)),
		slog.String("parse_error", parseErr.Error()))
	return objectsOf(arr), nil
}

// Write replaces the whole collection file with the canonical
// {"items": [...]} form.
func (s *Store) Write(kind string, records []*record.Record) error {
	if err := validKind(kind); err != nil {
		return err
	}
	elems := make([]record.Value, 0, len(records))
	for _, r := range records {
		elems = append(elems, record.ObjectValue(r))
	}
	canonical := record.New()
	canonical.Set(itemsKey, record.ArrayValue(elems...))
	return s.writeCanonical(s.collectionPath(kind), canonical)
}

func (s *Store) writeCanonical(p string, doc *record.Record) error {
	out, err := record.MarshalIndent(record.ObjectValue(doc))
	if err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "collection: encode "+p, err)
	}
	out = append(out, '\n')
	if err := s.fs.Write(p, out); err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "collection: write "+p, err)
	}
	return nil
}

// Checksum returns the digest of the raw collection file, "" when absent.
func (s *Store) Checksum(kind string) (string, error) {
	if err := validKind(kind); err != nil {
		return "", err
	}
	data, err := s.fs.Read(s.collectionPath(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", apperr.Wrap(apperr.ErrPersistence, "collection: checksum "+kind, err)
	}
	return checksum.Sum(data), nil
}

// Kinds lists the collection files present in the data directory.
func (s *Store) Kinds() ([]string, error) {
	metas, err := s.fs.List(s.dataRel, ".json")
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "collection: list", err)
	}
	out := make([]string, 0, len(metas))
	for _, m := range metas {
		out = append(out, strings.TrimSuffix(path.Base(m.Path), ".json"))
	}
	return out, nil
}

// KindOfPath maps a path inside the data directory (absolute or repo
// relative) to its collection kind.
func (s *Store) KindOfPath(p string) (string, bool) {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}

func itemsArray(root record.Value) ([]record.Value, bool) {
	if arr, ok := root.Array(); ok {
		return arr, true
	}
	if obj, ok := root.Object(); ok {
		if v, ok := obj.Get(itemsKey); ok {
			return v.Array()
		}
	}
	return nil, false
}

func extractItems(root record.Value) []*record.Record {
	arr, ok := itemsArray(root)
	if !ok {
		return []*record.Record{}
	}
	return objectsOf(arr)
}

func objectsOf(arr []record.Value) []*record.Record {
	out := make([]*record.Record, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.Object(); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Package editor is the collaborator service behind the HTTP API and the MCP
// tools. Every call reads the collection file fresh, applies one change and
// writes the whole collection back.
package editor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/collection"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

// Searcher answers full-text queries. *index.DB satisfies it.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// ChangeFunc is told about every collection the service wrote.
// op is "created", "updated" or "deleted".
type ChangeFunc func(op, kind string)

// Service coordinates the collection store and the schema mapper.
type Service struct {
	store    *collection.Store
	mapper   *schema.Mapper
	search   Searcher
	onChange ChangeFunc
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSearch attaches a search index.
func WithSearch(s Searcher) Option {
	return func(svc *Service) { svc.search = s }
}

// WithChangeHook registers fn to run after each successful write.
func WithChangeHook(fn ChangeFunc) Option {
	return func(svc *Service) { svc.onChange = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// New creates a service over store.
func New(store *collection.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		mapper: schema.NewMapper(store),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "editor"))
	return s
}

// Store returns the underlying collection store.
func (s *Service) Store() *collection.Store { return s.store }

// Collection is a full collection snapshot.
type Collection struct {
	Kind     string           `json:"kind"`
	Checksum string           `json:"checksum"`
	Records  []*record.Record `json:"items"`
}

// KindInfo describes a kind and whether its collection file exists.
type KindInfo struct {
	schema.Contract
	Present bool `json:"present"`
}

// Kinds lists the known kinds in display order.
func (s *Service) Kinds(_ context.Context) ([]KindInfo, error) {
	present, err := s.store.Kinds()
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]bool, len(present))
	for _, k := range present {
		onDisk[k] = true
	}
	out := make([]KindInfo, 0, len(schema.Kinds()))
	for _, c := range schema.Contracts() {
		out = append(out, KindInfo{Contract: c, Present: onDisk[c.Kind]})
	}
	return out, nil
}

// ListCollection reads the whole collection of kind.
func (s *Service) ListCollection(_ context.Context, kind string) (*Collection, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.Read(spec.Kind)
	if err != nil {
		return nil, err
	}
	cs, err := s.store.Checksum(spec.Kind)
	if err != nil {
		return nil, err
	}
	return &Collection{Kind: spec.Kind, Checksum: cs, Records: recs}, nil
}

// SaveCollection replaces the collection with records. A non-empty ifMatch
// must equal the checksum of the file on disk. Every record needs a unique,
// non-blank id. It returns the new checksum.
func (s *Service) SaveCollection(_ context.Context, kind string, records []*record.Record, ifMatch string) (string, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return "", err
	}
	if err := validateCollection(records); err != nil {
		return "", err
	}
	if ifMatch != "" {
		cs, err := s.store.Checksum(spec.Kind)
		if err != nil {
			return "", err
		}
		if cs != ifMatch {
			return "", apperr.Wrap(apperr.ErrConflict, "editor: save collection "+spec.Kind, nil)
		}
	}
	if err := s.store.Write(spec.Kind, records); err != nil {
		return "", err
	}
	s.changed("updated", spec.Kind)
	return s.store.Checksum(spec.Kind)
}

// DeleteRecord removes the record with id from the collection. A blank id
// is a validation error.
func (s *Service) DeleteRecord(_ context.Context, kind, id string) error {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("editor: delete", "id is required")
	}
	list, err := s.store.Read(spec.Kind)
	if err != nil {
		return err
	}
	list, found := schema.Remove(list, id)
	if !found {
		return apperr.Wrap(apperr.ErrNotFound, "editor: delete "+spec.Kind+"/"+id, nil)
	}
	if err := s.store.Write(spec.Kind, list); err != nil {
		return err
	}
	s.logger.Info("record deleted", slog.String("kind", spec.Kind), slog.String("id", id))
	s.changed("deleted", spec.Kind)
	return nil
}

// ImportAsset copies a local image into the images directory and returns
// the repo-relative path to put in a record.
func (s *Service) ImportAsset(_ context.Context, path string) (string, error) {
	return s.store.ImportImage(path)
}

// PopulateFields builds the editable view of rec (nil for a new record).
func (s *Service) PopulateFields(kind string, rec *record.Record) (schema.Fields, error) {
	return s.mapper.Populate(kind, rec)
}

// SerializeFields previews the record that saving fields onto base would
// produce. Nothing is written.
func (s *Service) SerializeFields(kind string, base *record.Record, fields schema.Fields, raw string) (*record.Record, error) {
	return s.mapper.Serialize(kind, base, fields, raw)
}

// Search queries the attached index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.search == nil {
		return nil, apperr.Validation("editor: search", "no search index configured")
	}
	res, err := s.search.Search(query, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrPersistence, "editor: search", err)
	}
	return res, nil
}

func (s *Service) changed(op, kind string) {
	if s.onChange != nil {
		s.onChange(op, kind)
	}
}

package editor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

// RecordDetail is one record with its editable view.
type RecordDetail struct {
	Kind     string         `json:"kind"`
	Position int            `json:"position"`
	Fields   schema.Fields  `json:"fields"`
	Record   *record.Record `json:"record"`
}

// SaveRequest carries one record edit.
type SaveRequest struct {
	Fields schema.Fields `json:"fields"`
	// Raw is a JSON object merged after the fields. Keys managed or
	// stripped by the kind are skipped; non-object input is ignored.
	Raw   string `json:"raw,omitempty"`
	IsNew bool   `json:"is_new"`
}

// GetRecord returns the record with id.
func (s *Service) GetRecord(_ context.Context, kind, id string) (*RecordDetail, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	list, err := s.store.Read(spec.Kind)
	if err != nil {
		return nil, err
	}
	i := schema.IndexOf(list, id)
	if i < 0 {
		return nil, apperr.Wrap(apperr.ErrNotFound, "editor: get "+spec.Kind+"/"+id, nil)
	}
	return s.detail(spec.Kind, i, list[i])
}

// SaveRecord creates (IsNew) or edits one record.
//
// Validation happens before any write. For music, the lyrics file is written
// first and the collection second; when the collection write fails the
// lyrics file is put back the way it was.
func (s *Service) SaveRecord(_ context.Context, kind string, req SaveRequest) (*RecordDetail, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return nil, err
	}
	f := req.Fields
	f.ID = strings.TrimSpace(f.ID)
	if err := validateFields(spec, &f); err != nil {
		return nil, err
	}

	list, err := s.store.Read(spec.Kind)
	if err != nil {
		return nil, err
	}
	i := schema.IndexOf(list, f.ID)
	var base *record.Record
	switch {
	case req.IsNew && i >= 0:
		return nil, apperr.Wrap(apperr.ErrAlreadyExists, "editor: create "+spec.Kind+"/"+f.ID, apperr.ErrValidation)
	case !req.IsNew && i < 0:
		return nil, apperr.Wrap(apperr.ErrNotFound, "editor: update "+spec.Kind+"/"+f.ID, nil)
	case i >= 0:
		base = list[i]
	}

	if strings.TrimSpace(req.Raw) != "" {
		if _, ok := schema.ParseOverlay(req.Raw); !ok {
			s.logger.Warn("raw overlay ignored", slog.String("kind", spec.Kind), slog.String("id", f.ID))
		}
	}
	rec, err := s.mapper.Serialize(spec.Kind, base, f, req.Raw)
	if err != nil {
		return nil, err
	}

	var undo func()
	if spec.Lyrics && strings.TrimSpace(f.Lyrics) != "" {
		if undo, err = s.stageLyrics(f.ID, f.Lyrics); err != nil {
			return nil, err
		}
	}

	list = schema.Upsert(list, rec)
	if err := s.store.Write(spec.Kind, list); err != nil {
		if undo != nil {
			undo()
		}
		return nil, err
	}

	op := "updated"
	if req.IsNew {
		op = "created"
	}
	s.logger.Info("record saved", slog.String("kind", spec.Kind), slog.String("id", f.ID), slog.String("op", op))
	s.changed(op, spec.Kind)
	return s.detail(spec.Kind, schema.IndexOf(list, f.ID), rec)
}

// stageLyrics writes the lyrics file of id and returns a func that restores
// the previous state.
func (s *Service) stageLyrics(id, text string) (func(), error) {
	ref, err := s.store.LyricsRef(id)
	if err != nil {
		return nil, err
	}
	prev, readErr := s.store.ReadLyrics(ref)
	hadPrev := readErr == nil
	if readErr != nil && !errors.Is(readErr, apperr.ErrNotFound) {
		return nil, readErr
	}

	if _, err := s.store.SaveLyrics(id, text); err != nil {
		return nil, err
	}
	return func() {
		var err error
		if hadPrev {
			_, err = s.store.SaveLyrics(id, prev)
		} else {
			err = s.store.RemoveLyrics(id)
		}
		if err != nil {
			s.logger.Error("lyrics rollback failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}, nil
}

func (s *Service) detail(kind string, pos int, rec *record.Record) (*RecordDetail, error) {
	f, err := s.mapper.Populate(kind, rec)
	if err != nil {
		return nil, err
	}
	return &RecordDetail{Kind: kind, Position: pos, Fields: f, Record: rec}, nil
}

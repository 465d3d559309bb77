package api

import (
	"github.com/starford/sitedesk/internal/editor"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

// KindsResponse lists every kind with its field contract.
type KindsResponse struct {
	Kinds []editor.KindInfo `json:"kinds"`
}

// CollectionResponse is a full collection snapshot (aliased from the domain layer).
type CollectionResponse = editor.Collection

// PutCollectionRequest replaces a whole collection.
type PutCollectionRequest struct {
	Items []*record.Record `json:"items"`
}

// PutCollectionResponse reports the checksum of the written collection.
type PutCollectionResponse struct {
	Kind     string `json:"kind"`
	Checksum string `json:"checksum"`
}

// RecordResponse is one record, its editable fields and the JSON of every
// key the fields do not cover.
type RecordResponse struct {
	*editor.RecordDetail
	Raw string `json:"raw"`
}

// SaveRecordRequest is the body of record create and update calls.
type SaveRecordRequest struct {
	Fields schema.Fields `json:"fields"`
	Raw    string        `json:"raw,omitempty"`
}

// SerializeRequest previews a save. When BaseID names an existing record
// the fields are applied on top of it.
type SerializeRequest struct {
	BaseID string        `json:"base_id,omitempty"`
	Fields schema.Fields `json:"fields"`
	Raw    string        `json:"raw,omitempty"`
}

// SerializeResponse carries the record a save would produce.
type SerializeResponse struct {
	Record *record.Record `json:"record"`
}

// PathRequest names a local file.
type PathRequest struct {
	Path string `json:"path"`
}

// ImageResponse is returned after an image import.
type ImageResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// AudioProbeResponse is a music record suggestion (aliased from the domain layer).
type AudioProbeResponse = editor.Suggestion

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// overlayOf renders the keys of rec that no field of kind manages, as the
// indented JSON object an editor shows in its raw pane.
func overlayOf(kind string, rec *record.Record) (string, error) {
	spec, err := schema.Lookup(kind)
	if err != nil {
		return "", err
	}
	extra := rec.Clone()
	for _, k := range rec.Keys() {
		if spec.Reserved(k) {
			extra.Delete(k)
		}
	}
	if extra.Len() == 0 {
		return "", nil
	}
	out, err := record.MarshalIndent(extra)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

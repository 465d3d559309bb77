package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/sitedesk/internal/checksum"
	"github.com/starford/sitedesk/internal/editor"
	"github.com/starford/sitedesk/internal/index"
	"github.com/starford/sitedesk/internal/record"
	"github.com/starford/sitedesk/internal/schema"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *editor.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *editor.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With(slog.String("component", "api"))}
}

// Kinds handles GET /kinds.
func (h *Handler) Kinds(w http.ResponseWriter, r *http.Request) {
	kinds, err := h.svc.Kinds(r.Context())
	if err != nil {
		writeError(w, h.logger, "list kinds failed", err)
		return
	}
	writeJSON(w, http.StatusOK, KindsResponse{Kinds: kinds})
}

// GetCollection handles GET /collections/{kind}.
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.ListCollection(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, "list collection failed", err)
		return
	}
	if c.Records == nil {
		c.Records = []*record.Record{}
	}
	if c.Checksum != "" {
		w.Header().Set("ETag", checksum.ETag(c.Checksum))
	}
	writeJSON(w, http.StatusOK, c)
}

// PutCollection handles PUT /collections/{kind}. If-Match, when present,
// must carry the checksum of the collection on disk.
func (h *Handler) PutCollection(w http.ResponseWriter, r *http.Request) {
	var req PutCollectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind := chi.URLParam(r, "kind")
	sum, err := h.svc.SaveCollection(r.Context(), kind, req.Items, checksum.ParseIfMatch(r.Header.Get("If-Match")))
	if err != nil {
		writeError(w, h.logger, "save collection failed", err)
		return
	}
	spec, _ := schema.Lookup(kind)
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, PutCollectionResponse{Kind: spec.Kind, Checksum: sum})
}

// GetRecord handles GET /collections/{kind}/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetRecord(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, "get record failed", err)
		return
	}
	h.writeRecord(w, http.StatusOK, d)
}

// CreateRecord handles POST /collections/{kind}/records.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.SaveRecord(r.Context(), chi.URLParam(r, "kind"), editor.SaveRequest{
		Fields: req.Fields,
		Raw:    req.Raw,
		IsNew:  true,
	})
	if err != nil {
		writeError(w, h.logger, "create record failed", err)
		return
	}
	h.writeRecord(w, http.StatusCreated, d)
}

// UpdateRecord handles PUT /collections/{kind}/records/{id}. The id in the
// path wins over the one in the body.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Fields.ID = chi.URLParam(r, "id")
	d, err := h.svc.SaveRecord(r.Context(), chi.URLParam(r, "kind"), editor.SaveRequest{
		Fields: req.Fields,
		Raw:    req.Raw,
	})
	if err != nil {
		writeError(w, h.logger, "update record failed", err)
		return
	}
	h.writeRecord(w, http.StatusOK, d)
}

// DeleteRecord handles DELETE /collections/{kind}/records/{id}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecord(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, "delete record failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Serialize handles POST /collections/{kind}/serialize. Nothing is written.
func (h *Handler) Serialize(w http.ResponseWriter, r *http.Request) {
	var req SerializeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind := chi.URLParam(r, "kind")
	var base *record.Record
	if req.BaseID != "" {
		d, err := h.svc.GetRecord(r.Context(), kind, req.BaseID)
		if err != nil {
			writeError(w, h.logger, "serialize failed", err)
			return
		}
		base = d.Record
	}
	rec, err := h.svc.SerializeFields(kind, base, req.Fields, req.Raw)
	if err != nil {
		writeError(w, h.logger, "serialize failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SerializeResponse{Record: rec})
}

// ImportMarkdown handles POST /collections/{kind}/markdown. The body is a
// Markdown document with optional YAML frontmatter.
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	d, err := h.svc.ImportMarkdown(r.Context(), chi.URLParam(r, "kind"), data)
	if err != nil {
		writeError(w, h.logger, "markdown import failed", err)
		return
	}
	h.writeRecord(w, http.StatusCreated, d)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, h.logger, "search failed", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (h *Handler) writeRecord(w http.ResponseWriter, status int, d *editor.RecordDetail) {
	raw, err := overlayOf(d.Kind, d.Record)
	if err != nil {
		writeError(w, h.logger, "render record failed", err)
		return
	}
	writeJSON(w, status, RecordResponse{RecordDetail: d, Raw: raw})
}

package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/sitedesk/internal/apperr"
	"github.com/starford/sitedesk/internal/editor"
)

const (
	maxUploadBytes = 50 << 20 // 50 MB
	imagesURL      = "/api/assets/images/"
)

// AssetHandler imports and serves images and probes audio files.
type AssetHandler struct {
	svc    *editor.Service
	logger *slog.Logger
}

// NewAssetHandler creates a handler over the service's images directory.
func NewAssetHandler(svc *editor.Service, logger *slog.Logger) *AssetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetHandler{svc: svc, logger: logger.With(slog.String("component", "api"))}
}

func (h *AssetHandler) imagesDir() string {
	return h.svc.Store().Root().ImagesDir
}

// plainName rejects anything that is not a bare file name.
func plainName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

// ServeImage handles GET /assets/images/{name}.
func (h *AssetHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name, err := plainName(chi.URLParam(r, "name"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	abs := filepath.Join(h.imagesDir(), name)
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// ImportImage handles POST /assets/images. It accepts either a multipart
// upload (field "file") or a JSON body naming a local path.
func (h *AssetHandler) ImportImage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		rel string
		err error
	)
	if mediaType == "multipart/form-data" {
		rel, err = h.importUpload(w, r)
	} else {
		var req PathRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		rel, err = h.svc.ImportAsset(r.Context(), req.Path)
	}
	if err != nil {
		writeError(w, h.logger, "image import failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImageResponse{Path: rel, URL: imagesURL + path.Base(rel)})
}

// importUpload stages the uploaded file under its own name in a temp
// directory so the import keeps that name.
func (h *AssetHandler) importUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", apperr.Validation("api: upload", "file too large or invalid multipart")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", apperr.Validation("api: upload", "missing 'file' field in multipart form")
	}
	defer file.Close()

	name, err := plainName(filepath.Base(header.Filename))
	if err != nil {
		return "", apperr.Validation("api: upload", "%v", err)
	}

	dir, err := os.MkdirTemp("", "sitedesk-upload-*")
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAssetIO, "api: upload", err)
	}
	defer os.RemoveAll(dir)

	staged := filepath.Join(dir, name)
	dst, err := os.Create(staged)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrAssetIO, "api: upload", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		return "", apperr.Wrap(apperr.ErrAssetIO, "api: upload", err)
	}
	if err := dst.Close(); err != nil {
		return "", apperr.Wrap(apperr.ErrAssetIO, "api: upload", err)
	}
	return h.svc.ImportAsset(r.Context(), staged)
}

// ProbeAudio handles POST /assets/audio/probe. The tags of the named file
// are mapped onto music fields; nothing is saved.
func (h *AssetHandler) ProbeAudio(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	s, err := h.svc.SuggestFromAudio(r.Context(), req.Path)
	if err != nil {
		writeError(w, h.logger, "audio probe failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

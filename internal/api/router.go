package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/sitedesk/internal/editor"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *editor.Service, authEnabled bool, token string, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	h := NewHandler(svc, logger)
	ah := NewAssetHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/kinds", h.Kinds)

	r.Route("/collections/{kind}", func(r chi.Router) {
		r.Get("/", h.GetCollection)
		r.Put("/", h.PutCollection)
		r.Post("/records", h.CreateRecord)
		r.Get("/records/{id}", h.GetRecord)
		r.Put("/records/{id}", h.UpdateRecord)
		r.Delete("/records/{id}", h.DeleteRecord)
		r.Post("/serialize", h.Serialize)
		r.Post("/markdown", h.ImportMarkdown)
	})

	r.Post("/assets/images", ah.ImportImage)
	r.Get("/assets/images/{name}", ah.ServeImage)
	r.Post("/assets/audio/probe", ah.ProbeAudio)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

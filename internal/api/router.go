package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/vault"
)

// NewRouter creates a chi router with all preview API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, v *vault.Vault, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	assets := NewAssetHandler(v)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Compiled documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)

	// HTML preview.
	r.Get("/preview/*", h.Preview)

	// Search and backlinks.
	r.Get("/search", h.Search)
	r.Get("/backlinks/*", h.Backlinks)

	// Vault assets under the canonical publish prefix.
	r.Get("/img/user/*", assets.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

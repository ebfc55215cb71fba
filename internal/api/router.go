package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veilchen/gitpress/internal/store"
	"github.com/veilchen/gitpress/internal/syncer"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *syncer.Service, db store.ContentStore, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, db)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Push pipeline.
	r.Post("/hooks/push", h.HandlePush)
	r.Post("/rebuild", h.Rebuild)

	// Synced content.
	r.Get("/articles", h.ListArticles)
	r.Get("/articles/{slug}", h.GetArticle)
	r.Get("/tags", h.ListTags)
	r.Get("/groups", h.ListGroups)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

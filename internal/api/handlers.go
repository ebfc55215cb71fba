package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veilchen/gitpress/internal/apperr"
	"github.com/veilchen/gitpress/internal/store"
	"github.com/veilchen/gitpress/internal/syncer"
)

// Handler holds API route handlers.
type Handler struct {
	svc *syncer.Service
	db  store.ContentStore
}

// NewHandler creates a new Handler.
func NewHandler(svc *syncer.Service, db store.ContentStore) *Handler {
	return &Handler{svc: svc, db: db}
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List synced articles with optional filtering
//	@Tags			articles
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			group	query		string	false	"Filter by group path"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.db.ListArticles(r.Context(), limit, offset, q.Get("group"), q.Get("tag"))
	if err != nil {
		slog.Error("list articles failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": items,
		"total":    total,
	})
}

// GetArticle handles GET /api/articles/{slug}.
//
//	@Summary		Get a single article by slug
//	@Tags			articles
//	@Produce		json
//	@Param			slug	path		string	true	"Article slug"
//	@Success		200		{object}	store.ArticleRow
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{slug} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	art, err := h.db.GetArticle(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get article failed", slog.String("slug", slug), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List all tags with article counts
//	@Tags			articles
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.db.ListTags(r.Context())
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if tags == nil {
		tags = []store.TagCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// ListGroups handles GET /api/groups.
//
//	@Summary		List all content groups
//	@Tags			groups
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/groups [get]
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.db.ListGroups(r.Context())
	if err != nil {
		slog.Error("list groups failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if groups == nil {
		groups = []store.GroupRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/veilchen/gitpress/internal/apperr"
	"github.com/veilchen/gitpress/internal/hook"
)

// HandlePush handles POST /api/hooks/push.
//
//	@Summary		Receive a push notification and run the sync pipeline
//	@Tags			hooks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		hook.PushPayload	true	"Push notification"
//	@Success		200		{object}	syncer.Result
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/hooks/push [post]
func (h *Handler) HandlePush(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var p hook.PushPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if p.Ref == "" || p.After == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("ref and after are required"))
		return
	}

	res, err := h.svc.HandlePush(r.Context(), p)
	if err != nil {
		h.writeSyncError(w, p.Ref, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rebuild handles POST /api/rebuild.
//
//	@Summary		Reset the store and resync from the repository
//	@Tags			hooks
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	syncer.Result
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Revision string `json:"revision"`
	}
	// An empty body means "rebuild from the main branch tip".
	_ = json.NewDecoder(r.Body).Decode(&req)

	res, err := h.svc.Rebuild(r.Context(), req.Revision)
	if err != nil {
		h.writeSyncError(w, req.Revision, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeSyncError maps pipeline errors onto HTTP statuses.
func (h *Handler) writeSyncError(w http.ResponseWriter, ref string, err error) {
	switch {
	case errors.Is(err, apperr.ErrRevisionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("revision not found"))
	case errors.Is(err, apperr.ErrBadFormat):
		writeJSON(w, http.StatusBadRequest, errorBody("bad content format"))
	case errors.Is(err, apperr.ErrRenderUpstream):
		writeJSON(w, http.StatusBadGateway, errorBody("render upstream failure"))
	case errors.Is(err, apperr.ErrNothingToArchive):
		writeJSON(w, http.StatusBadRequest, errorBody("nothing to archive"))
	default:
		slog.Error("sync pipeline failed", slog.String("ref", ref), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

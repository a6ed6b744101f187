package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlabs/handoff/internal/api"
)

type OrgService interface {
	Delete(ctx context.Context, orgID string) error
	Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error)
}

// ArchivePurger removes an organization's archived copies. Optional; nil
// means no archive backend is configured.
type ArchivePurger interface {
	DeleteOrgArchive(ctx context.Context, orgID string) error
}

type OrgHandler struct {
	store   OrgService
	archive ArchivePurger
}

func NewOrgHandler(store OrgService, archive ArchivePurger) *OrgHandler {
	return &OrgHandler{store: store, archive: archive}
}

type ExpireRequest struct {
	OlderThanDays int `json:"older_than_days"`
}

type ExpireResponse struct {
	OrgID         string `json:"org_id"`
	ExpiredChunks int    `json:"expired_chunks"`
}

// Expire removes chunks older than the given age from one organization's
// namespace.
func (h *OrgHandler) Expire(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		api.Error(w, http.StatusBadRequest, "orgID is required")
		return
	}

	var req ExpireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OlderThanDays <= 0 {
		api.Error(w, http.StatusBadRequest, "older_than_days must be positive")
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -req.OlderThanDays)

	expired, err := h.store.Expire(r.Context(), orgID, cutoff)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ExpireResponse{OrgID: orgID, ExpiredChunks: expired})
}

// Offboard removes every trace of an organization: the vector namespace with
// secure disposal, then the archive if one is configured.
func (h *OrgHandler) Offboard(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	if orgID == "" {
		api.Error(w, http.StatusBadRequest, "orgID is required")
		return
	}

	if err := h.store.Delete(r.Context(), orgID); err != nil {
		api.HandleError(w, err)
		return
	}

	if h.archive != nil {
		if err := h.archive.DeleteOrgArchive(r.Context(), orgID); err != nil {
			api.HandleError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

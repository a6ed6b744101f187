package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lumenlabs/handoff/internal/api"
	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/service"
)

type ItemService interface {
	Ingest(ctx context.Context, item *domain.RawItem) (*service.IngestResult, error)
}

type ItemHandler struct {
	svc ItemService
}

func NewItemHandler(svc ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type IngestItemRequest struct {
	OrgID      string `json:"org_id"`
	SourceType string `json:"source_type"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
}

type RedactionEntryResponse struct {
	Class string `json:"class"`
	Count int    `json:"count"`
}

type IngestItemResponse struct {
	SourceItemID    string                   `json:"source_item_id"`
	Stored          bool                     `json:"stored"`
	ChunkCount      int                      `json:"chunk_count,omitempty"`
	Redactions      []RedactionEntryResponse `json:"redactions,omitempty"`
	TotalRedactions int                      `json:"total_redactions"`
	Truncated       bool                     `json:"truncated"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
}

func ingestResultToResponse(result *service.IngestResult) *IngestItemResponse {
	resp := &IngestItemResponse{
		SourceItemID:    result.SourceItemID,
		Stored:          result.Stored,
		ChunkCount:      result.ChunkCount,
		TotalRedactions: result.Report.TotalRedactions(),
		Truncated:       result.Report.Truncated,
		RejectionReason: result.RejectionReason,
	}
	for _, e := range result.Report.Entries {
		resp.Redactions = append(resp.Redactions, RedactionEntryResponse{Class: e.Class, Count: e.Count})
	}
	return resp
}

// Ingest accepts one raw item and runs it through the pipeline. Stored items
// come back 201; items rejected by the admission gate come back 200 with a
// rejection reason, since the request itself was well formed.
func (h *ItemHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrgID == "" {
		api.Error(w, http.StatusBadRequest, "org_id is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if !domain.IsValidSourceType(domain.SourceType(req.SourceType)) {
		api.Error(w, http.StatusBadRequest, "invalid source type")
		return
	}

	item := domain.NewRawItem(req.OrgID, domain.SourceType(req.SourceType), req.Subject, req.Content)

	result, err := h.svc.Ingest(r.Context(), item)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Stored {
		status = http.StatusOK
	}
	api.Success(w, status, ingestResultToResponse(result))
}

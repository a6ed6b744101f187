package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lumenlabs/handoff/internal/api"
	"github.com/lumenlabs/handoff/internal/domain"
)

type AskService interface {
	Retrieve(ctx context.Context, orgID, query string) (*domain.RetrievalResult, error)
	AnalyzeGaps(ctx context.Context, orgID string, expectedTopics []string) (*domain.GapReport, error)
}

type AskHandler struct {
	svc AskService
}

func NewAskHandler(svc AskService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	OrgID          string   `json:"org_id"`
	Question       string   `json:"question"`
	ExpectedTopics []string `json:"expected_topics,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

type ScoredChunkResponse struct {
	SourceItemID string  `json:"source_item_id"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	Score        float32 `json:"score"`
	CreatedAt    string  `json:"created_at"`
}

type TopicCoverageResponse struct {
	Topic      string                `json:"topic"`
	Status     string                `json:"status"`
	Supporting []ScoredChunkResponse `json:"supporting,omitempty"`
}

type AskResponse struct {
	OrgID         string                  `json:"org_id"`
	Question      string                  `json:"question"`
	AnswerContext []ScoredChunkResponse   `json:"answer_context"`
	Gaps          []TopicCoverageResponse `json:"gaps,omitempty"`
}

func scoredChunksToResponse(chunks []domain.ScoredChunk) []ScoredChunkResponse {
	out := make([]ScoredChunkResponse, len(chunks))
	for i, c := range chunks {
		out[i] = ScoredChunkResponse{
			SourceItemID: c.Chunk.SourceItemID,
			ChunkIndex:   c.Chunk.ChunkIndex,
			Text:         c.Chunk.Text,
			Score:        c.Score,
			CreatedAt:    c.Chunk.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

// Ask answers a question against one organization's namespace. When
// expected_topics is present the response also carries a coverage report for
// each topic. top_k caps the returned context below the configured width.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrgID == "" {
		api.Error(w, http.StatusBadRequest, "org_id is required")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.Retrieve(r.Context(), req.OrgID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	chunks := result.Chunks
	if req.TopK > 0 && len(chunks) > req.TopK {
		chunks = chunks[:req.TopK]
	}

	resp := &AskResponse{
		OrgID:         result.OrgID,
		Question:      result.Query,
		AnswerContext: scoredChunksToResponse(chunks),
	}

	if len(req.ExpectedTopics) > 0 {
		report, err := h.svc.AnalyzeGaps(r.Context(), req.OrgID, req.ExpectedTopics)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		for _, t := range report.Topics {
			resp.Gaps = append(resp.Gaps, TopicCoverageResponse{
				Topic:      t.Topic,
				Status:     string(t.Status),
				Supporting: scoredChunksToResponse(t.SupportingChunks),
			})
		}
	}

	api.Success(w, http.StatusOK, resp)
}

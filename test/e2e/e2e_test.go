//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/api/handlers"
	"github.com/lumenlabs/handoff/internal/classifier"
	"github.com/lumenlabs/handoff/internal/openai"
	"github.com/lumenlabs/handoff/internal/sanitizer"
	"github.com/lumenlabs/handoff/internal/server"
	"github.com/lumenlabs/handoff/internal/service"
	"github.com/lumenlabs/handoff/internal/store"
)

const embeddingDims = 32

// hashEmbedder is a deterministic bag-of-words embedder. Texts sharing terms
// get similar vectors, which is all the pipeline needs end to end.
type hashEmbedder struct{}

func (hashEmbedder) CreateEmbeddings(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%embeddingDims] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewChromemStore("", false, embeddingDims)
	require.NoError(t, err)

	embedder := openai.NewClientWithAPI(hashEmbedder{}, embeddingDims)
	san := sanitizer.MustNew(sanitizer.DefaultConfig())

	ingestSvc := service.NewIngestService(
		classifier.NewRulesClassifier(), san, embedder, st, nil,
		service.IngestConfig{ClassifierThreshold: 0.6},
	)
	retrievalSvc := service.NewRetrievalService(st, embedder, service.RetrievalConfig{
		TopK:                5,
		SimilarityThreshold: 0.3,
	})

	router := server.NewRouter(server.RouterConfig{
		ItemHandler: handlers.NewItemHandler(ingestSvc),
		AskHandler:  handlers.NewAskHandler(retrievalSvc),
		OrgHandler:  handlers.NewOrgHandler(st, nil),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestE2E_IngestAskOffboard(t *testing.T) {
	srv := newTestServer(t)

	t.Run("work item with PII is stored redacted", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/items", map[string]interface{}{
			"org_id":      "acme",
			"source_type": "note",
			"subject":     "meeting notes",
			"content":     "Meeting notes: the deploy pipeline is owned by ops. Contact dana@acme.test for deploy access.",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var result handlers.IngestItemResponse
		decodeData(t, resp, &result)
		assert.True(t, result.Stored)
		assert.GreaterOrEqual(t, result.ChunkCount, 1)
		assert.Equal(t, 1, result.TotalRedactions)
	})

	t.Run("personal item is rejected", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/items", map[string]interface{}{
			"org_id":      "acme",
			"source_type": "email",
			"subject":     "out of office",
			"content":     "I will be on vacation with family next week, birthday party on saturday.",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result handlers.IngestItemResponse
		decodeData(t, resp, &result)
		assert.False(t, result.Stored)
		assert.NotEmpty(t, result.RejectionReason)
	})

	t.Run("ask returns redacted content", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/ask", map[string]interface{}{
			"org_id":   "acme",
			"question": "who owns the deploy pipeline",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result handlers.AskResponse
		decodeData(t, resp, &result)
		require.NotEmpty(t, result.AnswerContext)
		assert.Contains(t, result.AnswerContext[0].Text, "[EMAIL_REDACTED]")
		assert.NotContains(t, result.AnswerContext[0].Text, "dana@acme.test")
	})

	t.Run("gap report flags uncovered topics", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/ask", map[string]interface{}{
			"org_id":          "acme",
			"question":        "deploy pipeline",
			"expected_topics": []string{"deploy pipeline ownership", "database failover runbook"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result handlers.AskResponse
		decodeData(t, resp, &result)
		require.Len(t, result.Gaps, 2)
		assert.Equal(t, "supported", result.Gaps[0].Status)
		assert.Equal(t, "gap", result.Gaps[1].Status)
	})

	t.Run("tenant isolation across orgs", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/ask", map[string]interface{}{
			"org_id":   "rival",
			"question": "deploy pipeline",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("offboarding removes the namespace", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/orgs/acme", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		ask := postJSON(t, srv.URL+"/ask", map[string]interface{}{
			"org_id":   "acme",
			"question": "deploy pipeline",
		})
		defer ask.Body.Close()
		assert.Equal(t, http.StatusNotFound, ask.StatusCode)
	})
}

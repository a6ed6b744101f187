package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/api/handlers"
	"github.com/lumenlabs/handoff/internal/domain"
	"github.com/lumenlabs/handoff/internal/service"
)

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Ingest(ctx context.Context, item *domain.RawItem) (*service.IngestResult, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockAskService struct {
	mock.Mock
}

func (m *MockAskService) Retrieve(ctx context.Context, orgID, query string) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, orgID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

func (m *MockAskService) AnalyzeGaps(ctx context.Context, orgID string, expectedTopics []string) (*domain.GapReport, error) {
	args := m.Called(ctx, orgID, expectedTopics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GapReport), args.Error(1)
}

type MockOrgService struct {
	mock.Mock
}

func (m *MockOrgService) Delete(ctx context.Context, orgID string) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

func (m *MockOrgService) Expire(ctx context.Context, orgID string, olderThan time.Time) (int, error) {
	args := m.Called(ctx, orgID, olderThan)
	return args.Int(0), args.Error(1)
}

func setupRouter() (http.Handler, *MockItemService, *MockAskService, *MockOrgService) {
	itemSvc := new(MockItemService)
	askSvc := new(MockAskService)
	orgSvc := new(MockOrgService)

	cfg := RouterConfig{
		ItemHandler: handlers.NewItemHandler(itemSvc),
		AskHandler:  handlers.NewAskHandler(askSvc),
		OrgHandler:  handlers.NewOrgHandler(orgSvc, nil),
	}

	return NewRouter(cfg), itemSvc, askSvc, orgSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_IngestRoute(t *testing.T) {
	router, itemSvc, _, _ := setupRouter()

	itemSvc.On("Ingest", mock.Anything, mock.Anything).Return(&service.IngestResult{
		SourceItemID: "item-1",
		Stored:       true,
		ChunkCount:   1,
	}, nil)

	body := `{"org_id":"org-1","source_type":"note","content":"sprint retro notes"}`
	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	itemSvc.AssertExpectations(t)
}

func TestRouter_AskRoute(t *testing.T) {
	router, _, askSvc, _ := setupRouter()

	askSvc.On("Retrieve", mock.Anything, "org-1", "deploy process").Return(&domain.RetrievalResult{
		OrgID: "org-1",
		Query: "deploy process",
	}, nil)

	body := `{"org_id":"org-1","question":"deploy process"}`
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	askSvc.AssertExpectations(t)
}

func TestRouter_ExpireRoute(t *testing.T) {
	router, _, _, orgSvc := setupRouter()

	orgSvc.On("Expire", mock.Anything, "org-1", mock.Anything).Return(4, nil)

	body := `{"older_than_days":2}`
	req := httptest.NewRequest(http.MethodPost, "/orgs/org-1/expire", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	orgSvc.AssertExpectations(t)
}

func TestRouter_OffboardRoute(t *testing.T) {
	router, _, _, orgSvc := setupRouter()

	orgSvc.On("Delete", mock.Anything, "org-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/orgs/org-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	orgSvc.AssertExpectations(t)
}

func TestRouter_BodyLimit(t *testing.T) {
	router, _, _, _ := setupRouter()

	huge := bytes.Repeat([]byte("a"), 6*1024*1024)
	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewReader(huge))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

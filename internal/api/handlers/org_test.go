package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumenlabs/handoff/internal/domain"
)

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

type MockArchivePurger struct {
	mock.Mock
}

func (m *MockArchivePurger) DeleteOrgArchive(ctx context.Context, orgID string) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

func orgRouter(h *OrgHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/orgs/{orgID}/expire", h.Expire)
	r.Delete("/orgs/{orgID}", h.Offboard)
	return r
}

func TestOrgHandler_Expire_Success(t *testing.T) {
	mockStore := new(MockOrgService)
	router := orgRouter(NewOrgHandler(mockStore, nil))

	mockStore.On("Expire", mock.Anything, "org-456", mock.MatchedBy(func(cutoff time.Time) bool {
		expected := time.Now().UTC().AddDate(0, 0, -30)
		return cutoff.Sub(expected).Abs() < time.Minute
	})).Return(7, nil)

	req := postJSON("/orgs/org-456/expire", `{"older_than_days":30}`)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ExpireResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "org-456", resp.Data.OrgID)
	assert.Equal(t, 7, resp.Data.ExpiredChunks)
	mockStore.AssertExpectations(t)
}

func TestOrgHandler_Expire_MissingAge(t *testing.T) {
	router := orgRouter(NewOrgHandler(new(MockOrgService), nil))

	req := postJSON("/orgs/org-456/expire", `{}`)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrgHandler_Expire_NegativeAge(t *testing.T) {
	router := orgRouter(NewOrgHandler(new(MockOrgService), nil))

	req := postJSON("/orgs/org-456/expire", `{"older_than_days":-3}`)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrgHandler_Expire_UnknownOrg(t *testing.T) {
	mockStore := new(MockOrgService)
	router := orgRouter(NewOrgHandler(mockStore, nil))

	mockStore.On("Expire", mock.Anything, "ghost", mock.Anything).
		Return(0, domain.ErrUnknownOrganization)

	req := postJSON("/orgs/ghost/expire", `{"older_than_days":30}`)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrgHandler_Offboard_Success(t *testing.T) {
	mockStore := new(MockOrgService)
	mockArchive := new(MockArchivePurger)
	router := orgRouter(NewOrgHandler(mockStore, mockArchive))

	mockStore.On("Delete", mock.Anything, "org-456").Return(nil)
	mockArchive.On("DeleteOrgArchive", mock.Anything, "org-456").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/orgs/org-456", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockStore.AssertExpectations(t)
	mockArchive.AssertExpectations(t)
}

func TestOrgHandler_Offboard_NoArchive(t *testing.T) {
	mockStore := new(MockOrgService)
	router := orgRouter(NewOrgHandler(mockStore, nil))

	mockStore.On("Delete", mock.Anything, "org-456").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/orgs/org-456", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOrgHandler_Offboard_UnknownOrg(t *testing.T) {
	mockStore := new(MockOrgService)
	router := orgRouter(NewOrgHandler(mockStore, nil))

	mockStore.On("Delete", mock.Anything, "ghost").Return(domain.ErrUnknownOrganization)

	req := httptest.NewRequest(http.MethodDelete, "/orgs/ghost", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrgHandler_Offboard_DisposalFailure(t *testing.T) {
	mockStore := new(MockOrgService)
	router := orgRouter(NewOrgHandler(mockStore, nil))

	mockStore.On("Delete", mock.Anything, "org-456").
		Return(domain.NewDomainError(domain.ErrCodeSecureDisposal, "overwrite pass failed"))

	req := httptest.NewRequest(http.MethodDelete, "/orgs/org-456", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

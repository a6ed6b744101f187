package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const OrgIDKey contextKey = "org_id"

// OrgContext puts the organization ID into the request context for logging
// and telemetry. It reads the {orgID} route parameter first, then the
// X-Org-ID header. This is observability plumbing only; handlers and
// services take the org ID explicitly.
func OrgContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := chi.URLParam(r, "orgID")
		if orgID == "" {
			orgID = r.Header.Get("X-Org-ID")
		}
		if orgID != "" {
			r = r.WithContext(context.WithValue(r.Context(), OrgIDKey, orgID))
		}
		next.ServeHTTP(w, r)
	})
}

// GetOrgID returns the organization ID from context.
func GetOrgID(ctx context.Context) string {
	orgID, _ := ctx.Value(OrgIDKey).(string)
	return orgID
}

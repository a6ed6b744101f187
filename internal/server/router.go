package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumenlabs/handoff/internal/api"
	"github.com/lumenlabs/handoff/internal/api/handlers"
	"github.com/lumenlabs/handoff/internal/api/middleware"
)

type RouterConfig struct {
	ItemHandler *handlers.ItemHandler
	AskHandler  *handlers.AskHandler
	OrgHandler  *handlers.OrgHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.OrgContext)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/items", cfg.ItemHandler.Ingest)
	r.Post("/ask", cfg.AskHandler.Ask)

	r.Route("/orgs/{orgID}", func(r chi.Router) {
		r.Post("/expire", cfg.OrgHandler.Expire)
		r.Delete("/", cfg.OrgHandler.Offboard)
	})

	return r
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushq/docqa/internal/api"
	"github.com/campushq/docqa/internal/api/handlers"
	"github.com/campushq/docqa/internal/api/middleware"
)

type RouterConfig struct {
	IdentityVerifier middleware.IdentityVerifier
	DocumentHandler  *handlers.DocumentHandler
	QueryHandler     *handlers.QueryHandler
	HistoryHandler   *handlers.HistoryHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Sized for multipart document uploads, not just JSON bodies.
	const maxBodyBytes int64 = 64 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.IdentityVerifier))

		r.Route("/documents", func(r chi.Router) {
			r.With(middleware.RequireUploadRole).Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
		})

		r.Post("/query", cfg.QueryHandler.Ask)
		r.Get("/history/{conversation_id}", cfg.HistoryHandler.Get)
	})

	return r
}

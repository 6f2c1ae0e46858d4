package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер User Service
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("user", logger))
	}

	router.Route("/users", func(r chi.Router) {
		r.Post("/", handler.PostUsers)
		r.Post("/login", handler.PostLogin)
		r.Post("/password-reset", handler.PostPasswordReset)
		r.Post("/password-reset/confirm", handler.PostPasswordResetConfirm)
		r.Get("/{id}/public", handler.GetPublicUser)
	})

	router.Get("/health", platformhealth.Handler(checks))
	return router
}

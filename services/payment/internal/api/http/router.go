package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер Payment Service
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("payment", logger))
	}

	router.Post("/payments", handler.PostPayments)
	router.Get("/health", platformhealth.Handler(checks))
	return router
}

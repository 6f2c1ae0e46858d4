// Package httpapi HTTP поверхность Notification Dispatcher: только health.
package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер Notification Dispatcher
func NewRouter(checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("notification", logger))
	}
	router.Get("/health", platformhealth.Handler(checks))
	return router
}

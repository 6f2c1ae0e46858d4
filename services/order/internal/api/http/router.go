package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт и настраивает HTTP роутер для Order Service.
// logger используется для observability HTTP middleware (trace_id в логах).
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("order", logger))
	}

	router.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.PostOrders)
		r.Get("/{id}", handler.GetOrder)
		r.Patch("/{id}", handler.PatchOrder)
		r.Delete("/{id}", handler.DeleteOrder)
	})

	router.Get("/health", platformhealth.Handler(checks))
	return router
}

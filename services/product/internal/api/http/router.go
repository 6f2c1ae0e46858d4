package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер Product Service.
// checks проверки зависимостей для /health; logger nil отключает observability middleware.
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("product", logger))
	}

	router.Route("/products", func(r chi.Router) {
		r.Post("/", handler.PostProducts)
		r.Get("/{id}", handler.GetProduct)
		r.Patch("/{id}", handler.PatchProduct)
		r.Delete("/{id}", handler.DeleteProduct)
	})

	router.Get("/health", platformhealth.Handler(checks))

	return router
}

package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер Review Service
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("review", logger))
	}

	router.Post("/reviews", handler.PostReviews)
	router.Route("/reviews/{id}", func(r chi.Router) {
		r.Get("/", handler.GetReview)
		r.Patch("/", handler.PatchReview)
		r.Delete("/", handler.DeleteReview)
		r.Post("/moderation", handler.PostModeration)
	})

	router.Get("/health", platformhealth.Handler(checks))
	return router
}

package httpapi

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// NewRouter создаёт HTTP роутер Booking Service
func NewRouter(handler *Handler, checks map[string]platformhealth.Check, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("booking", logger))
	}

	router.Route("/bookings", func(r chi.Router) {
		r.Post("/", handler.PostBookings)
		r.Get("/", handler.ListBookings)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetBooking)
			r.Patch("/", handler.PatchBooking)
			r.Delete("/", handler.DeleteBooking)
			r.Post("/confirm", handler.PostConfirm)
			r.Post("/cancel", handler.PostCancel)
		})
	})

	router.Get("/health", platformhealth.Handler(checks))
	return router
}

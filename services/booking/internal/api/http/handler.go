package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/httpjson"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/service"
)

// BookingService интерфейс сервиса, используемый HTTP handler'ом
type BookingService interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (domain.Booking, error)
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, id string, in service.UpdateBookingInput) (domain.Booking, error)
	ConfirmBooking(ctx context.Context, id string) (domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (domain.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// CreateBookingRequest тело POST /bookings
type CreateBookingRequest struct {
	UserID          string    `json:"user_id" validate:"required"`
	BookingDateTime time.Time `json:"booking_date_time" validate:"required"`
	NumberOfGuests  int       `json:"number_of_guests" validate:"min=1,max=50"`
	Comment         string    `json:"comment,omitempty" validate:"max=500"`
}

// UpdateBookingRequest тело PATCH /bookings/{id}
type UpdateBookingRequest struct {
	BookingDateTime *time.Time `json:"booking_date_time,omitempty"`
	NumberOfGuests  *int       `json:"number_of_guests,omitempty" validate:"omitempty,min=1,max=50"`
	Comment         *string    `json:"comment,omitempty" validate:"omitempty,max=500"`
}

// BookingResponse бронирование в ответе
type BookingResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	BookingDateTime time.Time `json:"booking_date_time"`
	NumberOfGuests  int       `json:"number_of_guests"`
	Comment         string    `json:"comment,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toResponse(b domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		UserID:          b.UserID,
		BookingDateTime: b.BookingDateTime,
		NumberOfGuests:  b.NumberOfGuests,
		Comment:         b.Comment,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// Handler обрабатывает HTTP запросы Booking Service
type Handler struct {
	svc    BookingService
	logger *zap.Logger
}

// NewHandler создаёт Handler
func NewHandler(svc BookingService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PostBookings POST /bookings
func (h *Handler) PostBookings(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	booking, err := h.svc.CreateBooking(r.Context(), service.CreateBookingInput{
		UserID:          req.UserID,
		BookingDateTime: req.BookingDateTime,
		NumberOfGuests:  req.NumberOfGuests,
		Comment:         req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toResponse(booking))
}

// ListBookings GET /bookings?user_id=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListUserBookings(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toResponse(b))
	}
	httpjson.Write(w, http.StatusOK, out)
}

// GetBooking GET /bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.svc.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(booking))
}

// PatchBooking PATCH /bookings/{id}
func (h *Handler) PatchBooking(w http.ResponseWriter, r *http.Request) {
	var req UpdateBookingRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	booking, err := h.svc.UpdateBooking(r.Context(), chi.URLParam(r, "id"), service.UpdateBookingInput{
		BookingDateTime: req.BookingDateTime,
		NumberOfGuests:  req.NumberOfGuests,
		Comment:         req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(booking))
}

// PostConfirm POST /bookings/{id}/confirm
func (h *Handler) PostConfirm(w http.ResponseWriter, r *http.Request) {
	booking, err := h.svc.ConfirmBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(booking))
}

// PostCancel POST /bookings/{id}/cancel
func (h *Handler) PostCancel(w http.ResponseWriter, r *http.Request) {
	booking, err := h.svc.CancelBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(booking))
}

// DeleteBooking DELETE /bookings/{id}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyExists),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBookingCancelled):
		httpjson.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEventNotPublished):
		httpjson.Error(w, http.StatusBadGateway, err.Error())
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("booking request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}

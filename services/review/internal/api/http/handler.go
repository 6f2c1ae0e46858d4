package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/httpjson"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/service"
)

// ReviewService интерфейс сервиса, используемый HTTP handler'ом
type ReviewService interface {
	CreateReview(ctx context.Context, in service.CreateReviewInput) (domain.Review, error)
	GetReview(ctx context.Context, id string) (domain.Review, error)
	UpdateReview(ctx context.Context, id string, in service.UpdateReviewInput) (domain.Review, error)
	ModerateReview(ctx context.Context, id string, in service.ModerateInput) (domain.Review, error)
	DeleteReview(ctx context.Context, id string, hard bool) error
}

// CreateReviewRequest тело POST /reviews
type CreateReviewRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	ProductID string `json:"product_id,omitempty"`
	UserID    string `json:"user_id" validate:"required"`
	Rating    int    `json:"rating" validate:"min=1,max=5"`
	Comment   string `json:"comment,omitempty" validate:"max=2000"`
}

// UpdateReviewRequest тело PATCH /reviews/{id}
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// ModerationRequest тело POST /reviews/{id}/moderation
type ModerationRequest struct {
	Action      string `json:"action" validate:"required,oneof=flag hide publish"`
	Notes       string `json:"notes,omitempty"`
	ModeratedBy string `json:"moderated_by" validate:"required"`
}

// ReviewResponse отзыв в ответе
type ReviewResponse struct {
	ID              string     `json:"id"`
	OrderID         string     `json:"order_id"`
	ProductID       string     `json:"product_id,omitempty"`
	UserID          string     `json:"user_id"`
	Rating          int        `json:"rating"`
	Comment         string     `json:"comment,omitempty"`
	Status          string     `json:"status"`
	ModerationNotes string     `json:"moderation_notes,omitempty"`
	ModeratedBy     string     `json:"moderated_by,omitempty"`
	ModeratedAt     *time.Time `json:"moderated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toResponse(r domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:              r.ID,
		OrderID:         r.OrderID,
		ProductID:       r.ProductID,
		UserID:          r.UserID,
		Rating:          r.Rating,
		Comment:         r.Comment,
		Status:          string(r.Status),
		ModerationNotes: r.ModerationNotes,
		ModeratedBy:     r.ModeratedBy,
		ModeratedAt:     r.ModeratedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Handler обрабатывает HTTP запросы Review Service
type Handler struct {
	svc    ReviewService
	logger *zap.Logger
}

// NewHandler создаёт Handler
func NewHandler(svc ReviewService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PostReviews POST /reviews
func (h *Handler) PostReviews(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	review, err := h.svc.CreateReview(r.Context(), service.CreateReviewInput{
		OrderID:   req.OrderID,
		ProductID: req.ProductID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toResponse(review))
}

// GetReview GET /reviews/{id}
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(review))
}

// PatchReview PATCH /reviews/{id}
func (h *Handler) PatchReview(w http.ResponseWriter, r *http.Request) {
	var req UpdateReviewRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	review, err := h.svc.UpdateReview(r.Context(), chi.URLParam(r, "id"), service.UpdateReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(review))
}

// PostModeration POST /reviews/{id}/moderation
func (h *Handler) PostModeration(w http.ResponseWriter, r *http.Request) {
	var req ModerationRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	review, err := h.svc.ModerateReview(r.Context(), chi.URLParam(r, "id"), service.ModerateInput{
		Action:      req.Action,
		Notes:       req.Notes,
		ModeratedBy: req.ModeratedBy,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(review))
}

// DeleteReview DELETE /reviews/{id}?hard=true
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	hard := false
	if v := r.URL.Query().Get("hard"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "hard must be a boolean")
			return
		}
		hard = parsed
	}
	if err := h.svc.DeleteReview(r.Context(), chi.URLParam(r, "id"), hard); err != nil {
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
		errors.Is(err, domain.ErrReviewDeleted):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("review request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}

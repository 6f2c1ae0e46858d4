package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/httpjson"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/service"
)

// UserService интерфейс сервиса, используемый HTTP handler'ом
type UserService interface {
	Register(ctx context.Context, input service.RegisterInput) (service.PublicProfile, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	VerifyPassword(ctx context.Context, email, password string) (service.PublicProfile, error)
	GetPublicProfile(ctx context.Context, userID string) (service.PublicProfile, error)
}

// RegisterRequest тело POST /users
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	UserName    string `json:"user_name" validate:"max=100"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"omitempty,max=32"`
	Password    string `json:"password" validate:"required,min=6"`
}

// LoginRequest тело POST /users/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest тело POST /users/password-reset
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest тело POST /users/password-reset/confirm
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// PublicUserResponse публичный профиль; этот же формат читает Notification Service
type PublicUserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	UserName    string `json:"user_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

func toResponse(p service.PublicProfile) PublicUserResponse {
	return PublicUserResponse{ID: p.UserID, Email: p.Email, UserName: p.UserName, PhoneNumber: p.PhoneNumber}
}

// Handler обрабатывает HTTP запросы User Service
type Handler struct {
	svc    UserService
	logger *zap.Logger
}

// NewHandler создаёт Handler
func NewHandler(svc UserService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PostUsers POST /users
func (h *Handler) PostUsers(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		UserName:    req.UserName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toResponse(profile))
}

// PostLogin POST /users/login
func (h *Handler) PostLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := h.svc.VerifyPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, service.ErrInvalidInput) {
			httpjson.Error(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(profile))
}

// PostPasswordReset POST /users/password-reset: 202 независимо от существования email
func (h *Handler) PostPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// PostPasswordResetConfirm POST /users/password-reset/confirm
func (h *Handler) PostPasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPublicUser GET /users/{id}/public
func (h *Handler) GetPublicUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetPublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(profile))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidResetToken):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyExists):
		httpjson.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEventNotPublished):
		httpjson.Error(w, http.StatusBadGateway, err.Error())
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("user request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}

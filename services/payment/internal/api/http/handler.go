package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/httpjson"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/service"
)

// PaymentService интерфейс сервиса, используемый HTTP handler'ом
type PaymentService interface {
	ProcessPayment(ctx context.Context, in service.ProcessPaymentInput) (repository.Transaction, bool, error)
}

// PaymentRequest тело POST /payments
type PaymentRequest struct {
	OrderID string  `json:"order_id" validate:"required"`
	UserID  string  `json:"user_id" validate:"required"`
	Amount  float64 `json:"amount" validate:"gt=0"`
	Method  string  `json:"method" validate:"required,oneof=card cash transfer"`
}

// PaymentResponse ответ с транзакцией
type PaymentResponse struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Handler обрабатывает HTTP запросы Payment Service
type Handler struct {
	svc    PaymentService
	logger *zap.Logger
}

// NewHandler создаёт Handler
func NewHandler(svc PaymentService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// PostPayments POST /payments: 201 для нового платежа, 200 для повторного запроса
func (h *Handler) PostPayments(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, created, err := h.svc.ProcessPayment(r.Context(), service.ProcessPaymentInput{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Method:  req.Method,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpjson.Write(w, status, PaymentResponse{
		PaymentID:     tx.PaymentID,
		OrderID:       tx.OrderID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Method:        tx.Method,
		TransactionID: tx.TransactionID,
		Status:        tx.Status,
		CreatedAt:     tx.CreatedAt,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEventNotPublished):
		httpjson.Error(w, http.StatusBadGateway, err.Error())
	default:
		observability.LoggerFromContext(r.Context(), h.logger).Error("payment request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal error")
	}
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/httpjson"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/service"
)

// OrderService операции заказа, нужные HTTP слою
type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	UpdateOrder(ctx context.Context, id string, in service.UpdateOrderInput) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// Handler содержит HTTP-обработчики для Order Service
type Handler struct {
	orderService OrderService
	logger       *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(orderService OrderService, logger *zap.Logger) *Handler {
	return &Handler{orderService: orderService, logger: logger}
}

// OrderItem товар в HTTP запросе/ответе
type OrderItem struct {
	ProductID   string  `json:"product_id" validate:"required"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	LineTotal   float64 `json:"line_total,omitempty"`
}

// OrderRequest тело POST /orders
type OrderRequest struct {
	UserID string      `json:"user_id" validate:"required"`
	Items  []OrderItem `json:"items" validate:"required,min=1,dive"`
	Notes  string      `json:"notes"`
}

// UpdateOrderRequest тело PATCH /orders/{id}
type UpdateOrderRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof=Pending Paid Completed Cancelled"`
	Notes  *string `json:"notes"`
}

// OrderResponse представление заказа
type OrderResponse struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"user_id"`
	Status               string      `json:"status"`
	Items                []OrderItem `json:"items"`
	TotalAmount          float64     `json:"total_amount"`
	Notes                string      `json:"notes,omitempty"`
	PaymentTransactionID string      `json:"payment_transaction_id,omitempty"`
	PaidAt               *time.Time  `json:"paid_at,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func toResponse(o domain.Order) OrderResponse {
	items := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal(),
		})
	}
	return OrderResponse{
		ID:                   o.ID,
		UserID:               o.UserID,
		Status:               string(o.Status),
		Items:                items,
		TotalAmount:          o.TotalAmount,
		Notes:                o.Notes,
		PaymentTransactionID: o.PaymentTransactionID,
		PaidAt:               o.PaidAt,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// PostOrders обрабатывает POST /orders - создание нового заказа
func (h *Handler) PostOrders(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}

	order, err := h.orderService.CreateOrder(r.Context(), service.CreateOrderInput{
		UserID: req.UserID,
		Items:  items,
		Notes:  req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toResponse(order))
}

// GetOrder обрабатывает GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(order))
}

// PatchOrder обрабатывает PATCH /orders/{id}
func (h *Handler) PatchOrder(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.orderService.UpdateOrder(r.Context(), chi.URLParam(r, "id"), service.UpdateOrderInput{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(order))
}

// DeleteOrder обрабатывает DELETE /orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderService.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, repository.ErrStatusConflict):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		platformobservability.LoggerFromContext(r.Context(), h.logger).Error("order request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

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
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/service"
)

// CartService операции корзины, нужные HTTP слою
type CartService interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) error
	Checkout(ctx context.Context, userID string) (domain.Cart, error)
}

// Handler содержит HTTP-обработчики Cart Service
type Handler struct {
	cartService CartService
	logger      *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(cartService CartService, logger *zap.Logger) *Handler {
	return &Handler{cartService: cartService, logger: logger}
}

// AddItemRequest тело POST /carts/{userId}/items
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// LineItemResponse позиция корзины
type LineItemResponse struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CartResponse представление корзины
type CartResponse struct {
	UserID string             `json:"user_id"`
	Items  []LineItemResponse `json:"items"`
	Total  float64            `json:"total"`
}

func toResponse(c domain.Cart) CartResponse {
	resp := CartResponse{UserID: c.UserID, Items: make([]LineItemResponse, 0, len(c.Items)), Total: c.Total()}
	for _, li := range c.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			LineTotal:   li.LineTotal(),
			IsAvailable: li.IsAvailable,
			UpdatedAt:   li.UpdatedAt,
		})
	}
	return resp
}

// GetCart обрабатывает GET /carts/{userId}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.GetCart(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(cart))
}

// PostItem обрабатывает POST /carts/{userId}/items
func (h *Handler) PostItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	cart, err := h.cartService.AddItem(r.Context(), chi.URLParam(r, "userId"), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(cart))
}

// DeleteItem обрабатывает DELETE /carts/{userId}/items/{productId}
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.cartService.RemoveItem(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "productId")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostCheckout обрабатывает POST /carts/{userId}/checkout
func (h *Handler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartService.Checkout(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusAccepted, toResponse(cart))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := platformobservability.LoggerFromContext(r.Context(), h.logger)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, service.ErrItemNotFound):
		httpjson.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrUnavailableItems),
		errors.Is(err, repository.ErrConflict):
		httpjson.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEventNotPublished):
		log.Warn("cart.checked_out not published, cart kept", zap.Error(err))
		httpjson.Error(w, http.StatusBadGateway, err.Error())
	default:
		log.Error("cart request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

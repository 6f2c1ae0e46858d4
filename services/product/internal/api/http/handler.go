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
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/service"
)

// ProductService операции продукта, нужные HTTP слою
type ProductService interface {
	CreateProduct(ctx context.Context, in service.CreateProductInput) (repository.Product, error)
	GetProduct(ctx context.Context, id string) (repository.Product, error)
	UpdateProduct(ctx context.Context, id string, in service.UpdateProductInput) (repository.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Handler содержит HTTP-обработчики Product Service
type Handler struct {
	productService ProductService
	logger         *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(productService ProductService, logger *zap.Logger) *Handler {
	return &Handler{productService: productService, logger: logger}
}

// CreateProductRequest тело POST /products
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	IsAvailable *bool   `json:"is_available"`
}

// UpdateProductRequest тело PATCH /products/{id}
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	IsAvailable *bool    `json:"is_available"`
}

// ProductResponse представление продукта; рейтинг округлён до 2 знаков
type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	IsAvailable bool      `json:"is_available"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	Version     int64     `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(p repository.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		IsAvailable: p.IsAvailable,
		Rating:      p.Rating.Rounded(),
		RatingCount: p.Rating.Count,
		Version:     p.Version,
		UpdatedAt:   p.UpdatedAt,
	}
}

// PostProducts обрабатывает POST /products
func (h *Handler) PostProducts(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	p, err := h.productService.CreateProduct(r.Context(), service.CreateProductInput{
		Name:        req.Name,
		Price:       req.Price,
		IsAvailable: available,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, toResponse(p))
}

// GetProduct обрабатывает GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.productService.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(p))
}

// PatchProduct обрабатывает PATCH /products/{id}
func (h *Handler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.productService.UpdateProduct(r.Context(), chi.URLParam(r, "id"), service.UpdateProductInput{
		Name:        req.Name,
		Price:       req.Price,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toResponse(p))
}

// DeleteProduct обрабатывает DELETE /products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := platformobservability.LoggerFromContext(r.Context(), h.logger)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, "product not found")
	case errors.Is(err, service.ErrInvalidInput):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		httpjson.Error(w, http.StatusConflict, "product was modified concurrently")
	case errors.Is(err, service.ErrEventNotPublished):
		log.Warn("product saved but event not published", zap.Error(err))
		httpjson.Error(w, http.StatusBadGateway, err.Error())
	default:
		log.Error("product request failed", zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

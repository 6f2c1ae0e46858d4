package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/service"
)

type nopPublisher struct{}

func (nopPublisher) PublishEnvelope(ctx context.Context, envs ...eventbus.Envelope) error { return nil }

type oneProduct struct{}

func (oneProduct) GetProduct(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	if productID != "p-1" {
		return domain.ProductSnapshot{}, domain.ErrProductNotFound
	}
	return domain.ProductSnapshot{ProductID: "p-1", Name: "Wine", Price: 10, IsAvailable: true, Version: 1}, nil
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestCartAPI(t *testing.T) {
	svc := service.NewCartService(zap.NewNop(), memory.NewRepository(), oneProduct{}, nopPublisher{})
	router := NewRouter(NewHandler(svc, zap.NewNop()), map[string]platformhealth.Check{}, nil)

	rec := do(router, http.MethodPost, "/carts/u-1/items", `{"product_id":"p-1","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":20`)

	rec = do(router, http.MethodPost, "/carts/u-1/items", `{"product_id":"nope","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodPost, "/carts/u-1/items", `{"product_id":"p-1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/carts/u-1/checkout", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(router, http.MethodPost, "/carts/u-1/checkout", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodDelete, "/carts/u-1/items/p-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(router, http.MethodGet, "/carts/u-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/service"
)

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestOrderAPI(t *testing.T) {
	svc := service.NewOrderService(zap.NewNop(), memory.NewRepository(), nil)
	router := NewRouter(NewHandler(svc, zap.NewNop()), map[string]platformhealth.Check{}, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"user_id":"u-1","items":[{"product_id":"p-1","unit_price":10,"quantity":2}]}`, wantStatus: http.StatusCreated},
		{name: "no items", body: `{"user_id":"u-1","items":[]}`, wantStatus: http.StatusBadRequest},
		{name: "zero quantity", body: `{"user_id":"u-1","items":[{"product_id":"p-1","quantity":0}]}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"user_id":"u-1","items":[{"product_id":"p-1","quantity":1}],"coupon":"x"}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := do(router, http.MethodPost, "/orders", `{"user_id":"u-1","items":[{"product_id":"p-1","unit_price":10,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Pending", created.Status)
	assert.Equal(t, 20.0, created.TotalAmount)

	rec = do(router, http.MethodPatch, "/orders/"+created.ID, `{"status":"Completed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPatch, "/orders/"+created.ID, `{"status":"Cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Cancelled"`)

	rec = do(router, http.MethodDelete, "/orders/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, "/orders/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

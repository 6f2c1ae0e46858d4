package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
)

func TestProductClient_GetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/p-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"p-1","name":"Wine","price":12.5,"is_available":true,"rating":4.5,"version":7}`))
		case "/products/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewProductClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	p, err := c.GetProduct(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ProductSnapshot{ProductID: "p-1", Name: "Wine", Price: 12.5, IsAvailable: true, Version: 7}, p)

	_, err = c.GetProduct(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = c.GetProduct(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrProductNotFound)
}

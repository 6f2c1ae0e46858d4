package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
)

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name   string
		check  platformhealth.Check
		status int
	}{
		{name: "healthy", check: func(context.Context) error { return nil }, status: http.StatusOK},
		{name: "postgres down", check: func(context.Context) error { return errors.New("refused") }, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(map[string]platformhealth.Check{"postgres": tt.check}, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

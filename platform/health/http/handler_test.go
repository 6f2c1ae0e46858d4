package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantBody   string
	}{
		{name: "no checks", checks: nil, wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "all ok", checks: map[string]Check{"postgres": ok}, wantStatus: http.StatusOK, wantBody: `"ok"`},
		{name: "one down", checks: map[string]Check{"postgres": ok, "redis": down}, wantStatus: http.StatusServiceUnavailable, wantBody: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

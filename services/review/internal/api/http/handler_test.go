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
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/service"
)

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestReviewAPI_Lifecycle(t *testing.T) {
	svc := service.NewReviewService(zap.NewNop(), memory.NewMemoryRepository(), nil)
	router := NewRouter(NewHandler(svc, zap.NewNop()), map[string]platformhealth.Check{}, nil)

	rec := do(router, http.MethodPost, "/reviews", `{"order_id":"o-1","product_id":"p-1","user_id":"u-1","rating":5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ReviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Published", created.Status)

	rec = do(router, http.MethodPost, "/reviews", `{"order_id":"o-1","product_id":"p-1","user_id":"u-1","rating":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPatch, "/reviews/"+created.ID, `{"rating":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"rating":2`)

	rec = do(router, http.MethodPost, "/reviews/"+created.ID+"/moderation", `{"action":"hide","moderated_by":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"Hidden"`)

	rec = do(router, http.MethodPost, "/reviews/"+created.ID+"/moderation", `{"action":"flag","moderated_by":"admin"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodDelete, "/reviews/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, "/reviews/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Deleted"`)

	rec = do(router, http.MethodDelete, "/reviews/"+created.ID+"?hard=true", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, "/reviews/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewAPI_BadRequests(t *testing.T) {
	svc := service.NewReviewService(zap.NewNop(), memory.NewMemoryRepository(), nil)
	router := NewRouter(NewHandler(svc, zap.NewNop()), map[string]platformhealth.Check{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "rating out of range", method: http.MethodPost, path: "/reviews", body: `{"order_id":"o-1","user_id":"u-1","rating":9}`},
		{name: "missing order", method: http.MethodPost, path: "/reviews", body: `{"user_id":"u-1","rating":3}`},
		{name: "unknown action", method: http.MethodPost, path: "/reviews/r-1/moderation", body: `{"action":"ban","moderated_by":"admin"}`},
		{name: "bad hard flag", method: http.MethodDelete, path: "/reviews/r-1?hard=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

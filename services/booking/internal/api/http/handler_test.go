package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/service"
)

type stubPublisher struct {
	types []string
}

func (p *stubPublisher) Publish(ctx context.Context, events ...eventbus.Event) error {
	for _, e := range events {
		p.types = append(p.types, e.EventType())
	}
	return nil
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestBookingAPI(t *testing.T) {
	pub := &stubPublisher{}
	svc := service.NewBookingService(zap.NewNop(), memory.NewMemoryRepository(), pub)
	router := NewRouter(NewHandler(svc, zap.NewNop()), map[string]platformhealth.Check{}, nil)

	future := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	past := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)

	rec := do(router, http.MethodPost, "/bookings", `{"user_id":"u-1","booking_date_time":"`+past+`","number_of_guests":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/bookings", `{"user_id":"u-1","booking_date_time":"`+future+`","number_of_guests":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(router, http.MethodPost, "/bookings", `{"user_id":"u-1","booking_date_time":"`+future+`","number_of_guests":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Pending", created.Status)

	rec = do(router, http.MethodPatch, "/bookings/"+created.ID, `{"comment":"near the window"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodPost, "/bookings/"+created.ID+"/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Confirmed"`)

	rec = do(router, http.MethodPost, "/bookings/"+created.ID+"/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodPost, "/bookings/"+created.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/bookings?user_id=u-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Cancelled"`)

	rec = do(router, http.MethodDelete, "/bookings/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(router, http.MethodGet, "/bookings/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"booking.created", "booking.updated", "booking.updated", "booking.cancelled", "booking.deleted"}, pub.types)
}

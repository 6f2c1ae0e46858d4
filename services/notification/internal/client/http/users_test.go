package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserClient_GetPublicUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/u-1/public":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"u-1","email":"sara@example.com","user_name":"sara","phone_number":"+100"}`))
		case "/users/flaky/public":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewUserClient(srv.URL, time.Second)
	ctx := context.Background()

	u, err := c.GetPublicUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, PublicUser{ID: "u-1", Email: "sara@example.com", UserName: "sara"}, u)

	_, err = c.GetPublicUser(ctx, "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = c.GetPublicUser(ctx, "flaky")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
)

// ErrUserNotFound пользователь не найден в User Service
var ErrUserNotFound = errors.New("user not found")

// PublicUser публичный профиль получателя
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
}

// UserClient синхронный lookup получателя в User Service (GET /users/{id}/public)
type UserClient struct {
	baseURL string
	client  *http.Client
}

// NewUserClient создаёт клиент; baseURL вида http://user:8086
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetPublicUser возвращает профиль; ErrUserNotFound на 404
func (c *UserClient) GetPublicUser(ctx context.Context, userID string) (PublicUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+url.PathEscape(userID)+"/public", nil)
	if err != nil {
		return PublicUser{}, fmt.Errorf("failed to create request: %w", err)
	}
	platformobservability.InjectHTTP(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return PublicUser{}, fmt.Errorf("failed to get user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return PublicUser{}, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return PublicUser{}, fmt.Errorf("user service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var u PublicUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return PublicUser{}, fmt.Errorf("failed to decode user: %w", err)
	}
	return u, nil
}

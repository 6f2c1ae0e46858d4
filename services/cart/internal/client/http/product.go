package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
)

// ProductClient синхронный lookup продукта в Product Service (GET /products/{id})
type ProductClient struct {
	baseURL string
	client  *http.Client
}

// NewProductClient создаёт клиент; baseURL вида http://product:8081
func NewProductClient(baseURL string, timeout time.Duration) *ProductClient {
	return &ProductClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"is_available"`
	Version     int64   `json:"version"`
}

// GetProduct возвращает снимок продукта; domain.ErrProductNotFound на 404
func (c *ProductClient) GetProduct(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+url.PathEscape(productID), nil)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	platformobservability.InjectHTTP(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("failed to get product: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ProductSnapshot{}, domain.ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ProductSnapshot{}, fmt.Errorf("product service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p productResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("failed to decode product: %w", err)
	}
	return domain.ProductSnapshot{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		IsAvailable: p.IsAvailable,
		Version:     p.Version,
	}, nil
}

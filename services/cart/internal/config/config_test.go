package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	tests := []struct {
		env        string
		httpAddr   string
		redisAddr  string
		productURL string
	}{
		{env: "local", httpAddr: "127.0.0.1:8082", redisAddr: "127.0.0.1:16379", productURL: "http://127.0.0.1:8081"},
		{env: "docker", httpAddr: "0.0.0.0:8082", redisAddr: "redis:6379", productURL: "http://product:8081"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			os.Clearenv()
			t.Setenv("APP_ENV", tt.env)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.httpAddr, cfg.HTTPAddr)
			assert.Equal(t, tt.redisAddr, cfg.RedisAddr)
			assert.Equal(t, tt.productURL, cfg.ProductServiceURL)
			assert.Equal(t, StorageRedis, cfg.Storage)
			assert.Equal(t, 3*time.Second, cfg.ProductLookupTimeout)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "storage", env: map[string]string{"STORAGE": "mysql"}},
		{name: "lookup timeout", env: map[string]string{"PRODUCT_LOOKUP_TIMEOUT": "-1s"}},
		{name: "lookup timeout format", env: map[string]string{"PRODUCT_LOOKUP_TIMEOUT": "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

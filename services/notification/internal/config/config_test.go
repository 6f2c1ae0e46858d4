package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/appconfig"
)

func TestLoad_LocalDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, appconfig.EnvLocal, cfg.AppEnv)
	assert.Equal(t, "127.0.0.1:8087", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:50054", cfg.GRPCAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "http://127.0.0.1:8086", cfg.UserServiceURL)
	assert.Equal(t, 3*time.Second, cfg.UserLookupTimeout)
	assert.Equal(t, EmailQueueBus, cfg.EmailQueue)
	assert.Contains(t, cfg.PostgresDSN, "127.0.0.1:15435")
}

func TestLoad_DockerDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "docker")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:50054", cfg.GRPCAddr)
	assert.Equal(t, "http://user:8086", cfg.UserServiceURL)
	assert.Contains(t, cfg.PostgresDSN, "notification-postgres:5432")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown storage", env: map[string]string{"STORAGE": "sqlite"}},
		{name: "unknown email queue", env: map[string]string{"EMAIL_QUEUE": "smtp"}},
		{name: "bad lookup timeout", env: map[string]string{"USER_LOOKUP_TIMEOUT": "soon"}},
		{name: "zero lookup timeout", env: map[string]string{"USER_LOOKUP_TIMEOUT": "0s"}},
		{name: "invalid app env", env: map[string]string{"APP_ENV": "staging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_MemoryStorageWithLogQueue(t *testing.T) {
	os.Clearenv()
	os.Setenv("STORAGE", "memory")
	os.Setenv("EMAIL_QUEUE", "log")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, EmailQueueLog, cfg.EmailQueue)
}

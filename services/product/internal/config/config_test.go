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
	t.Setenv("APP_ENV", "local")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, appconfig.EnvLocal, cfg.AppEnv)
	assert.Equal(t, "127.0.0.1:8081", cfg.HTTPAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 10*time.Minute, cfg.RatingReconcileInterval)
	assert.Equal(t, "kafka", cfg.EventBus.Bus.Transport)
	assert.Equal(t, []string{"localhost:19092"}, cfg.EventBus.Kafka.Brokers)
}

func TestLoad_DockerDefaults(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_ENV", "docker")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.HTTPAddr)
	assert.Contains(t, cfg.PostgresDSN, "@postgres:5432")
	assert.Equal(t, []string{"kafka:9092"}, cfg.EventBus.Kafka.Brokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "app env", env: map[string]string{"APP_ENV": "prod"}},
		{name: "storage", env: map[string]string{"STORAGE": "sqlite"}},
		{name: "reconcile interval", env: map[string]string{"RATING_RECONCILE_INTERVAL": "soon"}},
		{name: "transport", env: map[string]string{"EVENTBUS_TRANSPORT": "nats"}},
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

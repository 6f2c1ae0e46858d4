package transport

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/memory"
)

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "EVENTBUS_TRANSPORT", "EVENTBUS_WORKERS", "EVENTBUS_RETRY_MAX_ATTEMPTS", "KAFKA_BROKERS")

	cfg, err := Load("docker")
	require.NoError(t, err)

	assert.Equal(t, eventbus.TransportKafka, cfg.Bus.Transport)
	assert.Equal(t, 5, cfg.Bus.MaxAttempts)
	assert.Equal(t, 2, cfg.Bus.Workers)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_InvalidTransport(t *testing.T) {
	t.Setenv("EVENTBUS_TRANSPORT", "nats")

	_, err := Load("local")
	require.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	t.Setenv("EVENTBUS_TRANSPORT", "memory")
	cfg, err := Load("local")
	require.NoError(t, err)

	bus, err := Open(context.Background(), zap.NewNop(), "order", cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Bus{}, bus)
	require.NoError(t, bus.Close())
}

// unsetEnv удаляет переменные на время теста (t.Setenv восстановит исходные значения)
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

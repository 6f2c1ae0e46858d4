// Package transport выбирает реализацию шины событий по EVENTBUS_TRANSPORT.
package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	kafkabus "github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/kafka"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/rabbitmq"
	platformkafka "github.com/vladyslavplus/KosherClouds-sub002/platform/kafka"
)

// Config настройки шины и брокера
type Config struct {
	Bus   eventbus.Config
	Kafka platformkafka.Config
}

// Load читает настройки шины и Kafka из окружения; appEnv задаёт дефолт брокеров
func Load(appEnv string) (Config, error) {
	busCfg, err := eventbus.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	kafkaCfg := platformkafka.DefaultConfig(appEnv)
	if busCfg.Transport == eventbus.TransportKafka {
		if err := platformkafka.LoadEnv(&kafkaCfg); err != nil {
			return Config{}, err
		}
	}
	return Config{Bus: busCfg, Kafka: kafkaCfg}, nil
}

// Open создаёт шину выбранного транспорта
func Open(ctx context.Context, logger *zap.Logger, service string, cfg Config, opts ...eventbus.ProcessorOption) (eventbus.Bus, error) {
	logger.Info("opening event bus",
		zap.String("transport", cfg.Bus.Transport),
		zap.Int("workers", cfg.Bus.Workers),
		zap.Int("max_attempts", cfg.Bus.MaxAttempts),
		zap.Duration("backoff_base", cfg.Bus.BackoffBase),
		zap.Duration("backoff_max", cfg.Bus.BackoffMax),
	)

	switch cfg.Bus.Transport {
	case eventbus.TransportKafka:
		logger.Info("kafka config", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Int("partitions", cfg.Kafka.Partitions))
		return kafkabus.New(logger, service, cfg.Kafka, cfg.Bus, opts...), nil
	case eventbus.TransportRabbitMQ:
		return rabbitmq.Dial(ctx, logger, service, cfg.Bus, opts...)
	case eventbus.TransportMemory:
		return memory.New(logger, service, cfg.Bus, opts...), nil
	default:
		return nil, fmt.Errorf("unknown event bus transport %q", cfg.Bus.Transport)
	}
}

package kafka

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv дополняет cfg значениями из переменных окружения (caarlos0/env/v10)
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse kafka env: %w", err)
	}
	return cfg.Validate()
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if c.Partitions <= 0 {
		return fmt.Errorf("KAFKA_TOPIC_PARTITIONS must be positive")
	}
	if c.ReplicationFactor <= 0 {
		return fmt.Errorf("KAFKA_REPLICATION_FACTOR must be positive")
	}
	return nil
}

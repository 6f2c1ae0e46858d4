package config

import (
	"fmt"
	"log"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/appconfig"
)

// Хранилища корзин
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config содержит конфигурацию Cart Service
type Config struct {
	appconfig.Base

	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	// Storage redis|memory
	Storage string

	ProductServiceURL    string
	ProductLookupTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (Config, error) {
	base, err := appconfig.LoadBase()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Base: base}

	cfg.HTTPAddr = base.ByEnv("HTTP_ADDR", "127.0.0.1:8082", "0.0.0.0:8082")
	cfg.RedisAddr = base.ByEnv("REDIS_ADDR", "127.0.0.1:16379", "redis:6379")
	cfg.RedisPassword = appconfig.GetString("REDIS_PASSWORD", "")
	cfg.Storage = appconfig.GetString("STORAGE", StorageRedis)
	cfg.ProductServiceURL = base.ByEnv("PRODUCT_SERVICE_URL", "http://127.0.0.1:8081", "http://product:8081")

	if cfg.ProductLookupTimeout, err = appconfig.GetDuration("PRODUCT_LOOKUP_TIMEOUT", 3*time.Second); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	switch c.Storage {
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE must be redis or memory, got %q", c.Storage)
	}
	if c.ProductServiceURL == "" {
		return fmt.Errorf("PRODUCT_SERVICE_URL is required")
	}
	if c.ProductLookupTimeout <= 0 {
		return fmt.Errorf("PRODUCT_LOOKUP_TIMEOUT must be positive")
	}
	return nil
}

// Log выводит конфигурацию в лог
func (c Config) Log() {
	log.Printf("Config loaded:")
	c.Base.Log()
	log.Printf("  HTTP_ADDR: %s", c.HTTPAddr)
	log.Printf("  STORAGE: %s", c.Storage)
	log.Printf("  REDIS_ADDR: %s", c.RedisAddr)
	if c.RedisPassword != "" {
		log.Printf("  REDIS_PASSWORD: ***")
	}
	log.Printf("  PRODUCT_SERVICE_URL: %s", c.ProductServiceURL)
	log.Printf("  PRODUCT_LOOKUP_TIMEOUT: %s", c.ProductLookupTimeout)
}

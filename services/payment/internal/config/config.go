package config

import (
	"fmt"
	"log"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/appconfig"
)

// Config содержит конфигурацию Payment Service
type Config struct {
	appconfig.Base

	HTTPAddr             string
	GRPCAddr             string
	EnableGRPCReflection bool
}

// Load загружает конфигурацию из переменных окружения
// Читает APP_ENV и устанавливает дефолты в зависимости от окружения
func Load() (Config, error) {
	base, err := appconfig.LoadBase()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Base: base}

	cfg.HTTPAddr = base.ByEnv("HTTP_ADDR", "127.0.0.1:8083", "0.0.0.0:8083")
	cfg.GRPCAddr = base.ByEnv("GRPC_ADDR", "127.0.0.1:50052", "0.0.0.0:50052")
	cfg.EnableGRPCReflection = appconfig.GetBool("ENABLE_GRPC_REFLECTION", false)

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
	if c.GRPCAddr == "" {
		return fmt.Errorf("GRPC_ADDR is required")
	}
	return nil
}

// Log выводит конфигурацию в лог
func (c Config) Log() {
	log.Printf("Config loaded:")
	c.Base.Log()
	log.Printf("  HTTP_ADDR: %s", c.HTTPAddr)
	log.Printf("  GRPC_ADDR: %s", c.GRPCAddr)
	log.Printf("  ENABLE_GRPC_REFLECTION: %v", c.EnableGRPCReflection)
}

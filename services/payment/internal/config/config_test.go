package config

import (
	"os"
	"testing"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/appconfig"
)

func TestLoad_LocalDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != appconfig.EnvLocal {
		t.Errorf("Expected AppEnv=local, got %s", cfg.AppEnv)
	}
	if cfg.HTTPAddr != "127.0.0.1:8083" {
		t.Errorf("Expected HTTPAddr=127.0.0.1:8083, got %s", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != "127.0.0.1:50052" {
		t.Errorf("Expected GRPCAddr=127.0.0.1:50052, got %s", cfg.GRPCAddr)
	}
	if cfg.EnableGRPCReflection != false {
		t.Errorf("Expected EnableGRPCReflection=false, got %v", cfg.EnableGRPCReflection)
	}
}

func TestLoad_DockerDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "docker")
	os.Setenv("ENABLE_GRPC_REFLECTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != appconfig.EnvDocker {
		t.Errorf("Expected AppEnv=docker, got %s", cfg.AppEnv)
	}
	if cfg.GRPCAddr != "0.0.0.0:50052" {
		t.Errorf("Expected GRPCAddr=0.0.0.0:50052, got %s", cfg.GRPCAddr)
	}
	if !cfg.EnableGRPCReflection {
		t.Errorf("Expected EnableGRPCReflection=true")
	}
}

func TestLoad_InvalidAppEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid APP_ENV")
	}
}

package main

import (
	"log"

	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/app"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Log()

	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}

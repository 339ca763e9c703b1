package main

import (
	"log"

	"github.com/shestoi/stockhold/services/inventory/internal/app"
	"github.com/shestoi/stockhold/services/inventory/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("failed to build app: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("app stopped with error: %v", err)
	}
}

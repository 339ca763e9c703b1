package main

import (
	"log"
	_ "time/tzdata"

	"github.com/shestoi/stockhold/services/reservation/internal/app"
	"github.com/shestoi/stockhold/services/reservation/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Build собирает граф зависимостей и применяет миграции
	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// Run блокируется до graceful shutdown
	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}

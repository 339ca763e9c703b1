// Команда release-expired выполняет один проход освобождения истёкших резервов и завершается.
// Запускается из внешнего планировщика (k8s CronJob, systemd timer) вместо встроенного cron.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/shestoi/stockhold/services/reservation/internal/app"
	"github.com/shestoi/stockhold/services/reservation/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := app.BuildReleaseExpired(cfg)
	if err != nil {
		log.Fatalf("Failed to build sweeper: %v", err)
	}

	result, err := job.Run(ctx)
	if err != nil {
		log.Fatalf("Release expired reservations failed: %v", err)
	}
	log.Printf("Released expired reservations: total_expired=%d released=%d", result.TotalExpired, result.Released)
}

package app

import (
	"context"

	"go.uber.org/zap"

	platformlogging "github.com/shestoi/stockhold/platform/logging"
	platformshutdown "github.com/shestoi/stockhold/platform/shutdown"
	"github.com/shestoi/stockhold/services/reservation/internal/config"
	"github.com/shestoi/stockhold/services/reservation/internal/job"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// ReleaseExpired одноразовый проход sweeper (cmd/release-expired)
type ReleaseExpired struct {
	logger      *zap.Logger
	job         *job.ExpiryJob
	shutdownMgr *platformshutdown.Manager
}

// BuildReleaseExpired собирает зависимости sweeper без HTTP и Kafka
func BuildReleaseExpired(cfg config.Config) (*ReleaseExpired, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("op", "app.BuildReleaseExpired"))

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	d, err := buildDeps(context.Background(), cfg, logger, shutdownMgr)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	expiryJob, err := d.newExpiryJob(cfg, logger)
	if err != nil {
		shutdownMgr.Shutdown()
		return nil, err
	}

	return &ReleaseExpired{logger: logger, job: expiryJob, shutdownMgr: shutdownMgr}, nil
}

// Run выполняет один проход под локом и закрывает соединения
func (r *ReleaseExpired) Run(ctx context.Context) (service.SweepResult, error) {
	defer platformlogging.Sync(r.logger)
	defer r.shutdownMgr.Shutdown()

	return r.job.RunNow(ctx)
}

package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/stockhold/platform/health/http"
	platformlogging "github.com/shestoi/stockhold/platform/logging"
	platformobservability "github.com/shestoi/stockhold/platform/observability"
	platformshutdown "github.com/shestoi/stockhold/platform/shutdown"
	httpclient "github.com/shestoi/stockhold/services/reservation/internal/client/http"
	"github.com/shestoi/stockhold/services/reservation/internal/config"
	"github.com/shestoi/stockhold/services/reservation/internal/job"
	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/repository/memory"
	"github.com/shestoi/stockhold/services/reservation/internal/repository/postgres"
	redisrepo "github.com/shestoi/stockhold/services/reservation/internal/repository/redis"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

const serviceName = "reservation"

// deps общие зависимости сервиса и одноразового sweep
type deps struct {
	reservations repository.ReservationRepository
	states       repository.StateRepository
	outbox       repository.OutboxRepository
	processed    service.ProcessedEventsStore
	locker       job.Locker
	inventory    *httpclient.InventoryClient
	httpClient   *http.Client
	policy       service.Policy
	checks       []platformhealth.Check
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return platformlogging.New(platformlogging.Config{
		ServiceName: serviceName,
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
}

// buildDeps подключает хранилище, redis и клиента Inventory.
// Закрытие ресурсов регистрируется в shutdownMgr.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger, shutdownMgr *platformshutdown.Manager) (*deps, error) {
	d := &deps{
		policy: service.Policy{
			MaxWindow:           cfg.MaxWindow,
			CompensationTimeout: cfg.CompensationTimeout,
		},
	}

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("Using in-memory storage, reservations are lost on restart")
		store := memory.NewStore(cfg.EventsTopic)
		d.reservations = store.Reservations()
		d.states = store.States()
		d.outbox = store
	default:
		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
		logger.Info("PostgreSQL connection established")

		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("Migrations applied")

		d.reservations = postgres.NewReservationRepository(pool, cfg.EventsTopic)
		d.states = postgres.NewStateRepository(pool)
		d.outbox = postgres.NewOutboxRepository(pool)
		d.checks = append(d.checks, platformhealth.Check{Name: "postgres", Fn: pool.Ping})
	}

	if cfg.RedisAddr != "" {
		logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		shutdownMgr.Add("redis", platformshutdown.Close(client))

		d.locker = redisrepo.NewSweepLock(client, cfg.Sweeper.LockKey, cfg.Sweeper.LockTTL, logger)
		d.processed = redisrepo.NewProcessedEventsStore(client, logger)
		d.checks = append(d.checks, platformhealth.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	} else {
		logger.Info("REDIS_ADDR is empty, sweep lock and event dedupe are process-local")
		d.locker = memory.NewLock()
		d.processed = memory.NewProcessedEventsStore()
	}

	// исходящие вызовы несут trace context
	d.httpClient = &http.Client{
		Transport: platformobservability.NewTransport(serviceName, http.DefaultTransport),
	}

	d.inventory = httpclient.NewInventoryClient(httpclient.InventoryConfig{
		BaseURL: cfg.InventoryURL,
		Timeout: cfg.InventoryTimeout,
		Mode:    httpclient.ReserveMode(cfg.InventoryReserveMode),
		Retry:   retryPolicy(cfg),
	}, d.httpClient, logger.Named("inventory_client"))

	return d, nil
}

func retryPolicy(cfg config.Config) httpclient.RetryPolicy {
	return httpclient.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BackoffBase: cfg.RetryBackoffBase,
		BackoffMax:  cfg.RetryBackoffMax,
		RetryWrites: cfg.RetryWrites,
	}
}

func (d *deps) newSweeper(logger *zap.Logger) *service.ExpirySweeper {
	return service.NewExpirySweeper(d.inventory, d.reservations, d.states, d.policy, logger.Named("sweeper"))
}

func (d *deps) newExpiryJob(cfg config.Config, logger *zap.Logger) (*job.ExpiryJob, error) {
	return job.NewExpiryJob(d.newSweeper(logger), d.locker, job.Config{
		Schedule:   cfg.Sweeper.Schedule,
		Timezone:   cfg.Sweeper.Timezone,
		RunOnStart: cfg.Sweeper.RunOnStart,
		Timeout:    cfg.Sweeper.Timeout,
	}, logger.Named("expiry_job"))
}

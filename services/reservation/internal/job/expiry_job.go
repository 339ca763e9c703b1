package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// Sweeper один проход освобождения истёкших резервов
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// Locker single-flight между репликами (Redis) или внутри процесса (memory)
type Locker interface {
	TryLock(ctx context.Context) (token string, ok bool, err error)
	Unlock(ctx context.Context, token string) error
}

// Config расписание sweeper
type Config struct {
	// Schedule cron выражение из 5 полей, например "0 0 * * *"
	Schedule string
	// Timezone IANA имя зоны, в которой интерпретируется расписание
	Timezone string
	// RunOnStart выполнить один проход сразу после Start
	RunOnStart bool
	// Timeout ограничение на один проход
	Timeout time.Duration
}

// ExpiryJob запускает sweeper по расписанию и вручную
type ExpiryJob struct {
	sweeper  Sweeper
	locker   Locker
	cfg      Config
	cron     *cron.Cron
	logger   *zap.Logger
	location *time.Location

	mu      sync.Mutex
	baseCtx context.Context
}

// NewExpiryJob проверяет расписание и зону; ошибка - некорректная конфигурация
func NewExpiryJob(sweeper Sweeper, locker Locker, cfg Config, logger *zap.Logger) (*ExpiryJob, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", cfg.Schedule, err)
	}

	return &ExpiryJob{
		sweeper:  sweeper,
		locker:   locker,
		cfg:      cfg,
		cron:     cron.New(cron.WithLocation(loc)),
		logger:   logger,
		location: loc,
		baseCtx:  context.Background(),
	}, nil
}

// Start регистрирует задачу и запускает планировщик; ctx ограничивает плановые проходы
func (j *ExpiryJob) Start(ctx context.Context) error {
	j.mu.Lock()
	j.baseCtx = ctx
	j.mu.Unlock()

	_, err := j.cron.AddFunc(j.cfg.Schedule, j.runScheduled)
	if err != nil {
		return fmt.Errorf("schedule expiry job: %w", err)
	}
	j.cron.Start()

	j.logger.Info("expiry job scheduled",
		zap.String("schedule", j.cfg.Schedule),
		zap.String("timezone", j.location.String()),
		zap.Bool("run_on_start", j.cfg.RunOnStart),
	)

	if j.cfg.RunOnStart {
		go j.runScheduled()
	}
	return nil
}

// RunNow выполняет проход немедленно.
// Если проход уже идёт (здесь или на другой реплике) - service.ErrSweepInProgress.
func (j *ExpiryJob) RunNow(ctx context.Context) (service.SweepResult, error) {
	token, ok, err := j.locker.TryLock(ctx)
	if err != nil {
		return service.SweepResult{}, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return service.SweepResult{}, service.ErrSweepInProgress
	}
	defer func() {
		if err := j.locker.Unlock(context.WithoutCancel(ctx), token); err != nil {
			j.logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	if j.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := j.sweeper.Sweep(ctx)
	if err != nil {
		j.logger.Error("expiry sweep failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return service.SweepResult{}, err
	}

	j.logger.Info("expiry sweep completed",
		zap.Int("total_expired", result.TotalExpired),
		zap.Int("released", result.Released),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Stop останавливает планировщик; контекст закрывается после завершения текущего прохода
func (j *ExpiryJob) Stop() context.Context {
	return j.cron.Stop()
}

func (j *ExpiryJob) runScheduled() {
	j.mu.Lock()
	ctx := j.baseCtx
	j.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := j.RunNow(ctx); errors.Is(err, service.ErrSweepInProgress) {
		j.logger.Info("expiry sweep skipped, another run holds the lock")
	}
}

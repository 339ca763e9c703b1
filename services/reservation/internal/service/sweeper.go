package service

import (
	"context"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"go.uber.org/zap"
)

// SweepResult итог одного прохода sweeper
type SweepResult struct {
	TotalExpired int `json:"totalExpired"`
	Released     int `json:"released"`
}

// ExpirySweeper освобождает сток истёкших резервов и переводит их в EXPIRED
type ExpirySweeper struct {
	inventory    InventoryClient
	reservations repository.ReservationRepository
	states       repository.StateRepository
	policy       Policy
	clock        Clock
	logger       *zap.Logger
	metrics      *metrics
}

// NewExpirySweeper создаёт новый экземпляр ExpirySweeper
func NewExpirySweeper(
	inventory InventoryClient,
	reservations repository.ReservationRepository,
	states repository.StateRepository,
	policy Policy,
	logger *zap.Logger,
	opts ...Option,
) *ExpirySweeper {
	o := applyOptions(opts)
	return &ExpirySweeper{
		inventory:    inventory,
		reservations: reservations,
		states:       states,
		policy:       policy,
		clock:        o.clock,
		logger:       logger,
		metrics:      newMetrics(),
	}
}

// Sweep обрабатывает активные резервы с expires_at < now, от самых старых.
// Строка переводится в EXPIRED даже если release не удался: сбой только логируется,
// повторной попытки для этой строки не будет.
// Ошибка возвращается только если в справочнике нет нужных состояний или выборка не удалась.
func (s *ExpirySweeper) Sweep(ctx context.Context) (SweepResult, error) {
	ids, err := resolveStates(ctx, s.states, repository.StatePending, repository.StateConfirmed, repository.StateExpired)
	if err != nil {
		return SweepResult{}, err
	}
	active := []int64{ids[repository.StatePending], ids[repository.StateConfirmed]}
	expiredID := ids[repository.StateExpired]

	now := s.clock.Now()
	rows, err := s.reservations.ListExpired(ctx, now, active)
	if err != nil {
		return SweepResult{}, unexpected("list expired reservations", err)
	}

	if len(rows) == 0 {
		s.logger.Info("no expired reservations found")
		return SweepResult{}, nil
	}

	s.logger.Info("expired reservations found", zap.Int("count", len(rows)), zap.Time("now", now))

	result := SweepResult{TotalExpired: len(rows)}
	releaseFailures := 0
	for _, r := range rows {
		released, releaseFailed := s.expire(ctx, r, expiredID)
		if released {
			result.Released++
		}
		if releaseFailed {
			releaseFailures++
		}
	}

	s.metrics.swept(ctx, result, releaseFailures)
	s.logger.Info("expired reservations processed",
		zap.Int("total_expired", result.TotalExpired),
		zap.Int("released", result.Released),
		zap.Int("release_failures", releaseFailures),
	)
	return result, nil
}

// expire обрабатывает одну строку; ошибки не выходят за её пределы
func (s *ExpirySweeper) expire(ctx context.Context, r repository.Reservation, expiredID int64) (released, releaseFailed bool) {
	log := s.logger.With(
		zap.Int64("reservation_id", r.ID),
		zap.Int64("stock_ref", r.StockRef),
		zap.Int64("amount", r.Quantity),
		zap.Time("expires_at", r.ExpiresAt),
	)

	if r.Quantity > 0 {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout())
		err := s.inventory.Release(callCtx, r.StockRef, r.Quantity)
		cancel()
		if err != nil {
			log.Error("release of expired reservation failed, marking expired anyway", zap.Error(err))
			releaseFailed = true
		} else {
			released = true
		}
	} else {
		log.Info("expired reservation holds no stock")
	}

	if err := s.reservations.UpdateState(ctx, r.ID, expiredID); err != nil {
		log.Error("failed to mark reservation expired", zap.Error(err))
	}
	return released, releaseFailed
}

func (s *ExpirySweeper) callTimeout() time.Duration {
	if s.policy.CompensationTimeout > 0 {
		return s.policy.CompensationTimeout
	}
	return DefaultPolicy().CompensationTimeout
}

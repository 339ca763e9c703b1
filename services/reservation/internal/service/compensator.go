package service

import (
	"context"
	"errors"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/saga"
	"go.uber.org/zap"
)

// compensator связывает журнал саги с inventory клиентом и репозиторием резервов
type compensator struct {
	inventory    InventoryClient
	reservations repository.ReservationRepository
}

var _ saga.Compensator = compensator{}

func (c compensator) Reserve(ctx context.Context, stockRef, amount int64) error {
	return c.inventory.Reserve(ctx, stockRef, amount)
}

func (c compensator) Release(ctx context.Context, stockRef, amount int64) error {
	return c.inventory.Release(ctx, stockRef, amount)
}

// Remove удаляет строку резерва; уже удалённая строка не ошибка
func (c compensator) Remove(ctx context.Context, reservationID int64) error {
	err := c.reservations.Delete(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// rollback откатывает журнал; ошибки компенсации только логируются, исходная причина не подменяется
func rollback(ctx context.Context, ledger *saga.Ledger, c compensator, m *metrics, logger *zap.Logger, cause error) {
	steps := ledger.Len()
	if steps == 0 {
		return
	}
	logger.Warn("rolling back saga", zap.Int("steps", steps), zap.Error(cause))

	if err := ledger.Compensate(ctx, c); err != nil {
		m.compensationFailed(ctx)
		logger.Error("saga compensation incomplete", zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	m.compensated(ctx)
}

package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Типы входящих событий жизненного цикла заказа
const (
	EventOrderPaymentCompleted  = "order.payment.completed"
	EventOrderAssemblyCompleted = "order.assembly.completed"
)

// ErrEventIDRequired возвращается когда event_id отсутствует в событии
var ErrEventIDRequired = errors.New("event_id is required")

// OrderEvent входящее событие заказа из Kafka
type OrderEvent struct {
	EventID      string
	EventType    string
	EventVersion int
	OccurredAt   time.Time
	OrderRef     int64
}

// OrderLifecycle переходы резервов заказа
type OrderLifecycle interface {
	ConfirmOrder(ctx context.Context, orderRef int64) (int, error)
	CompleteOrder(ctx context.Context, orderRef int64) (int, error)
}

// OrderEventService применяет события заказа к его резервам.
// Повторная доставка с тем же event_id не выполняет переход второй раз.
type OrderEventService struct {
	lifecycle      OrderLifecycle
	store          ProcessedEventsStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewOrderEventService создаёт новый экземпляр OrderEventService
func NewOrderEventService(lifecycle OrderLifecycle, store ProcessedEventsStore, idempotencyTTL time.Duration, logger *zap.Logger) *OrderEventService {
	return &OrderEventService{
		lifecycle:      lifecycle,
		store:          store,
		idempotencyTTL: idempotencyTTL,
		logger:         logger,
	}
}

// HandleOrderEvent обрабатывает одно событие заказа
func (s *OrderEventService) HandleOrderEvent(ctx context.Context, event OrderEvent) error {
	if event.EventID == "" {
		s.logger.Error("event_id is required for idempotency", zap.Int64("order_ref", event.OrderRef))
		return ErrEventIDRequired
	}

	log := s.logger.With(
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int64("order_ref", event.OrderRef),
	)

	processed, err := s.store.IsProcessed(ctx, event.EventID)
	if err != nil {
		log.Error("failed to check if event is processed", zap.Error(err))
		return err
	}
	if processed {
		log.Info("event already processed, skipping")
		return nil
	}

	var changed int
	switch event.EventType {
	case EventOrderPaymentCompleted:
		changed, err = s.lifecycle.ConfirmOrder(ctx, event.OrderRef)
	case EventOrderAssemblyCompleted:
		changed, err = s.lifecycle.CompleteOrder(ctx, event.OrderRef)
	default:
		log.Warn("unsupported order event type, skipping")
		return nil
	}
	if err != nil {
		log.Error("failed to apply order event", zap.Error(err))
		return err
	}

	if err := s.store.MarkProcessed(ctx, event.EventID, s.idempotencyTTL); err != nil {
		log.Error("failed to mark event as processed", zap.Error(err))
		return err
	}

	log.Info("order event applied", zap.Int("reservations_changed", changed))
	return nil
}

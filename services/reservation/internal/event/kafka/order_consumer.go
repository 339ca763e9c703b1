package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// OrderEventHandler применяет событие заказа к резервам
type OrderEventHandler interface {
	HandleOrderEvent(ctx context.Context, event service.OrderEvent) error
}

// DeadLetterPublisher отправляет сообщение, которое не удалось обработать
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, originalErr error, eventType, eventID, orderRef string) error
}

// OrderEventConsumer читает один топик событий заказа (at-least-once):
// FetchMessage -> обработка с retry -> DLQ при исчерпании -> CommitMessages
type OrderEventConsumer struct {
	logger      *zap.Logger
	reader      MessageReader
	handler     OrderEventHandler
	dlq         DeadLetterPublisher
	eventType   string
	maxAttempts int
	backoffBase time.Duration
	sleeper     Sleeper
}

// NewOrderEventConsumer создаёт consumer топика; eventType используется, если в сообщении нет event_type
func NewOrderEventConsumer(
	logger *zap.Logger,
	reader MessageReader,
	handler OrderEventHandler,
	dlq DeadLetterPublisher,
	eventType string,
	maxAttempts int,
	backoffBase time.Duration,
) *OrderEventConsumer {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if backoffBase <= 0 {
		backoffBase = 1 * time.Second
	}
	return &OrderEventConsumer{
		logger:      logger,
		reader:      reader,
		handler:     handler,
		dlq:         dlq,
		eventType:   eventType,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleeper:     &DefaultSleeper{},
	}
}

// WithSleeper подменяет задержку между попытками (для тестов)
func (c *OrderEventConsumer) WithSleeper(s Sleeper) *OrderEventConsumer {
	c.sleeper = s
	return c
}

// Start блокируется до отмены ctx
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting order event consumer",
		zap.String("event_type", c.eventType),
		zap.Int("max_retry_attempts", c.maxAttempts),
		zap.Duration("retry_backoff_base", c.backoffBase),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			continue
		}

		if !c.processMessage(ctx, m) {
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			continue
		}
		c.logger.Debug("message offset committed",
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// processMessage возвращает true, если offset нужно закоммитить
func (c *OrderEventConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	log := c.logger.With(
		zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	var payload map[string]any
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		log.Error("failed to unmarshal kafka message", zap.Error(err))
		return c.deadLetter(m, err, "", "", "")
	}

	event, err := c.parseOrderEvent(payload)
	if err != nil {
		log.Error("failed to parse order event", zap.Error(err))
		eventID, _ := payload["event_id"].(string)
		return c.deadLetter(m, err, c.eventType, eventID, "")
	}

	orderRef := strconv.FormatInt(event.OrderRef, 10)
	log = log.With(
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int64("order_ref", event.OrderRef),
	)
	log.Info("received order event")

	if !c.handleWithRetry(ctx, event, log) {
		if ctx.Err() != nil {
			// остановка сервиса: без commit, сообщение придёт снова
			return false
		}
		log.Error("failed to handle order event after all retries, sending to DLQ")
		return c.deadLetter(m, fmt.Errorf("exhausted all retry attempts"), event.EventType, event.EventID, orderRef)
	}

	log.Info("order event processed successfully")
	return true
}

// handleWithRetry backoff: base, 2*base, 4*base ...
func (c *OrderEventConsumer) handleWithRetry(ctx context.Context, event service.OrderEvent, log *zap.Logger) bool {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoffBase * time.Duration(1<<uint(attempt-2))
			log.Info("retrying order event",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Duration("backoff", backoff),
			)
			if err := c.sleeper.Sleep(ctx, backoff); err != nil {
				return false
			}
		}

		err := c.handler.HandleOrderEvent(ctx, event)
		if err == nil {
			return true
		}
		lastErr = err
		log.Warn("failed to handle order event",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)
	}

	log.Error("exhausted all retry attempts", zap.Error(lastErr), zap.Int("max_attempts", c.maxAttempts))
	return false
}

func (c *OrderEventConsumer) deadLetter(m kafka.Message, err error, eventType, eventID, orderRef string) bool {
	if dlqErr := c.dlq.Publish(context.Background(), m, err, eventType, eventID, orderRef); dlqErr != nil {
		c.logger.Error("failed to publish to DLQ, not committing", zap.Error(dlqErr))
		return false
	}
	return true
}

// parseOrderEvent преобразует payload в service.OrderEvent
func (c *OrderEventConsumer) parseOrderEvent(payload map[string]any) (service.OrderEvent, error) {
	event := service.OrderEvent{EventType: c.eventType}

	if v, ok := payload["event_id"].(string); ok && v != "" {
		event.EventID = v
	} else {
		return event, &ParseError{Field: "event_id", Message: "event_id is required"}
	}
	if v, ok := payload["event_type"].(string); ok && v != "" {
		event.EventType = v
	}
	if v, ok := payload["event_version"].(float64); ok {
		event.EventVersion = int(v)
	}
	if v, ok := payload["occurred_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			event.OccurredAt = t
		}
	}

	raw, ok := payload["order_ref"]
	if !ok {
		raw, ok = payload["order_id"]
	}
	if !ok {
		return event, &ParseError{Field: "order_ref", Message: "order_ref is required"}
	}
	orderRef, err := parseOrderRef(raw)
	if err != nil {
		return event, err
	}
	event.OrderRef = orderRef

	return event, nil
}

// parseOrderRef принимает идентификатор заказа числом или строкой
func parseOrderRef(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, &ParseError{Field: "order_ref", Message: fmt.Sprintf("order_ref must be a positive integer, got %v", v)}
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n <= 0 {
			return 0, &ParseError{Field: "order_ref", Message: fmt.Sprintf("order_ref must be a positive integer, got %q", v)}
		}
		return n, nil
	}
	return 0, &ParseError{Field: "order_ref", Message: fmt.Sprintf("order_ref has unsupported type %T", raw)}
}

// Close закрывает Kafka reader
func (c *OrderEventConsumer) Close() error {
	c.logger.Info("closing order event consumer", zap.String("event_type", c.eventType))
	return c.reader.Close()
}

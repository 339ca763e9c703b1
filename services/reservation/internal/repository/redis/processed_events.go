package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProcessedEventsStore реализует service.ProcessedEventsStore: ключ на event_id с TTL
type ProcessedEventsStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewProcessedEventsStore создаёт Redis store обработанных событий
func NewProcessedEventsStore(client *redis.Client, logger *zap.Logger) *ProcessedEventsStore {
	return &ProcessedEventsStore{
		client: client,
		logger: logger,
	}
}

func processedEventKey(eventID string) string {
	return fmt.Sprintf("reservation:processed_event:%s", eventID)
}

// MarkProcessed сохраняет eventID как обработанный на ttl
func (s *ProcessedEventsStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	err := s.client.Set(ctx, processedEventKey(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Err()
	if err != nil {
		s.logger.Error("failed to mark event processed in redis",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// IsProcessed проверяет наличие ключа eventID
func (s *ProcessedEventsStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedEventKey(eventID)).Result()
	if err != nil {
		s.logger.Error("failed to check processed event in redis",
			zap.Error(err),
			zap.String("event_id", eventID),
		)
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return n > 0, nil
}

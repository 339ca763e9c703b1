package memory

import (
	"context"
	"sync"
	"time"
)

// ProcessedEventsStore in-memory реализация service.ProcessedEventsStore.
// Используется, когда REDIS_ADDR не задан; переживает только до рестарта процесса.
type ProcessedEventsStore struct {
	mu     sync.Mutex
	events map[string]time.Time // eventID -> expiresAt
	now    func() time.Time
}

// NewProcessedEventsStore создаёт новый in-memory store
func NewProcessedEventsStore() *ProcessedEventsStore {
	return &ProcessedEventsStore{
		events: make(map[string]time.Time),
		now:    time.Now,
	}
}

// MarkProcessed сохраняет eventID как обработанный с указанным ttl
func (s *ProcessedEventsStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	s.events[eventID] = s.now().Add(ttl)
	return nil
}

// IsProcessed проверяет, был ли eventID уже обработан
func (s *ProcessedEventsStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	_, exists := s.events[eventID]
	return exists, nil
}

// cleanupExpiredLocked удаляет протухшие записи (вызывается с уже захваченным lock)
func (s *ProcessedEventsStore) cleanupExpiredLocked() {
	now := s.now()
	for eventID, expiresAt := range s.events {
		if now.After(expiresAt) {
			delete(s.events, eventID)
		}
	}
}

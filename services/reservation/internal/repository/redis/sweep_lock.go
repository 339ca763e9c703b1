package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockNotHeld токен не совпал: lock истёк по TTL или принадлежит другой реплике
var ErrLockNotHeld = errors.New("lock not held")

// SweepLock распределённый lock для sweeper: SET NX PX + release по токену.
// Защищает только sweep от параллельного sweep на другой реплике.
type SweepLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSweepLock создаёт lock на ключе key с временем жизни ttl
func NewSweepLock(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *SweepLock {
	return &SweepLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// TryLock пытается взять lock; ok=false, если его держит кто-то другой
func (l *SweepLock) TryLock(ctx context.Context) (token string, ok bool, err error) {
	token = uuid.NewString()

	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		l.logger.Error("failed to acquire sweep lock in redis", zap.Error(err), zap.String("key", l.key))
		return "", false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		l.logger.Debug("sweep lock is held by another owner", zap.String("key", l.key))
		return "", false, nil
	}

	l.logger.Debug("sweep lock acquired", zap.String("key", l.key), zap.Duration("ttl", l.ttl))
	return token, true, nil
}

// Unlock освобождает lock, если он всё ещё принадлежит token
func (l *SweepLock) Unlock(ctx context.Context, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		l.logger.Error("failed to release sweep lock in redis", zap.Error(err), zap.String("key", l.key))
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		l.logger.Warn("sweep lock expired before release", zap.String("key", l.key))
		return ErrLockNotHeld
	}
	return nil
}

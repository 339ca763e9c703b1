package memory

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// ErrLockNotHeld токен не совпал с текущим владельцем
var ErrLockNotHeld = errors.New("lock not held")

// Lock in-process lock для sweeper, когда Redis не настроен (одна реплика)
type Lock struct {
	mu     sync.Mutex
	holder string
	seq    int
}

// NewLock создаёт свободный lock
func NewLock() *Lock {
	return &Lock{}
}

// TryLock берёт lock без ожидания
func (l *Lock) TryLock(ctx context.Context) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder != "" {
		return "", false, nil
	}
	l.seq++
	l.holder = strconv.Itoa(l.seq)
	return l.holder, true, nil
}

// Unlock освобождает lock, если token совпадает
func (l *Lock) Unlock(ctx context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holder == "" || l.holder != token {
		return ErrLockNotHeld
	}
	l.holder = ""
	return nil
}

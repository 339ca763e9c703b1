package httpclient

import (
	"context"
	"time"
)

// Sleeper определяет интерфейс для задержки между попытками (подменяется в тестах)
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper реализует Sleeper используя time.After
type DefaultSleeper struct{}

// Sleep ждёт d или отмены контекста
func (s *DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RetryPolicy ограниченный retry для *service.NetworkError.
// Запись повторяется только при RetryWrites: вызовы Inventory не идемпотентны,
// и повтор после неподтверждённого успеха применит изменение второй раз.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	RetryWrites bool
}

// NoRetry одна попытка, без повторов
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) attempts(write bool) int {
	if p.MaxAttempts <= 1 || (write && !p.RetryWrites) {
		return 1
	}
	return p.MaxAttempts
}

// backoff экспоненциально: base, 2*base, 4*base ... не больше BackoffMax
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BackoffBase <= 0 {
		return 0
	}
	d := p.BackoffBase * time.Duration(1<<uint(attempt-1))
	if p.BackoffMax > 0 && d > p.BackoffMax {
		return p.BackoffMax
	}
	return d
}

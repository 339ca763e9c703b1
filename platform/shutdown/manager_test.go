package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownOrder(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	m.Add("postgres_pool", record("postgres_pool"))
	m.Add("http_server", record("http_server"))
	m.Add("failing", func(ctx context.Context) error { return errors.New("boom") })

	m.Shutdown()

	require.Equal(t, []string{"http_server", "postgres_pool"}, order)
}

func TestManager_WorkersStopBeforeShutdownFuncs(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	workerStopped := make(chan struct{})
	m.Go("dispatcher", func(ctx context.Context) error {
		<-ctx.Done()
		close(workerStopped)
		return nil
	})

	var sawWorkerStopped bool
	m.Add("writer", func(ctx context.Context) error {
		select {
		case <-workerStopped:
			sawWorkerStopped = true
		default:
		}
		return nil
	})

	m.Shutdown()

	require.True(t, sawWorkerStopped)
	require.Error(t, m.Context().Err())
}

type fakeScheduler struct{ stopped bool }

func (s *fakeScheduler) Stop() context.Context {
	s.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestStopScheduler(t *testing.T) {
	s := &fakeScheduler{}
	require.NoError(t, StopScheduler(s)(context.Background()))
	require.True(t, s.stopped)
}

package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager управляет graceful shutdown сервиса.
// Хранит корневой контекст для фоновых воркеров (dispatcher, consumer, cron)
// и список shutdown функций, которые выполняются в обратном порядке регистрации.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	funcs []namedFunc

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

type namedFunc struct {
	name string
	fn   func(context.Context) error
}

// New создаёт Manager с таймаутом на каждую shutdown функцию
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context возвращает контекст, который отменяется в начале shutdown
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Add регистрирует shutdown функцию
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, namedFunc{name: name, fn: fn})
}

// Go запускает фоновый воркер на корневом контексте.
// Shutdown дожидается завершения всех воркеров до выполнения shutdown функций.
func (m *Manager) Go(name string, fn func(ctx context.Context) error) {
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		m.logger.Info("Background worker started", zap.String("name", name))
		if err := fn(m.ctx); err != nil && m.ctx.Err() == nil {
			m.logger.Error("Background worker stopped with error", zap.String("name", name), zap.Error(err))
			return
		}
		m.logger.Info("Background worker stopped", zap.String("name", name))
	}()
}

// Wait блокируется до SIGINT/SIGTERM и затем выполняет Shutdown
func (m *Manager) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-m.ctx.Done():
		m.logger.Info("Shutdown requested")
	}

	m.Shutdown()
}

// Shutdown отменяет корневой контекст, ждёт воркеры (не дольше timeout)
// и выполняет shutdown функции от последней к первой
func (m *Manager) Shutdown() {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(m.timeout):
		m.logger.Warn("Background workers did not stop in time", zap.Duration("timeout", m.timeout))
	}

	m.mu.Lock()
	funcs := make([]namedFunc, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		start := time.Now()
		err := f.fn(ctx)
		cancel()

		if err != nil {
			m.logger.Error("Shutdown function failed",
				zap.String("name", f.name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)))
			continue
		}
		m.logger.Info("Shutdown function completed",
			zap.String("name", f.name),
			zap.Duration("duration", time.Since(start)))
	}

	m.logger.Info("Graceful shutdown completed")
}

// ShutdownHTTPServer возвращает shutdown функцию для http.Server
func ShutdownHTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// ShutdownGRPCServer выполняет GracefulStop, по таймауту переходит на Stop
func ShutdownGRPCServer(srv interface {
	GracefulStop()
	Stop()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return fmt.Errorf("graceful stop timeout exceeded, forced stop")
		}
	}
}

// StopScheduler останавливает планировщик и ждёт текущий запуск задачи.
// Подходит для *cron.Cron: Stop() возвращает контекст, закрывающийся после завершения задач.
func StopScheduler(s interface {
	Stop() context.Context
}) func(context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-s.Stop().Done():
			return nil
		case <-ctx.Done():
			return fmt.Errorf("scheduler stop: %w", ctx.Err())
		}
	}
}

// DisconnectMongo возвращает shutdown функцию для MongoDB клиента
func DisconnectMongo(client interface {
	Disconnect(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}
}

// ClosePool возвращает shutdown функцию для pgxpool
func ClosePool(pool interface {
	Close()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

// Close возвращает shutdown функцию для ресурсов с Close() error (redis, kafka writer/reader)
func Close(c interface {
	Close() error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Close()
	}
}

// SetHealthNotServing переводит gRPC health в NOT_SERVING
func SetHealthNotServing(health interface {
	SetNotServing(string)
}) func(context.Context) error {
	return func(ctx context.Context) error {
		health.SetNotServing("")
		return nil
	}
}

package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Op тип побочного эффекта, записанного в журнал
type Op string

const (
	// OpReserve увеличение зарезервированного количества на складской записи
	OpReserve Op = "reserve"
	// OpRelease уменьшение зарезервированного количества на складской записи
	OpRelease Op = "release"
	// OpPersist сохранённая строка резерва, Ref - ID резерва
	OpPersist Op = "persist"
)

// DefaultCompensationTimeout ограничивает каждый компенсирующий вызов
const DefaultCompensationTimeout = 10 * time.Second

// Step одна запись журнала
type Step struct {
	Op     Op
	Ref    int64
	Amount int64
}

// Inverse возвращает шаг, отменяющий данный: reserve <-> release.
// Для OpPersist обратный шаг выполняется через Compensator.Remove.
func (s Step) Inverse() Step {
	switch s.Op {
	case OpReserve:
		return Step{Op: OpRelease, Ref: s.Ref, Amount: s.Amount}
	case OpRelease:
		return Step{Op: OpReserve, Ref: s.Ref, Amount: s.Amount}
	default:
		return s
	}
}

// Compensator выполняет прямые и компенсирующие действия.
// Реализуется адаптером над inventory клиентом и репозиторием резервов.
type Compensator interface {
	Reserve(ctx context.Context, stockRef, amount int64) error
	Release(ctx context.Context, stockRef, amount int64) error
	Remove(ctx context.Context, reservationID int64) error
}

// StepError ошибка компенсации одного шага
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("compensate %s ref=%d amount=%d: %v", e.Step.Op, e.Step.Ref, e.Step.Amount, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Ledger журнал побочных эффектов одной операции оркестратора.
// Шаги записываются только после успешного выполнения, при откате проигрываются в обратном порядке.
type Ledger struct {
	mu      sync.Mutex
	steps   []Step
	timeout time.Duration
	logger  *zap.Logger
}

// NewLedger создаёт пустой журнал
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		timeout: DefaultCompensationTimeout,
		logger:  logger,
	}
}

// WithTimeout задаёт таймаут на каждый компенсирующий вызов
func (l *Ledger) WithTimeout(d time.Duration) *Ledger {
	l.timeout = d
	return l
}

// Record добавляет выполненный шаг
func (l *Ledger) Record(op Op, ref, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, Step{Op: op, Ref: ref, Amount: amount})
}

// Steps возвращает копию журнала
func (l *Ledger) Steps() []Step {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Step, len(l.steps))
	copy(out, l.steps)
	return out
}

// Len количество записанных шагов
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.steps)
}

// Reserve выполняет reserve и записывает шаг при успехе
func (l *Ledger) Reserve(ctx context.Context, c Compensator, stockRef, amount int64) error {
	if err := c.Reserve(ctx, stockRef, amount); err != nil {
		return err
	}
	l.Record(OpReserve, stockRef, amount)
	return nil
}

// Release выполняет release и записывает шаг при успехе
func (l *Ledger) Release(ctx context.Context, c Compensator, stockRef, amount int64) error {
	if err := c.Release(ctx, stockRef, amount); err != nil {
		return err
	}
	l.Record(OpRelease, stockRef, amount)
	return nil
}

// Compensate отменяет записанные шаги от последнего к первому.
// Работает на контексте без отмены: откат должен дойти до конца даже если запрос клиента оборван.
// Ошибка одного шага не прерывает откат остальных; все ошибки логируются и возвращаются через errors.Join.
// После вызова журнал пуст.
func (l *Ledger) Compensate(ctx context.Context, c Compensator) error {
	l.mu.Lock()
	steps := l.steps
	l.steps = nil
	l.mu.Unlock()

	if len(steps) == 0 {
		return nil
	}

	base := context.WithoutCancel(ctx)
	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]

		stepCtx, cancel := context.WithTimeout(base, l.timeout)
		err := l.undo(stepCtx, c, step)
		cancel()

		if err != nil {
			l.logger.Error("compensation step failed",
				zap.String("op", string(step.Op)),
				zap.Int64("ref", step.Ref),
				zap.Int64("amount", step.Amount),
				zap.Error(err),
			)
			errs = append(errs, &StepError{Step: step, Err: err})
			continue
		}
		l.logger.Info("compensation step applied",
			zap.String("op", string(step.Op)),
			zap.Int64("ref", step.Ref),
			zap.Int64("amount", step.Amount),
		)
	}

	return errors.Join(errs...)
}

func (l *Ledger) undo(ctx context.Context, c Compensator, step Step) error {
	switch step.Op {
	case OpReserve:
		return c.Release(ctx, step.Ref, step.Amount)
	case OpRelease:
		return c.Reserve(ctx, step.Ref, step.Amount)
	case OpPersist:
		return c.Remove(ctx, step.Ref)
	default:
		return fmt.Errorf("unknown ledger op %q", step.Op)
	}
}

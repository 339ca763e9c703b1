package service

import (
	"errors"
	"fmt"
	"strings"
)

// Классы ошибок. Конкретные типы ниже матчатся на них через errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidWindow     = errors.New("invalid reservation window")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict")
	ErrNetwork           = errors.New("network error")
	ErrUnexpected        = errors.New("unexpected error")
	ErrSweepInProgress   = errors.New("sweep already in progress")
)

// ValidationError некорректный или отсутствующий вход
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError запрошенная сущность отсутствует (резерв, магазин, перевозчик)
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ReferenceError вход ссылается на несуществующую складскую запись или состояние.
// Это NotFound, но по вине вызывающего, поэтому отдаётся как 400.
type ReferenceError struct {
	Entity string
	ID     int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("unknown %s reference %d", e.Entity, e.ID)
}

func (e *ReferenceError) Is(target error) bool {
	return target == ErrUnknownReference || target == ErrNotFound
}

// InsufficientStockError на складской записи (или по продукту в сумме) не хватает доступного количества
type InsufficientStockError struct {
	StockRef   int64
	ProductRef int64
	Available  int64
	Requested  int64
}

func (e *InsufficientStockError) Error() string {
	if e.StockRef == 0 && e.ProductRef != 0 {
		return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", e.ProductRef, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock on %d: available %d, requested %d", e.StockRef, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ShortageError агрегированный результат предварительной проверки заказа
type ShortageError struct {
	Items []InsufficientStockError
}

func (e *ShortageError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for i := range e.Items {
		parts = append(parts, e.Items[i].Error())
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *ShortageError) Is(target error) bool { return target == ErrInsufficientStock }

// WindowError нарушено ограничение на окно [reserved_at, expires_at]
type WindowError struct {
	Message string
}

func (e *WindowError) Error() string { return e.Message }

func (e *WindowError) Is(target error) bool { return target == ErrInvalidWindow }

// TransitionError переход состояния запрещён
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// TerminalStateError резерв в терминальном состоянии не изменяется через update
type TerminalStateError struct {
	State string
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("reservation is in terminal state %s", e.State)
}

func (e *TerminalStateError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError нарушение уникальности (например, имя состояния)
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NetworkError транспортный сбой или таймаут при вызове удалённого сервиса
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ItemError ошибка одной позиции заказа
type ItemError struct {
	Index    int
	StockRef int64
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d (stock %d): %v", e.Index, e.StockRef, e.Err)
}

// OrderReservationError заказ не зарезервирован, все позиции откачены
type OrderReservationError struct {
	OrderRef int64
	Items    []ItemError
}

func (e *OrderReservationError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, item.Error())
	}
	return fmt.Sprintf("order %d reservation failed: %s", e.OrderRef, strings.Join(parts, "; "))
}

// Unwrap отдаёт причины по всем позициям, errors.Is видит каждую
func (e *OrderReservationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Items))
	for _, item := range e.Items {
		errs = append(errs, item.Err)
	}
	return errs
}

// StateCatalogError в справочнике нет обязательных состояний; ошибка конфигурации
type StateCatalogError struct {
	Missing []string
}

func (e *StateCatalogError) Error() string {
	return fmt.Sprintf("reservation states not configured: %s", strings.Join(e.Missing, ", "))
}

// unexpected оборачивает ошибку инфраструктуры, сохраняя цепочку
func unexpected(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnexpected, err)
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StockRecord складская запись: продукт на конкретном складе
type StockRecord struct {
	ID          int64
	ProductRef  int64
	LocationRef int64
	Available   int64
	Reserved    int64
	UpdatedAt   time.Time
}

// StockFilter фильтр выборки, nil поле не участвует
type StockFilter struct {
	ProductRef  *int64
	LocationRef *int64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=StockRepository --dir=. --output=./mocks --outpkg=mocks

// StockRepository хранилище складских записей.
// Reserve и Release атомарны на уровне одной записи.
type StockRepository interface {
	// Create сохраняет запись; при ID == 0 идентификатор выдаёт хранилище.
	// ErrAlreadyExists, если запись с таким ID или парой продукт/склад уже есть.
	Create(ctx context.Context, rec StockRecord) (StockRecord, error)

	// Get возвращает ErrNotFound, если записи нет
	Get(ctx context.Context, id int64) (StockRecord, error)

	// List выборка по фильтру в порядке ID
	List(ctx context.Context, filter StockFilter) ([]StockRecord, error)

	// Set перезаписывает оба счётчика
	Set(ctx context.Context, id, available, reserved int64) (StockRecord, error)

	// Reserve переносит amount из available в reserved, если available >= amount.
	// Иначе *InsufficientError с текущим available, запись не меняется.
	Reserve(ctx context.Context, id, amount int64) (StockRecord, error)

	// Release переносит amount из reserved в available; reserved не опускается ниже нуля
	Release(ctx context.Context, id, amount int64) (StockRecord, error)
}

var (
	// ErrNotFound складская запись не найдена
	ErrNotFound = errors.New("stock record not found")
	// ErrAlreadyExists запись уже существует
	ErrAlreadyExists = errors.New("stock record already exists")
)

// InsufficientError условие available >= amount не выполнено
type InsufficientError struct {
	Available int64
	Requested int64
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/inventory/internal/repository"
)

var (
	// ErrValidation некорректный вход
	ErrValidation = errors.New("validation error")
	// ErrNotFound складская запись не найдена
	ErrNotFound = errors.New("stock not found")
	// ErrAlreadyExists запись уже существует
	ErrAlreadyExists = errors.New("stock already exists")
)

// ValidationError некорректное поле запроса
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientStockError не хватает available для reserve
type InsufficientStockError struct {
	StockID   int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on %d: available %d, requested %d", e.StockID, e.Available, e.Requested)
}

// StockService содержит бизнес-логику складских записей.
// Зависит от интерфейса StockRepository, а не от конкретной реализации.
type StockService struct {
	repo   repository.StockRepository
	logger *zap.Logger
}

// NewStockService создаёт новый экземпляр StockService
func NewStockService(repo repository.StockRepository, logger *zap.Logger) *StockService {
	return &StockService{
		repo:   repo,
		logger: logger,
	}
}

// Create добавляет складскую запись
func (s *StockService) Create(ctx context.Context, rec repository.StockRecord) (repository.StockRecord, error) {
	if rec.ID < 0 {
		return repository.StockRecord{}, &ValidationError{Field: "id", Message: "must not be negative"}
	}
	if rec.ProductRef <= 0 {
		return repository.StockRecord{}, &ValidationError{Field: "id_producto", Message: "is required"}
	}
	if rec.LocationRef <= 0 {
		return repository.StockRecord{}, &ValidationError{Field: "id_almacen", Message: "is required"}
	}
	if err := validateCounters(rec.Available, rec.Reserved); err != nil {
		return repository.StockRecord{}, err
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.StockRecord{}, fmt.Errorf("stock for product %d at location %d: %w", rec.ProductRef, rec.LocationRef, ErrAlreadyExists)
		}
		return repository.StockRecord{}, err
	}
	s.logger.Info("stock created", zap.Int64("stock_id", created.ID), zap.Int64("product_id", created.ProductRef))
	return created, nil
}

// Get возвращает складскую запись
func (s *StockService) Get(ctx context.Context, id int64) (repository.StockRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return repository.StockRecord{}, s.mapError(id, err)
	}
	return rec, nil
}

// List выборка по продукту и/или складу
func (s *StockService) List(ctx context.Context, filter repository.StockFilter) ([]repository.StockRecord, error) {
	return s.repo.List(ctx, filter)
}

// Set перезаписывает счётчики (контракт read-then-write для внешних клиентов)
func (s *StockService) Set(ctx context.Context, id, available, reserved int64) (repository.StockRecord, error) {
	if err := validateCounters(available, reserved); err != nil {
		return repository.StockRecord{}, err
	}
	rec, err := s.repo.Set(ctx, id, available, reserved)
	if err != nil {
		return repository.StockRecord{}, s.mapError(id, err)
	}
	s.logger.Info("stock set", zap.Int64("stock_id", id), zap.Int64("available", available), zap.Int64("reserved", reserved))
	return rec, nil
}

// Reserve атомарно переносит amount из available в reserved
func (s *StockService) Reserve(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	if amount <= 0 {
		return repository.StockRecord{}, &ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	log := s.logger.With(zap.Int64("stock_id", id), zap.Int64("amount", amount))

	rec, err := s.repo.Reserve(ctx, id, amount)
	if err != nil {
		var insufficient *repository.InsufficientError
		if errors.As(err, &insufficient) {
			log.Info("reserve rejected: insufficient stock", zap.Int64("available", insufficient.Available))
			return repository.StockRecord{}, &InsufficientStockError{StockID: id, Available: insufficient.Available, Requested: amount}
		}
		return repository.StockRecord{}, s.mapError(id, err)
	}

	log.Info("stock reserved", zap.Int64("available", rec.Available), zap.Int64("reserved", rec.Reserved))
	return rec, nil
}

// Release атомарно возвращает amount в available
func (s *StockService) Release(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	if amount <= 0 {
		return repository.StockRecord{}, &ValidationError{Field: "amount", Message: "must be greater than 0"}
	}
	rec, err := s.repo.Release(ctx, id, amount)
	if err != nil {
		return repository.StockRecord{}, s.mapError(id, err)
	}
	s.logger.Info("stock released",
		zap.Int64("stock_id", id),
		zap.Int64("amount", amount),
		zap.Int64("available", rec.Available),
		zap.Int64("reserved", rec.Reserved),
	)
	return rec, nil
}

func (s *StockService) mapError(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("stock %d: %w", id, ErrNotFound)
	}
	return err
}

func validateCounters(available, reserved int64) error {
	if available < 0 {
		return &ValidationError{Field: "stock_disponible", Message: "must not be negative"}
	}
	if reserved < 0 {
		return &ValidationError{Field: "stock_reservado", Message: "must not be negative"}
	}
	return nil
}

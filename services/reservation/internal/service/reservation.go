package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/saga"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxStateNameLen = 100
)

// ReservationService оркестратор одиночного резерва (saga create/update/delete) и чтения
type ReservationService struct {
	inventory    InventoryClient
	reservations repository.ReservationRepository
	states       repository.StateRepository
	policy       Policy
	clock        Clock
	logger       *zap.Logger
	metrics      *metrics
}

// Option настраивает оркестраторы (используется в тестах)
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock подменяет источник времени
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func applyOptions(opts []Option) options {
	o := options{clock: SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewReservationService создаёт новый экземпляр ReservationService
func NewReservationService(
	inventory InventoryClient,
	reservations repository.ReservationRepository,
	states repository.StateRepository,
	policy Policy,
	logger *zap.Logger,
	opts ...Option,
) *ReservationService {
	o := applyOptions(opts)
	return &ReservationService{
		inventory:    inventory,
		reservations: reservations,
		states:       states,
		policy:       policy,
		clock:        o.clock,
		logger:       logger,
		metrics:      newMetrics(),
	}
}

// CreateInput входные данные для создания резерва
type CreateInput struct {
	StockRef   int64
	OrderRef   int64
	Quantity   int64
	StateID    int64
	ReservedAt *time.Time
	ExpiresAt  *time.Time
}

func (in CreateInput) validate() error {
	if in.StockRef <= 0 {
		return validation("stock_ref", "is required")
	}
	if in.OrderRef <= 0 {
		return validation("order_ref", "is required")
	}
	if in.Quantity <= 0 {
		return validation("quantity", "must be greater than 0")
	}
	if in.StateID <= 0 {
		return validation("state_id", "is required")
	}
	return nil
}

// Create резервирует сток и сохраняет строку.
// Валидация, окно и состояние проверяются до любого вызова Inventory.
// Если сохранение не удалось, резерв на складе компенсируется.
func (s *ReservationService) Create(ctx context.Context, in CreateInput) (repository.Reservation, error) {
	if err := in.validate(); err != nil {
		return repository.Reservation{}, err
	}

	reservedAt, expiresAt, err := reservationWindow(s.clock.Now(), in.ReservedAt, in.ExpiresAt, s.policy.MaxWindow)
	if err != nil {
		return repository.Reservation{}, err
	}

	if _, err := loadInitialState(ctx, s.states, in.StateID); err != nil {
		return repository.Reservation{}, err
	}

	log := s.logger.With(
		zap.Int64("stock_ref", in.StockRef),
		zap.Int64("order_ref", in.OrderRef),
		zap.Int64("amount", in.Quantity),
	)

	c := compensator{inventory: s.inventory, reservations: s.reservations}
	ledger := saga.NewLedger(log).WithTimeout(s.policy.CompensationTimeout)

	if err := ledger.Reserve(ctx, c, in.StockRef, in.Quantity); err != nil {
		log.Warn("reserve failed", zap.Error(err))
		return repository.Reservation{}, remoteError("reserve stock", err)
	}

	created, err := s.reservations.Create(ctx, repository.Reservation{
		StockRef:   in.StockRef,
		OrderRef:   in.OrderRef,
		Quantity:   in.Quantity,
		StateID:    in.StateID,
		ReservedAt: reservedAt,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		rollback(ctx, ledger, c, s.metrics, log, err)
		return repository.Reservation{}, persistError("create reservation", err, in.StateID)
	}

	s.metrics.created(ctx, "single", 1)
	log.Info("reservation created", zap.Int64("reservation_id", created.ID))
	return created, nil
}

// UpdateInput частичное обновление, nil поле не меняется
type UpdateInput struct {
	StockRef   *int64
	OrderRef   *int64
	Quantity   *int64
	StateID    *int64
	ReservedAt *time.Time
	ExpiresAt  *time.Time
}

// Update изменяет резерв.
// Смена складской записи: reserve(new) затем release(old), чтобы при сбое количество не оказалось нигде не зарезервировано.
// Смена количества: reserve/release разницы. При любом сбое после первого побочного эффекта журнал откатывается.
func (s *ReservationService) Update(ctx context.Context, id int64, in UpdateInput) (repository.Reservation, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return repository.Reservation{}, err
	}

	if isTerminal(current.StateName) {
		return repository.Reservation{}, &TerminalStateError{State: current.StateName}
	}

	target := current
	if in.StockRef != nil {
		if *in.StockRef <= 0 {
			return repository.Reservation{}, validation("stock_ref", "must be a positive id")
		}
		target.StockRef = *in.StockRef
	}
	if in.OrderRef != nil {
		if *in.OrderRef <= 0 {
			return repository.Reservation{}, validation("order_ref", "must be a positive id")
		}
		target.OrderRef = *in.OrderRef
	}
	if in.Quantity != nil {
		target.Quantity = *in.Quantity
	}
	if target.Quantity <= 0 {
		return repository.Reservation{}, validation("quantity", "must be greater than 0")
	}

	reservedAt := current.ReservedAt
	if in.ReservedAt != nil {
		reservedAt = *in.ReservedAt
	}
	expiresAt := current.ExpiresAt
	if in.ExpiresAt != nil {
		expiresAt = *in.ExpiresAt
	}
	target.ReservedAt, target.ExpiresAt, err = reservationWindow(s.clock.Now(), &reservedAt, &expiresAt, s.policy.MaxWindow)
	if err != nil {
		return repository.Reservation{}, err
	}

	if in.StateID != nil && *in.StateID != current.StateID {
		next, err := loadState(ctx, s.states, *in.StateID)
		if err != nil {
			return repository.Reservation{}, err
		}
		if !canTransitionByUpdate(current.StateName, next.Name) {
			return repository.Reservation{}, &TransitionError{From: current.StateName, To: next.Name}
		}
		target.StateID = next.ID
		target.StateName = next.Name
	}

	log := s.logger.With(zap.Int64("reservation_id", id), zap.Int64("stock_ref", target.StockRef))
	c := compensator{inventory: s.inventory, reservations: s.reservations}
	ledger := saga.NewLedger(log).WithTimeout(s.policy.CompensationTimeout)

	switch {
	case target.StockRef != current.StockRef:
		if err := ledger.Reserve(ctx, c, target.StockRef, target.Quantity); err != nil {
			return repository.Reservation{}, remoteError("reserve new stock", err)
		}
		if err := ledger.Release(ctx, c, current.StockRef, current.Quantity); err != nil {
			rollback(ctx, ledger, c, s.metrics, log, err)
			return repository.Reservation{}, remoteError("release previous stock", err)
		}
	case target.Quantity > current.Quantity:
		if err := ledger.Reserve(ctx, c, target.StockRef, target.Quantity-current.Quantity); err != nil {
			return repository.Reservation{}, remoteError("reserve quantity delta", err)
		}
	case target.Quantity < current.Quantity:
		if err := ledger.Release(ctx, c, target.StockRef, current.Quantity-target.Quantity); err != nil {
			return repository.Reservation{}, remoteError("release quantity delta", err)
		}
	}

	updated, err := s.reservations.Update(ctx, target)
	if err != nil {
		rollback(ctx, ledger, c, s.metrics, log, err)
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Reservation{}, &NotFoundError{Entity: "reservation", ID: id}
		}
		return repository.Reservation{}, persistError("update reservation", err, target.StateID)
	}

	log.Info("reservation updated",
		zap.Int64("previous_stock_ref", current.StockRef),
		zap.Int64("previous_quantity", current.Quantity),
		zap.Int64("quantity", updated.Quantity),
		zap.Int("inventory_steps", len(ledger.Steps())),
	)
	return updated, nil
}

// Delete удаляет строку и затем освобождает сток.
// Ошибка release не фатальна: строки уже нет, событие логируется.
// EXPIRED резерв уже освобождён sweeper, повторный release не выполняется.
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.reservations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Entity: "reservation", ID: id}
		}
		return unexpected("delete reservation", err)
	}

	log := s.logger.With(
		zap.Int64("reservation_id", id),
		zap.Int64("stock_ref", current.StockRef),
		zap.Int64("amount", current.Quantity),
	)

	if current.Quantity > 0 && current.StateName != repository.StateExpired {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.policy.CompensationTimeout)
		defer cancel()
		if err := s.inventory.Release(releaseCtx, current.StockRef, current.Quantity); err != nil {
			log.Error("release after delete failed", zap.Error(err))
			return nil
		}
	}

	log.Info("reservation deleted")
	return nil
}

// GetByID возвращает резерв, *NotFoundError если его нет
func (s *ReservationService) GetByID(ctx context.Context, id int64) (repository.Reservation, error) {
	return s.get(ctx, id)
}

func (s *ReservationService) get(ctx context.Context, id int64) (repository.Reservation, error) {
	if id <= 0 {
		return repository.Reservation{}, validation("id", "must be a positive id")
	}
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Reservation{}, &NotFoundError{Entity: "reservation", ID: id}
		}
		return repository.Reservation{}, unexpected("get reservation", err)
	}
	return r, nil
}

// ListOutput страница резервов с метаданными пагинации
type ListOutput struct {
	Items      []repository.Reservation
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// List возвращает резервы по фильтру, по умолчанию страница 1 по 10 записей
func (s *ReservationService) List(ctx context.Context, filter repository.ReservationFilter, page repository.Page) (ListOutput, error) {
	if page.Number <= 0 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}

	res, err := s.reservations.List(ctx, filter, page)
	if err != nil {
		return ListOutput{}, unexpected("list reservations", err)
	}

	totalPages := int((res.Total + int64(page.Size) - 1) / int64(page.Size))
	return ListOutput{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page.Number,
		PerPage:    page.Size,
		TotalPages: totalPages,
	}, nil
}

// ListExpired активные резервы с истёкшим сроком, ещё не обработанные sweeper
func (s *ReservationService) ListExpired(ctx context.Context) ([]repository.Reservation, error) {
	ids, err := resolveStates(ctx, s.states, activeStates...)
	if err != nil {
		return nil, err
	}
	active := make([]int64, 0, len(ids))
	for _, name := range activeStates {
		active = append(active, ids[name])
	}

	items, err := s.reservations.ListExpired(ctx, s.clock.Now(), active)
	if err != nil {
		return nil, unexpected("list expired reservations", err)
	}
	return items, nil
}

// ConfirmOrder переводит PENDING резервы заказа в CONFIRMED (оплата прошла).
// Резервы в других состояниях пропускаются, повторный вызов ничего не меняет.
func (s *ReservationService) ConfirmOrder(ctx context.Context, orderRef int64) (int, error) {
	return s.advanceOrder(ctx, orderRef, repository.StatePending, repository.StateConfirmed)
}

// CompleteOrder переводит CONFIRMED резервы заказа в COMPLETED (сборка завершена)
func (s *ReservationService) CompleteOrder(ctx context.Context, orderRef int64) (int, error) {
	return s.advanceOrder(ctx, orderRef, repository.StateConfirmed, repository.StateCompleted)
}

func (s *ReservationService) advanceOrder(ctx context.Context, orderRef int64, from, to string) (int, error) {
	if orderRef <= 0 {
		return 0, validation("order_ref", "must be a positive id")
	}

	ids, err := resolveStates(ctx, s.states, to)
	if err != nil {
		return 0, err
	}

	items, err := s.reservations.ListByOrder(ctx, orderRef)
	if err != nil {
		return 0, unexpected("list order reservations", err)
	}

	changed := 0
	for _, r := range items {
		if r.StateName != from {
			continue
		}
		if err := s.reservations.UpdateState(ctx, r.ID, ids[to]); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return changed, unexpected(fmt.Sprintf("move reservation %d to %s", r.ID, to), err)
		}
		changed++
	}

	s.logger.Info("order reservations advanced",
		zap.Int64("order_ref", orderRef),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("changed", changed),
	)
	return changed, nil
}

// ListStates справочник состояний
func (s *ReservationService) ListStates(ctx context.Context) ([]repository.State, error) {
	states, err := s.states.List(ctx)
	if err != nil {
		return nil, unexpected("list states", err)
	}
	return states, nil
}

// GetState состояние по ID
func (s *ReservationService) GetState(ctx context.Context, id int64) (repository.State, error) {
	st, err := s.states.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			return repository.State{}, &NotFoundError{Entity: "state", ID: id}
		}
		return repository.State{}, unexpected("get state", err)
	}
	return st, nil
}

// CreateState добавляет состояние; имя обрезается и приводится к верхнему регистру
func (s *ReservationService) CreateState(ctx context.Context, name, description string) (repository.State, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return repository.State{}, validation("name", "is required")
	}
	if len(name) > maxStateNameLen {
		return repository.State{}, validation("name", "must be at most %d characters", maxStateNameLen)
	}

	st, err := s.states.Create(ctx, name, strings.TrimSpace(description))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return repository.State{}, &ConflictError{Message: fmt.Sprintf("state %s already exists", name)}
		}
		return repository.State{}, unexpected("create state", err)
	}
	return st, nil
}

// remoteError оставляет классифицированные ошибки клиентов как есть
func remoteError(op string, err error) error {
	switch {
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNetwork),
		errors.Is(err, ErrValidation):
		return err
	default:
		return unexpected(op, err)
	}
}

func persistError(op string, err error, stateID int64) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return &ReferenceError{Entity: "state", ID: stateID}
	}
	return unexpected(op, err)
}

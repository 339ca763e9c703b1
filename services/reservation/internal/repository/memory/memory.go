package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

// seedStates состояния, которые в postgres создаёт миграция
var seedStates = []repository.State{
	{ID: 1, Name: repository.StatePending, Description: "Reservation created, awaiting payment"},
	{ID: 2, Name: repository.StateConfirmed, Description: "Order paid"},
	{ID: 3, Name: repository.StateCompleted, Description: "Order assembled and handed over"},
	{ID: 4, Name: repository.StateCancelled, Description: "Reservation cancelled"},
	{ID: 5, Name: repository.StateExpired, Description: "Reservation expired and stock released"},
}

// Store in-memory хранилище резервов, справочника состояний и outbox.
// Используется для разработки и тестирования (RESERVATION_POSTGRES_DSN не задан).
type Store struct {
	mu           sync.RWMutex
	reservations map[int64]repository.Reservation
	states       map[int64]repository.State
	outbox       []outboxRow
	nextID       int64
	nextStateID  int64
	eventsTopic  string
}

type outboxRow struct {
	event repository.OutboxEvent
	sent  bool
	err   string
}

// NewStore создаёт хранилище с засеянным справочником состояний
func NewStore(eventsTopic string) *Store {
	s := &Store{
		reservations: make(map[int64]repository.Reservation),
		states:       make(map[int64]repository.State),
		eventsTopic:  eventsTopic,
	}
	for _, st := range seedStates {
		s.states[st.ID] = st
		if st.ID > s.nextStateID {
			s.nextStateID = st.ID
		}
	}
	return s
}

// Reservations возвращает репозиторий резервов поверх хранилища
func (s *Store) Reservations() *ReservationRepository {
	return &ReservationRepository{store: s}
}

// States возвращает репозиторий состояний поверх хранилища
func (s *Store) States() *StateRepository {
	return &StateRepository{store: s}
}

// ReservationRepository реализует repository.ReservationRepository
type ReservationRepository struct {
	store *Store
}

var _ repository.ReservationRepository = (*ReservationRepository)(nil)

// Create сохраняет резерв, присваивая ID
func (r *ReservationRepository) Create(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[res.StateID]
	if !ok {
		return repository.Reservation{}, repository.ErrInvalidReference
	}

	s.nextID++
	res.ID = s.nextID
	res.StateName = st.Name
	res.Fulfillment = cloneFulfillment(res.Fulfillment)
	s.reservations[res.ID] = res

	if err := s.appendEventLocked(repository.EventReservationCreated, res); err != nil {
		return repository.Reservation{}, err
	}
	return res, nil
}

// GetByID получает резерв по ID
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (repository.Reservation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.reservations[id]
	if !ok {
		return repository.Reservation{}, repository.ErrNotFound
	}
	return s.withStateLocked(res), nil
}

// Update перезаписывает изменяемые поля
func (r *ReservationRepository) Update(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reservations[res.ID]
	if !ok {
		return repository.Reservation{}, repository.ErrNotFound
	}
	if _, ok := s.states[res.StateID]; !ok {
		return repository.Reservation{}, repository.ErrInvalidReference
	}

	current.StockRef = res.StockRef
	current.OrderRef = res.OrderRef
	current.Quantity = res.Quantity
	current.StateID = res.StateID
	current.ReservedAt = res.ReservedAt
	current.ExpiresAt = res.ExpiresAt
	current = s.withStateLocked(current)
	s.reservations[res.ID] = current

	if err := s.appendEventLocked(repository.EventReservationUpdated, current); err != nil {
		return repository.Reservation{}, err
	}
	return current, nil
}

// Delete удаляет резерв
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.reservations, id)
	return s.appendEventLocked(repository.EventReservationDeleted, s.withStateLocked(res))
}

// List выборка по фильтру, сортировка reserved_at DESC
func (r *ReservationRepository) List(ctx context.Context, filter repository.ReservationFilter, page repository.Page) (repository.ReservationPage, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []repository.Reservation
	for _, res := range s.reservations {
		if filter.StockRef != nil && res.StockRef != *filter.StockRef {
			continue
		}
		if filter.OrderRef != nil && res.OrderRef != *filter.OrderRef {
			continue
		}
		if filter.StateID != nil && res.StateID != *filter.StateID {
			continue
		}
		matched = append(matched, s.withStateLocked(res))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ReservedAt.Equal(matched[j].ReservedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ReservedAt.After(matched[j].ReservedAt)
	})

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}

	return repository.ReservationPage{Items: matched[start:end], Total: total}, nil
}

// ListByOrder все резервы заказа в порядке ID
func (r *ReservationRepository) ListByOrder(ctx context.Context, orderRef int64) ([]repository.Reservation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.Reservation
	for _, res := range s.reservations {
		if res.OrderRef == orderRef {
			out = append(out, s.withStateLocked(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListExpired резервы с expires_at < now в одном из stateIDs, сортировка expires_at ASC
func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, stateIDs []int64) ([]repository.Reservation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make(map[int64]struct{}, len(stateIDs))
	for _, id := range stateIDs {
		active[id] = struct{}{}
	}

	var out []repository.Reservation
	for _, res := range s.reservations {
		if _, ok := active[res.StateID]; !ok {
			continue
		}
		if res.ExpiresAt.Before(now) {
			out = append(out, s.withStateLocked(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, nil
}

// UpdateState меняет только состояние
func (r *ReservationRepository) UpdateState(ctx context.Context, id, stateID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	st, ok := s.states[stateID]
	if !ok {
		return repository.ErrInvalidReference
	}
	res.StateID = st.ID
	res.StateName = st.Name
	s.reservations[id] = res

	return s.appendEventLocked(repository.StateEventType(st.Name), res)
}

// StateRepository реализует repository.StateRepository
type StateRepository struct {
	store *Store
}

var _ repository.StateRepository = (*StateRepository)(nil)

// List справочник в порядке ID
func (r *StateRepository) List(ctx context.Context) ([]repository.State, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByID состояние по ID
func (r *StateRepository) GetByID(ctx context.Context, id int64) (repository.State, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return repository.State{}, repository.ErrStateNotFound
	}
	return st, nil
}

// GetByNames найденные состояния по именам
func (r *StateRepository) GetByNames(ctx context.Context, names []string) (map[string]repository.State, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make(map[string]repository.State, len(names))
	for _, st := range s.states {
		if _, ok := want[st.Name]; ok {
			out[st.Name] = st
		}
	}
	return out, nil
}

// Create добавляет состояние
func (r *StateRepository) Create(ctx context.Context, name, description string) (repository.State, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.states {
		if st.Name == name {
			return repository.State{}, repository.ErrAlreadyExists
		}
	}
	s.nextStateID++
	st := repository.State{ID: s.nextStateID, Name: name, Description: description}
	s.states[st.ID] = st
	return st, nil
}

// RemoveState удаляет состояние из справочника (для проверки ошибок конфигурации)
func (r *StateRepository) RemoveState(name string) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range s.states {
		if st.Name == name {
			delete(s.states, id)
		}
	}
}

// GetPendingOutboxEvents события в порядке записи
func (s *Store) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repository.OutboxEvent
	for _, row := range s.outbox {
		if row.sent {
			continue
		}
		out = append(out, row.event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkOutboxEventSent помечает событие отправленным
func (s *Store) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].event.EventID == eventID {
			s.outbox[i].sent = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// MarkOutboxEventFailed сохраняет ошибку и увеличивает счётчик попыток
func (s *Store) MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].event.EventID == eventID {
			s.outbox[i].err = errMsg
			s.outbox[i].event.Attempts++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) appendEventLocked(eventType string, res repository.Reservation) error {
	ev, err := repository.NewReservationEvent(eventType, s.eventsTopic, res, time.Now())
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, outboxRow{event: ev})
	return nil
}

func (s *Store) withStateLocked(res repository.Reservation) repository.Reservation {
	if st, ok := s.states[res.StateID]; ok {
		res.StateName = st.Name
	}
	res.Fulfillment = cloneFulfillment(res.Fulfillment)
	return res
}

func cloneFulfillment(f *repository.Fulfillment) *repository.Fulfillment {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

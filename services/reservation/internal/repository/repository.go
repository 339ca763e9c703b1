package repository

import (
	"context"
	"errors"
	"time"
)

// Имена состояний резерва в таблице reservation_states
const (
	StatePending   = "PENDING"
	StateConfirmed = "CONFIRMED"
	StateCompleted = "COMPLETED"
	StateCancelled = "CANCELLED"
	StateExpired   = "EXPIRED"
)

// FulfillmentMode способ получения заказа
type FulfillmentMode string

const (
	ModeStorePickup  FulfillmentMode = "STORE_PICKUP"
	ModeHomeDelivery FulfillmentMode = "HOME_DELIVERY"
)

// Fulfillment метаданные доставки, заполняются только для резервов из заказа
type Fulfillment struct {
	Mode       FulfillmentMode
	StoreRef   *int64
	CarrierRef *int64
	Address    *string
	Latitude   *float64
	Longitude  *float64
}

// Reservation удержание количества на складской записи под заказ
type Reservation struct {
	ID       int64
	StockRef int64
	OrderRef int64
	Quantity int64
	StateID  int64
	// StateName заполняется при чтении (join с reservation_states)
	StateName   string
	ReservedAt  time.Time
	ExpiresAt   time.Time
	Fulfillment *Fulfillment
}

// State запись справочника состояний
type State struct {
	ID          int64
	Name        string
	Description string
}

// ReservationFilter фильтр для List, nil поле не участвует в выборке
type ReservationFilter struct {
	StockRef *int64
	OrderRef *int64
	StateID  *int64
}

// Page параметры пагинации, Number начинается с 1
type Page struct {
	Number int
	Size   int
}

// Offset смещение для SQL OFFSET
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ReservationPage страница резервов и общее число строк под фильтром
type ReservationPage struct {
	Items []Reservation
	Total int64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ReservationRepository --dir=. --output=./mocks --outpkg=mocks

// ReservationRepository хранилище резервов.
// Каждая мутация атомарно пишет событие в outbox вместе с изменением строки.
type ReservationRepository interface {
	// Create сохраняет резерв и возвращает его с присвоенным ID.
	// ErrInvalidReference, если StateID не существует.
	Create(ctx context.Context, r Reservation) (Reservation, error)

	// GetByID возвращает ErrNotFound, если резерва нет
	GetByID(ctx context.Context, id int64) (Reservation, error)

	// Update перезаписывает изменяемые поля (last-writer-wins, без версии)
	Update(ctx context.Context, r Reservation) (Reservation, error)

	// Delete удаляет строку, ErrNotFound если её уже нет
	Delete(ctx context.Context, id int64) error

	// List выборка по фильтру, сортировка reserved_at DESC
	List(ctx context.Context, filter ReservationFilter, page Page) (ReservationPage, error)

	// ListByOrder все резервы заказа в порядке ID
	ListByOrder(ctx context.Context, orderRef int64) ([]Reservation, error)

	// ListExpired резервы с expires_at < now и state_id из stateIDs, сортировка expires_at ASC
	ListExpired(ctx context.Context, now time.Time, stateIDs []int64) ([]Reservation, error)

	// UpdateState меняет только состояние
	UpdateState(ctx context.Context, id, stateID int64) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=StateRepository --dir=. --output=./mocks --outpkg=mocks

// StateRepository справочник состояний резерва
type StateRepository interface {
	List(ctx context.Context) ([]State, error)
	// GetByID возвращает ErrStateNotFound, если состояния нет
	GetByID(ctx context.Context, id int64) (State, error)
	// GetByNames возвращает только найденные состояния, ключ - имя
	GetByNames(ctx context.Context, names []string) (map[string]State, error)
	// Create возвращает ErrAlreadyExists при дубликате имени
	Create(ctx context.Context, name, description string) (State, error)
}

// OutboxEvent событие, ожидающее публикации в Kafka
type OutboxEvent struct {
	EventID     string
	EventType   string
	Topic       string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
	Attempts    int
}

// OutboxRepository читает и помечает события outbox для dispatcher
type OutboxRepository interface {
	GetPendingOutboxEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkOutboxEventSent(ctx context.Context, eventID string) error
	// MarkOutboxEventFailed сохраняет ошибку, событие остаётся pending до следующего цикла
	MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error
}

var (
	// ErrNotFound резерв не найден
	ErrNotFound = errors.New("reservation not found")
	// ErrStateNotFound состояние не найдено
	ErrStateNotFound = errors.New("reservation state not found")
	// ErrInvalidReference нарушение внешнего ключа (несуществующий state_id)
	ErrInvalidReference = errors.New("invalid reference")
	// ErrAlreadyExists нарушение уникальности
	ErrAlreadyExists = errors.New("already exists")
)

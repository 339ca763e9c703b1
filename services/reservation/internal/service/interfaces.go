package service

import (
	"context"
	"time"
)

// Stock складская запись на стороне Inventory
type Stock struct {
	Ref         int64
	ProductRef  int64
	LocationRef int64
	Available   int64
	Reserved    int64
}

// StockFilter фильтр выборки складских записей, nil поле не участвует
type StockFilter struct {
	ProductRef  *int64
	LocationRef *int64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=InventoryClient --dir=. --output=./mocks --outpkg=mocks

// InventoryClient определяет интерфейс для работы с Inventory сервисом.
// Ошибки: *ReferenceError (неизвестная запись), *InsufficientStockError, *NetworkError.
type InventoryClient interface {
	GetStock(ctx context.Context, ref int64) (Stock, error)
	// Reserve переносит amount из available в reserved
	Reserve(ctx context.Context, ref, amount int64) error
	// Release переносит amount обратно, reserved не опускается ниже нуля
	Release(ctx context.Context, ref, amount int64) error
	ListStock(ctx context.Context, filter StockFilter) ([]Stock, error)
}

// StoreValidation результат проверки магазина
type StoreValidation struct {
	Exists  bool
	Active  bool
	IsStore bool
	Name    string
	Status  string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=StoreClient --dir=. --output=./mocks --outpkg=mocks

// StoreClient проверяет точку самовывоза.
// Отсутствие магазина не ошибка: Exists=false.
type StoreClient interface {
	ValidateStore(ctx context.Context, storeRef int64) (StoreValidation, error)
}

// CarrierValidation результат проверки перевозчика
type CarrierValidation struct {
	Exists bool
	Active bool
	Name   string
	Code   string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ShippingClient --dir=. --output=./mocks --outpkg=mocks

// ShippingClient проверяет перевозчика для доставки на дом
type ShippingClient interface {
	ValidateCarrier(ctx context.Context, carrierRef int64) (CarrierValidation, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProcessedEventsStore --dir=. --output=./mocks --outpkg=mocks

// ProcessedEventsStore хранит обработанные event_id входящих событий заказа
type ProcessedEventsStore interface {
	// MarkProcessed сохраняет eventID как обработанный на ttl
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) error
	// IsProcessed возвращает true, если eventID уже обработан и ttl не истёк
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// SystemClock реализует Clock через time.Now
type SystemClock struct{}

// Now возвращает текущее время в UTC
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Policy неизменяемые параметры оркестраторов, собираются из config один раз при старте
type Policy struct {
	// MaxWindow максимальная длительность резерва, она же длительность по умолчанию
	MaxWindow time.Duration
	// CompensationTimeout таймаут каждого компенсирующего вызова
	CompensationTimeout time.Duration
}

// DefaultPolicy значения по умолчанию
func DefaultPolicy() Policy {
	return Policy{
		MaxWindow:           24 * time.Hour,
		CompensationTimeout: 10 * time.Second,
	}
}

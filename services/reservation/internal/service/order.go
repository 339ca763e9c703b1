package service

import (
	"context"
	"strings"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/saga"
	"go.uber.org/zap"
)

// OrderReservationService резервирует все позиции заказа по принципу всё или ничего
type OrderReservationService struct {
	inventory    InventoryClient
	stores       StoreClient
	shipping     ShippingClient
	reservations repository.ReservationRepository
	states       repository.StateRepository
	policy       Policy
	clock        Clock
	logger       *zap.Logger
	metrics      *metrics
}

// NewOrderReservationService создаёт новый экземпляр OrderReservationService
func NewOrderReservationService(
	inventory InventoryClient,
	stores StoreClient,
	shipping ShippingClient,
	reservations repository.ReservationRepository,
	states repository.StateRepository,
	policy Policy,
	logger *zap.Logger,
	opts ...Option,
) *OrderReservationService {
	o := applyOptions(opts)
	return &OrderReservationService{
		inventory:    inventory,
		stores:       stores,
		shipping:     shipping,
		reservations: reservations,
		states:       states,
		policy:       policy,
		clock:        o.clock,
		logger:       logger,
		metrics:      newMetrics(),
	}
}

// OrderItemInput позиция заказа: явная складская запись или продукт с опциональной предпочтительной локацией
type OrderItemInput struct {
	StockRef             *int64
	ProductRef           *int64
	PreferredLocationRef *int64
	Quantity             int64
}

// OrderInput запрос на резерв заказа
type OrderInput struct {
	OrderRef   int64
	Items      []OrderItemInput
	Mode       repository.FulfillmentMode
	StoreRef   *int64
	CarrierRef *int64
	Address    *string
	Latitude   *float64
	Longitude  *float64
	ExpiresAt  *time.Time
	// StateID по умолчанию PENDING
	StateID *int64
}

// OrderOutput результат успешного резерва заказа
type OrderOutput struct {
	OrderRef     int64
	Mode         repository.FulfillmentMode
	StoreRef     *int64
	CarrierRef   *int64
	TotalItems   int
	ReservedAt   time.Time
	ExpiresAt    time.Time
	Reservations []repository.Reservation
}

// resolvedItem позиция с выбранной складской записью
type resolvedItem struct {
	index      int
	stockRef   int64
	productRef int64
	quantity   int64
}

// CreateFromOrder проходит конвейер: форма -> начальное состояние -> доставка -> выбор складских записей -> предварительная проверка
// -> общее окно -> reserve+persist по позициям. Сбой на любой позиции откатывает все уже выполненные в обратном порядке.
func (s *OrderReservationService) CreateFromOrder(ctx context.Context, in OrderInput) (OrderOutput, error) {
	if err := validateOrderShape(in); err != nil {
		return OrderOutput{}, err
	}

	stateID, err := s.resolveInitialState(ctx, in.StateID)
	if err != nil {
		return OrderOutput{}, err
	}

	fulfillment, err := s.validateFulfillment(ctx, in)
	if err != nil {
		return OrderOutput{}, err
	}

	items, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return OrderOutput{}, err
	}

	if err := s.precheck(ctx, items); err != nil {
		return OrderOutput{}, err
	}

	reservedAt, expiresAt, err := reservationWindow(s.clock.Now(), nil, in.ExpiresAt, s.policy.MaxWindow)
	if err != nil {
		return OrderOutput{}, err
	}

	log := s.logger.With(zap.Int64("order_ref", in.OrderRef), zap.String("mode", string(in.Mode)))
	c := compensator{inventory: s.inventory, reservations: s.reservations}
	ledger := saga.NewLedger(log).WithTimeout(s.policy.CompensationTimeout)

	created := make([]repository.Reservation, 0, len(items))
	for _, item := range items {
		itemLog := log.With(zap.Int("item", item.index), zap.Int64("stock_ref", item.stockRef), zap.Int64("amount", item.quantity))

		if err := ledger.Reserve(ctx, c, item.stockRef, item.quantity); err != nil {
			itemLog.Warn("order item reserve failed", zap.Error(err))
			rollback(ctx, ledger, c, s.metrics, log, err)
			return OrderOutput{}, &OrderReservationError{
				OrderRef: in.OrderRef,
				Items:    []ItemError{{Index: item.index, StockRef: item.stockRef, Err: remoteError("reserve stock", err)}},
			}
		}

		row, err := s.reservations.Create(ctx, repository.Reservation{
			StockRef:    item.stockRef,
			OrderRef:    in.OrderRef,
			Quantity:    item.quantity,
			StateID:     stateID,
			ReservedAt:  reservedAt,
			ExpiresAt:   expiresAt,
			Fulfillment: fulfillment,
		})
		if err != nil {
			itemLog.Warn("order item persist failed", zap.Error(err))
			rollback(ctx, ledger, c, s.metrics, log, err)
			return OrderOutput{}, &OrderReservationError{
				OrderRef: in.OrderRef,
				Items:    []ItemError{{Index: item.index, StockRef: item.stockRef, Err: persistError("create reservation", err, stateID)}},
			}
		}
		ledger.Record(saga.OpPersist, row.ID, 0)
		created = append(created, row)
	}

	s.metrics.created(ctx, "order", len(created))
	log.Info("order reserved", zap.Int("items", len(created)))

	return OrderOutput{
		OrderRef:     in.OrderRef,
		Mode:         in.Mode,
		StoreRef:     in.StoreRef,
		CarrierRef:   in.CarrierRef,
		TotalItems:   len(created),
		ReservedAt:   reservedAt,
		ExpiresAt:    expiresAt,
		Reservations: created,
	}, nil
}

func validateOrderShape(in OrderInput) error {
	if in.OrderRef <= 0 {
		return validation("order_ref", "is required")
	}
	if len(in.Items) == 0 {
		return validation("items", "order must contain at least one item")
	}
	switch in.Mode {
	case repository.ModeStorePickup, repository.ModeHomeDelivery:
	default:
		return validation("mode", "must be %s or %s", repository.ModeStorePickup, repository.ModeHomeDelivery)
	}
	for i, item := range in.Items {
		if item.StockRef == nil && item.ProductRef == nil {
			return validation("items", "item %d: stock_ref or product_ref is required", i)
		}
		if item.StockRef != nil && *item.StockRef <= 0 {
			return validation("items", "item %d: stock_ref must be a positive id", i)
		}
		if item.ProductRef != nil && *item.ProductRef <= 0 {
			return validation("items", "item %d: product_ref must be a positive id", i)
		}
		if item.Quantity <= 0 {
			return validation("items", "item %d: quantity must be greater than 0", i)
		}
	}
	return nil
}

// validateFulfillment проверяет магазин или перевозчика и возвращает метаданные доставки для строк
func (s *OrderReservationService) validateFulfillment(ctx context.Context, in OrderInput) (*repository.Fulfillment, error) {
	f := &repository.Fulfillment{Mode: in.Mode}

	switch in.Mode {
	case repository.ModeStorePickup:
		if in.StoreRef == nil || *in.StoreRef <= 0 {
			return nil, validation("store_ref", "is required for %s", repository.ModeStorePickup)
		}
		store, err := s.stores.ValidateStore(ctx, *in.StoreRef)
		if err != nil {
			return nil, remoteError("validate store", err)
		}
		if !store.Exists {
			return nil, &NotFoundError{Entity: "store", ID: *in.StoreRef}
		}
		if !store.IsStore {
			return nil, validation("store_ref", "location %d is not a store", *in.StoreRef)
		}
		if !store.Active {
			return nil, validation("store_ref", "store %d is not active (status %s)", *in.StoreRef, store.Status)
		}
		f.StoreRef = in.StoreRef

	case repository.ModeHomeDelivery:
		if in.CarrierRef == nil || *in.CarrierRef <= 0 {
			return nil, validation("carrier_ref", "is required for %s", repository.ModeHomeDelivery)
		}
		if in.Address == nil || strings.TrimSpace(*in.Address) == "" {
			return nil, validation("address", "is required for %s", repository.ModeHomeDelivery)
		}
		if in.Latitude == nil || in.Longitude == nil {
			return nil, validation("coordinates", "latitude and longitude are required for %s", repository.ModeHomeDelivery)
		}
		if *in.Latitude < -90 || *in.Latitude > 90 {
			return nil, validation("latitude", "must be between -90 and 90")
		}
		if *in.Longitude < -180 || *in.Longitude > 180 {
			return nil, validation("longitude", "must be between -180 and 180")
		}
		carrier, err := s.shipping.ValidateCarrier(ctx, *in.CarrierRef)
		if err != nil {
			return nil, remoteError("validate carrier", err)
		}
		if !carrier.Exists {
			return nil, &NotFoundError{Entity: "carrier", ID: *in.CarrierRef}
		}
		if !carrier.Active {
			return nil, validation("carrier_ref", "carrier %d is not active", *in.CarrierRef)
		}
		address := strings.TrimSpace(*in.Address)
		f.CarrierRef = in.CarrierRef
		f.Address = &address
		f.Latitude = in.Latitude
		f.Longitude = in.Longitude
	}

	return f, nil
}

// resolveItems выбирает складскую запись для позиций, заданных продуктом
func (s *OrderReservationService) resolveItems(ctx context.Context, items []OrderItemInput) ([]resolvedItem, error) {
	out := make([]resolvedItem, 0, len(items))
	// claimed количество, уже отданное предыдущим позициям заказа, по складской записи
	claimed := make(map[int64]int64, len(items))
	for i, item := range items {
		if item.StockRef != nil {
			r := resolvedItem{index: i, stockRef: *item.StockRef, quantity: item.Quantity}
			if item.ProductRef != nil {
				r.productRef = *item.ProductRef
			}
			claimed[r.stockRef] += r.quantity
			out = append(out, r)
			continue
		}

		productRef := *item.ProductRef
		records, err := s.inventory.ListStock(ctx, StockFilter{ProductRef: &productRef})
		if err != nil {
			return nil, remoteError("list stock", err)
		}
		if len(records) == 0 {
			return nil, &ReferenceError{Entity: "product stock", ID: productRef}
		}

		for j := range records {
			records[j].Available = max(records[j].Available-claimed[records[j].Ref], 0)
		}
		stock, err := pickStock(records, productRef, item.Quantity, item.PreferredLocationRef)
		if err != nil {
			return nil, err
		}
		claimed[stock.Ref] += item.Quantity
		s.logger.Debug("order item resolved",
			zap.Int("item", i),
			zap.Int64("product_ref", productRef),
			zap.Int64("stock_ref", stock.Ref),
			zap.Int64("location_ref", stock.LocationRef),
		)
		out = append(out, resolvedItem{index: i, stockRef: stock.Ref, productRef: productRef, quantity: item.Quantity})
	}
	return out, nil
}

// pickStock: предпочтительная локация, если её одной хватает; иначе запись с наибольшим available
// (при равенстве первая по порядку); иначе InsufficientStock с суммой по продукту.
// records приходят с available за вычетом того, что уже взяли предыдущие позиции заказа.
func pickStock(records []Stock, productRef, quantity int64, preferredLocation *int64) (Stock, error) {
	if preferredLocation != nil {
		for _, r := range records {
			if r.LocationRef == *preferredLocation && r.Available >= quantity {
				return r, nil
			}
		}
	}

	best := -1
	var total int64
	for i, r := range records {
		total += r.Available
		if r.Available < quantity {
			continue
		}
		if best < 0 || r.Available > records[best].Available {
			best = i
		}
	}
	if best < 0 {
		return Stock{}, &InsufficientStockError{ProductRef: productRef, Available: total, Requested: quantity}
	}
	return records[best], nil
}

// precheck проверяет доступность всех позиций до первого побочного эффекта.
// Позиции на одной складской записи суммируются.
func (s *OrderReservationService) precheck(ctx context.Context, items []resolvedItem) error {
	requested := make(map[int64]int64, len(items))
	order := make([]int64, 0, len(items))
	productOf := make(map[int64]int64, len(items))
	for _, item := range items {
		if _, seen := requested[item.stockRef]; !seen {
			order = append(order, item.stockRef)
		}
		requested[item.stockRef] += item.quantity
		if item.productRef != 0 {
			productOf[item.stockRef] = item.productRef
		}
	}

	var shortages []InsufficientStockError
	for _, ref := range order {
		stock, err := s.inventory.GetStock(ctx, ref)
		if err != nil {
			return remoteError("get stock", err)
		}
		if stock.Available < requested[ref] {
			productRef := stock.ProductRef
			if productRef == 0 {
				productRef = productOf[ref]
			}
			shortages = append(shortages, InsufficientStockError{
				StockRef:   ref,
				ProductRef: productRef,
				Available:  stock.Available,
				Requested:  requested[ref],
			})
		}
	}
	if len(shortages) > 0 {
		return &ShortageError{Items: shortages}
	}
	return nil
}

func (s *OrderReservationService) resolveInitialState(ctx context.Context, stateID *int64) (int64, error) {
	if stateID != nil {
		st, err := loadInitialState(ctx, s.states, *stateID)
		if err != nil {
			return 0, err
		}
		return st.ID, nil
	}
	ids, err := resolveStates(ctx, s.states, repository.StatePending)
	if err != nil {
		return 0, err
	}
	return ids[repository.StatePending], nil
}

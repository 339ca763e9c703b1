package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/repository/memory"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
	"github.com/shestoi/stockhold/services/reservation/internal/service/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type orderFixture struct {
	inventory    *fakeInventory
	stores       *mocks.StoreClient
	shipping     *mocks.ShippingClient
	store        *memory.Store
	reservations *flakyReservations
	svc          *service.OrderReservationService
}

func newOrderFixture(t *testing.T, stocks ...service.Stock) *orderFixture {
	inv := newFakeInventory(stocks...)
	store := memory.NewStore("reservation.events")
	reservations := &flakyReservations{ReservationRepository: store.Reservations()}
	stores := mocks.NewStoreClient(t)
	shipping := mocks.NewShippingClient(t)
	svc := service.NewOrderReservationService(inv, stores, shipping, reservations, store.States(),
		service.DefaultPolicy(), zap.NewNop(), service.WithClock(fixedClock{now: testNow}))
	return &orderFixture{inventory: inv, stores: stores, shipping: shipping, store: store, reservations: reservations, svc: svc}
}

func pickupOrder(items ...service.OrderItemInput) service.OrderInput {
	return service.OrderInput{
		OrderRef: 900,
		Items:    items,
		Mode:     repository.ModeStorePickup,
		StoreRef: ptr(int64(7)),
	}
}

func stockItem(ref, qty int64) service.OrderItemInput {
	return service.OrderItemInput{StockRef: ptr(ref), Quantity: qty}
}

func activeStore() service.StoreValidation {
	return service.StoreValidation{Exists: true, Active: true, IsStore: true, Name: "Tienda Centro", Status: "ACTIVO"}
}

func TestOrderReservationService_CreateFromOrder_Success(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, ProductRef: 100, Available: 10},
		service.Stock{Ref: 2, ProductRef: 200, Available: 10},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

	out, err := f.svc.CreateFromOrder(ctx, pickupOrder(stockItem(1, 2), stockItem(2, 3)))
	require.NoError(t, err)

	require.Equal(t, int64(900), out.OrderRef)
	require.Equal(t, 2, out.TotalItems)
	require.Equal(t, testNow.Add(24*time.Hour), out.ExpiresAt)
	for _, r := range out.Reservations {
		require.Equal(t, repository.StatePending, r.StateName)
		require.Equal(t, out.ExpiresAt, r.ExpiresAt)
		require.NotNil(t, r.Fulfillment)
		require.Equal(t, repository.ModeStorePickup, r.Fulfillment.Mode)
		require.Equal(t, int64(7), *r.Fulfillment.StoreRef)
	}
	require.Equal(t, service.Stock{Ref: 1, ProductRef: 100, Available: 8, Reserved: 2}, f.inventory.stock(1))
	require.Equal(t, service.Stock{Ref: 2, ProductRef: 200, Available: 7, Reserved: 3}, f.inventory.stock(2))
}

func TestOrderReservationService_CreateFromOrder_ThirdItemPersistFails(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, Available: 10},
		service.Stock{Ref: 2, Available: 10},
		service.Stock{Ref: 3, Available: 10},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)
	f.reservations.failCreateAt = 3

	_, err := f.svc.CreateFromOrder(ctx, pickupOrder(stockItem(1, 2), stockItem(2, 3), stockItem(3, 4)))
	require.Error(t, err)

	var orderErr *service.OrderReservationError
	require.ErrorAs(t, err, &orderErr)
	require.Len(t, orderErr.Items, 1)
	require.Equal(t, 2, orderErr.Items[0].Index)
	require.ErrorIs(t, err, errPersist)

	require.Equal(t, []inventoryCall{
		{op: "reserve", ref: 1, amount: 2},
		{op: "reserve", ref: 2, amount: 3},
		{op: "reserve", ref: 3, amount: 4},
		{op: "release", ref: 3, amount: 4},
		{op: "release", ref: 2, amount: 3},
		{op: "release", ref: 1, amount: 2},
	}, f.inventory.mutations())

	for ref := int64(1); ref <= 3; ref++ {
		require.Equal(t, service.Stock{Ref: ref, Available: 10}, f.inventory.stock(ref))
	}

	rows, err := f.store.Reservations().ListByOrder(ctx, 900)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestOrderReservationService_CreateFromOrder_ReserveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, Available: 10},
		service.Stock{Ref: 2, Available: 10},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)
	f.inventory.failReserve[2] = &service.NetworkError{Op: "reserve", Timeout: true, Err: context.DeadlineExceeded}

	_, err := f.svc.CreateFromOrder(ctx, pickupOrder(stockItem(1, 2), stockItem(2, 3)))
	require.ErrorIs(t, err, service.ErrNetwork)

	require.Equal(t, service.Stock{Ref: 1, Available: 10}, f.inventory.stock(1))
	rows, err := f.store.Reservations().ListByOrder(ctx, 900)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestOrderReservationService_CreateFromOrder_PrecheckShortage(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, ProductRef: 100, Available: 10},
		service.Stock{Ref: 2, ProductRef: 200, Available: 1},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

	_, err := f.svc.CreateFromOrder(ctx, pickupOrder(stockItem(1, 6), stockItem(2, 3), stockItem(1, 6)))
	require.ErrorIs(t, err, service.ErrInsufficientStock)

	var shortage *service.ShortageError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Items, 2)
	require.Equal(t, int64(12), shortage.Items[0].Requested)
	require.Equal(t, int64(200), shortage.Items[1].ProductRef)

	require.Empty(t, f.inventory.mutations())
}

func TestOrderReservationService_CreateFromOrder_ResolveByProduct(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		item          service.OrderItemInput
		expectedStock int64
		expectedErr   error
	}{
		{
			name:          "preferred location with enough stock wins",
			item:          service.OrderItemInput{ProductRef: ptr(int64(100)), PreferredLocationRef: ptr(int64(30)), Quantity: 4},
			expectedStock: 3,
		},
		{
			name:          "preferred location without enough stock falls back to largest",
			item:          service.OrderItemInput{ProductRef: ptr(int64(100)), PreferredLocationRef: ptr(int64(30)), Quantity: 6},
			expectedStock: 1,
		},
		{
			name:          "largest available, ties by declaration order",
			item:          service.OrderItemInput{ProductRef: ptr(int64(100)), Quantity: 2},
			expectedStock: 1,
		},
		{
			name:        "no single record suffices",
			item:        service.OrderItemInput{ProductRef: ptr(int64(100)), Quantity: 9},
			expectedErr: service.ErrInsufficientStock,
		},
		{
			name:        "product without stock records",
			item:        service.OrderItemInput{ProductRef: ptr(int64(555)), Quantity: 1},
			expectedErr: service.ErrUnknownReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t,
				service.Stock{Ref: 1, ProductRef: 100, LocationRef: 10, Available: 8},
				service.Stock{Ref: 2, ProductRef: 100, LocationRef: 20, Available: 8},
				service.Stock{Ref: 3, ProductRef: 100, LocationRef: 30, Available: 5},
			)
			f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

			out, err := f.svc.CreateFromOrder(ctx, pickupOrder(tt.item))
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Empty(t, f.inventory.mutations())
				return
			}
			require.NoError(t, err)
			require.Len(t, out.Reservations, 1)
			require.Equal(t, tt.expectedStock, out.Reservations[0].StockRef)
		})
	}
}

func TestOrderReservationService_CreateFromOrder_InsufficientAggregatesTotal(t *testing.T) {
	f := newOrderFixture(t,
		service.Stock{Ref: 1, ProductRef: 100, Available: 4},
		service.Stock{Ref: 2, ProductRef: 100, Available: 3},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

	_, err := f.svc.CreateFromOrder(context.Background(), pickupOrder(service.OrderItemInput{ProductRef: ptr(int64(100)), Quantity: 5}))

	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(7), insufficient.Available)
	require.Equal(t, int64(5), insufficient.Requested)
	require.Equal(t, int64(100), insufficient.ProductRef)
}

func TestOrderReservationService_CreateFromOrder_Fulfillment(t *testing.T) {
	ctx := context.Background()

	delivery := func(mod func(in *service.OrderInput)) service.OrderInput {
		in := service.OrderInput{
			OrderRef:   900,
			Items:      []service.OrderItemInput{stockItem(1, 1)},
			Mode:       repository.ModeHomeDelivery,
			CarrierRef: ptr(int64(3)),
			Address:    ptr("Av. Arequipa 123"),
			Latitude:   ptr(-12.05),
			Longitude:  ptr(-77.04),
		}
		if mod != nil {
			mod(&in)
		}
		return in
	}

	tests := []struct {
		name          string
		input         service.OrderInput
		setup         func(f *orderFixture)
		expectedErr   error
		errorContains string
	}{
		{
			name:  "store pickup: store not found",
			input: pickupOrder(stockItem(1, 1)),
			setup: func(f *orderFixture) {
				f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(service.StoreValidation{}, nil)
			},
			expectedErr: service.ErrNotFound,
		},
		{
			name:  "store pickup: location is a warehouse",
			input: pickupOrder(stockItem(1, 1)),
			setup: func(f *orderFixture) {
				f.stores.On("ValidateStore", mock.Anything, int64(7)).
					Return(service.StoreValidation{Exists: true, Active: true, IsStore: false}, nil)
			},
			expectedErr:   service.ErrValidation,
			errorContains: "not a store",
		},
		{
			name:  "store pickup: inactive store",
			input: pickupOrder(stockItem(1, 1)),
			setup: func(f *orderFixture) {
				f.stores.On("ValidateStore", mock.Anything, int64(7)).
					Return(service.StoreValidation{Exists: true, IsStore: true, Status: "INACTIVO"}, nil)
			},
			expectedErr:   service.ErrValidation,
			errorContains: "not active",
		},
		{
			name:  "store pickup: store service unreachable",
			input: pickupOrder(stockItem(1, 1)),
			setup: func(f *orderFixture) {
				f.stores.On("ValidateStore", mock.Anything, int64(7)).
					Return(service.StoreValidation{}, &service.NetworkError{Op: "validate store", Err: errors.New("dial tcp: refused")})
			},
			expectedErr: service.ErrNetwork,
		},
		{
			name:          "store pickup: store ref missing",
			input:         service.OrderInput{OrderRef: 900, Items: []service.OrderItemInput{stockItem(1, 1)}, Mode: repository.ModeStorePickup},
			expectedErr:   service.ErrValidation,
			errorContains: "store_ref",
		},
		{
			name:          "home delivery: address missing",
			input:         delivery(func(in *service.OrderInput) { in.Address = ptr("  ") }),
			expectedErr:   service.ErrValidation,
			errorContains: "address",
		},
		{
			name:          "home delivery: latitude out of range",
			input:         delivery(func(in *service.OrderInput) { in.Latitude = ptr(91.0) }),
			expectedErr:   service.ErrValidation,
			errorContains: "latitude",
		},
		{
			name:          "home delivery: longitude out of range",
			input:         delivery(func(in *service.OrderInput) { in.Longitude = ptr(-180.5) }),
			expectedErr:   service.ErrValidation,
			errorContains: "longitude",
		},
		{
			name:  "home delivery: carrier not found",
			input: delivery(nil),
			setup: func(f *orderFixture) {
				f.shipping.On("ValidateCarrier", mock.Anything, int64(3)).Return(service.CarrierValidation{}, nil)
			},
			expectedErr: service.ErrNotFound,
		},
		{
			name:  "home delivery: carrier inactive",
			input: delivery(nil),
			setup: func(f *orderFixture) {
				f.shipping.On("ValidateCarrier", mock.Anything, int64(3)).Return(service.CarrierValidation{Exists: true}, nil)
			},
			expectedErr:   service.ErrValidation,
			errorContains: "not active",
		},
		{
			name:  "home delivery: success",
			input: delivery(nil),
			setup: func(f *orderFixture) {
				f.shipping.On("ValidateCarrier", mock.Anything, int64(3)).
					Return(service.CarrierValidation{Exists: true, Active: true, Name: "Olva"}, nil)
			},
		},
		{
			name:          "unknown mode",
			input:         service.OrderInput{OrderRef: 900, Items: []service.OrderItemInput{stockItem(1, 1)}, Mode: "DRONE"},
			expectedErr:   service.ErrValidation,
			errorContains: "mode",
		},
		{
			name:          "empty items",
			input:         service.OrderInput{OrderRef: 900, Mode: repository.ModeStorePickup, StoreRef: ptr(int64(7))},
			expectedErr:   service.ErrValidation,
			errorContains: "at least one item",
		},
		{
			name:          "item quantity zero",
			input:         pickupOrder(stockItem(1, 0)),
			expectedErr:   service.ErrValidation,
			errorContains: "quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, service.Stock{Ref: 1, Available: 10})
			if tt.setup != nil {
				tt.setup(f)
			}

			out, err := f.svc.CreateFromOrder(ctx, tt.input)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				if tt.errorContains != "" {
					require.Contains(t, err.Error(), tt.errorContains)
				}
				require.Empty(t, f.inventory.mutations())
				return
			}
			require.NoError(t, err)
			require.Len(t, out.Reservations, 1)
			fl := out.Reservations[0].Fulfillment
			require.Equal(t, repository.ModeHomeDelivery, fl.Mode)
			require.Equal(t, "Av. Arequipa 123", *fl.Address)
			require.Equal(t, int64(3), *fl.CarrierRef)
		})
	}
}

func TestOrderReservationService_CreateFromOrder_ExplicitState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		stateID       int64
		expectedState string
		expectedErr   error
		errorContains string
	}{
		{name: "confirmed is accepted", stateID: stateConfirmed, expectedState: repository.StateConfirmed},
		{name: "unknown state", stateID: 88, expectedErr: service.ErrUnknownReference},
		{name: "expired is rejected", stateID: stateExpired, expectedErr: service.ErrValidation, errorContains: "terminal state EXPIRED"},
		{name: "cancelled is rejected", stateID: stateCancelled, expectedErr: service.ErrValidation},
		{name: "completed is rejected", stateID: stateCompleted, expectedErr: service.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, service.Stock{Ref: 1, Available: 10})

			in := pickupOrder(stockItem(1, 1))
			in.StateID = ptr(tt.stateID)

			if tt.expectedErr != nil {
				_, err := f.svc.CreateFromOrder(ctx, in)
				require.ErrorIs(t, err, tt.expectedErr)
				if tt.errorContains != "" {
					require.Contains(t, err.Error(), tt.errorContains)
				}
				require.Empty(t, f.inventory.calls)
				require.Equal(t, service.Stock{Ref: 1, Available: 10}, f.inventory.stock(1))
				return
			}

			f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)
			out, err := f.svc.CreateFromOrder(ctx, in)
			require.NoError(t, err)
			require.Equal(t, tt.expectedState, out.Reservations[0].StateName)
		})
	}
}

func TestOrderReservationService_CreateFromOrder_SameProductSpreadsAcrossRecords(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, ProductRef: 100, LocationRef: 10, Available: 10},
		service.Stock{Ref: 2, ProductRef: 100, LocationRef: 20, Available: 8},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

	item := service.OrderItemInput{ProductRef: ptr(int64(100)), Quantity: 6}
	out, err := f.svc.CreateFromOrder(ctx, pickupOrder(item, item))
	require.NoError(t, err)
	require.Len(t, out.Reservations, 2)
	require.Equal(t, int64(1), out.Reservations[0].StockRef)
	require.Equal(t, int64(2), out.Reservations[1].StockRef)

	require.Equal(t, service.Stock{Ref: 1, ProductRef: 100, LocationRef: 10, Available: 4, Reserved: 6}, f.inventory.stock(1))
	require.Equal(t, service.Stock{Ref: 2, ProductRef: 100, LocationRef: 20, Available: 2, Reserved: 6}, f.inventory.stock(2))
}

func TestOrderReservationService_CreateFromOrder_SameProductStillShort(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t,
		service.Stock{Ref: 1, ProductRef: 100, LocationRef: 10, Available: 10},
		service.Stock{Ref: 2, ProductRef: 100, LocationRef: 20, Available: 4},
	)
	f.stores.On("ValidateStore", mock.Anything, int64(7)).Return(activeStore(), nil)

	item := service.OrderItemInput{ProductRef: ptr(int64(100)), Quantity: 6}
	_, err := f.svc.CreateFromOrder(ctx, pickupOrder(item, item))

	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(8), insufficient.Available)
	require.Empty(t, f.inventory.mutations())
}

package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type inventoryCall struct {
	op     string
	ref    int64
	amount int64
}

// fakeInventory stateful Inventory: available/reserved по складским записям и журнал вызовов
type fakeInventory struct {
	mu          sync.Mutex
	stocks      map[int64]*service.Stock
	calls       []inventoryCall
	applied     []inventoryCall
	failReserve map[int64]error
	failRelease map[int64]error
}

func newFakeInventory(stocks ...service.Stock) *fakeInventory {
	f := &fakeInventory{
		stocks:      make(map[int64]*service.Stock),
		failReserve: make(map[int64]error),
		failRelease: make(map[int64]error),
	}
	for i := range stocks {
		s := stocks[i]
		f.stocks[s.Ref] = &s
	}
	return f
}

func (f *fakeInventory) GetStock(ctx context.Context, ref int64) (service.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inventoryCall{op: "get", ref: ref})

	s, ok := f.stocks[ref]
	if !ok {
		return service.Stock{}, &service.ReferenceError{Entity: "stock", ID: ref}
	}
	return *s, nil
}

func (f *fakeInventory) Reserve(ctx context.Context, ref, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inventoryCall{op: "reserve", ref: ref, amount: amount})

	if err := f.failReserve[ref]; err != nil {
		return err
	}
	s, ok := f.stocks[ref]
	if !ok {
		return &service.ReferenceError{Entity: "stock", ID: ref}
	}
	if s.Available < amount {
		return &service.InsufficientStockError{StockRef: ref, Available: s.Available, Requested: amount}
	}
	s.Available -= amount
	s.Reserved += amount
	f.applied = append(f.applied, inventoryCall{op: "reserve", ref: ref, amount: amount})
	return nil
}

func (f *fakeInventory) Release(ctx context.Context, ref, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inventoryCall{op: "release", ref: ref, amount: amount})

	if err := f.failRelease[ref]; err != nil {
		return err
	}
	s, ok := f.stocks[ref]
	if !ok {
		return &service.ReferenceError{Entity: "stock", ID: ref}
	}
	s.Available += amount
	s.Reserved -= amount
	if s.Reserved < 0 {
		s.Reserved = 0
	}
	f.applied = append(f.applied, inventoryCall{op: "release", ref: ref, amount: amount})
	return nil
}

func (f *fakeInventory) ListStock(ctx context.Context, filter service.StockFilter) ([]service.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inventoryCall{op: "list"})

	refs := make([]int64, 0, len(f.stocks))
	for ref := range f.stocks {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	var out []service.Stock
	for _, ref := range refs {
		s := f.stocks[ref]
		if filter.ProductRef != nil && s.ProductRef != *filter.ProductRef {
			continue
		}
		if filter.LocationRef != nil && s.LocationRef != *filter.LocationRef {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeInventory) stock(ref int64) service.Stock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.stocks[ref]
}

// mutations вызовы reserve/release
func (f *fakeInventory) mutations() []inventoryCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []inventoryCall
	for _, c := range f.calls {
		if c.op == "reserve" || c.op == "release" {
			out = append(out, c)
		}
	}
	return out
}

// netReserved сумма успешных reserve минус release по складской записи
func (f *fakeInventory) netReserved(ref int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var net int64
	for _, c := range f.applied {
		if c.ref != ref {
			continue
		}
		if c.op == "reserve" {
			net += c.amount
		} else {
			net -= c.amount
		}
	}
	return net
}

var errPersist = errors.New("connection reset by peer")

// flakyReservations оборачивает репозиторий и роняет выбранные вызовы
type flakyReservations struct {
	repository.ReservationRepository
	failCreateAt int // номер вызова Create (с 1), который упадёт
	createCalls  int
	failUpdate   bool
}

func (r *flakyReservations) Create(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	r.createCalls++
	if r.createCalls == r.failCreateAt {
		return repository.Reservation{}, errPersist
	}
	return r.ReservationRepository.Create(ctx, res)
}

func (r *flakyReservations) Update(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	if r.failUpdate {
		return repository.Reservation{}, errPersist
	}
	return r.ReservationRepository.Update(ctx, res)
}

func ptr[T any](v T) *T { return &v }

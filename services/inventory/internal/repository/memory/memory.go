package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/stockhold/services/inventory/internal/repository"
)

// Repository реализует StockRepository в памяти процесса.
// Используется для разработки и тестов; все операции под одним мьютексом.
type Repository struct {
	mu     sync.RWMutex
	stock  map[int64]repository.StockRecord
	nextID int64
	now    func() time.Time
}

// NewRepository создаёт хранилище с начальными записями
func NewRepository(initial ...repository.StockRecord) *Repository {
	r := &Repository{
		stock: make(map[int64]repository.StockRecord),
		now:   time.Now,
	}
	for _, rec := range initial {
		r.stock[rec.ID] = rec
		if rec.ID > r.nextID {
			r.nextID = rec.ID
		}
	}
	return r
}

func (r *Repository) Create(ctx context.Context, rec repository.StockRecord) (repository.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.stock {
		if existing.ID == rec.ID ||
			(existing.ProductRef == rec.ProductRef && existing.LocationRef == rec.LocationRef) {
			return repository.StockRecord{}, repository.ErrAlreadyExists
		}
	}

	if rec.ID == 0 {
		r.nextID++
		rec.ID = r.nextID
	} else if rec.ID > r.nextID {
		r.nextID = rec.ID
	}
	rec.UpdatedAt = r.now().UTC()
	r.stock[rec.ID] = rec
	return rec, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (repository.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.stock[id]
	if !ok {
		return repository.StockRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (r *Repository) List(ctx context.Context, filter repository.StockFilter) ([]repository.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.StockRecord, 0, len(r.stock))
	for _, rec := range r.stock {
		if filter.ProductRef != nil && rec.ProductRef != *filter.ProductRef {
			continue
		}
		if filter.LocationRef != nil && rec.LocationRef != *filter.LocationRef {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) Set(ctx context.Context, id, available, reserved int64) (repository.StockRecord, error) {
	return r.modify(id, func(rec *repository.StockRecord) error {
		rec.Available = available
		rec.Reserved = reserved
		return nil
	})
}

func (r *Repository) Reserve(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	return r.modify(id, func(rec *repository.StockRecord) error {
		if rec.Available < amount {
			return &repository.InsufficientError{Available: rec.Available, Requested: amount}
		}
		rec.Available -= amount
		rec.Reserved += amount
		return nil
	})
}

func (r *Repository) Release(ctx context.Context, id, amount int64) (repository.StockRecord, error) {
	return r.modify(id, func(rec *repository.StockRecord) error {
		rec.Available += amount
		rec.Reserved = max(rec.Reserved-amount, 0)
		return nil
	})
}

func (r *Repository) modify(id int64, fn func(rec *repository.StockRecord) error) (repository.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.stock[id]
	if !ok {
		return repository.StockRecord{}, repository.ErrNotFound
	}
	if err := fn(&rec); err != nil {
		return repository.StockRecord{}, err
	}
	rec.UpdatedAt = r.now().UTC()
	r.stock[id] = rec
	return rec, nil
}

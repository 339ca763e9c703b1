package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shestoi/stockhold/services/inventory/internal/repository"
)

func TestRepository_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repository.StockRecord{ID: 1, ProductRef: 10, LocationRef: 100, Available: 5})

	rec, err := repo.Reserve(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), rec.Available)
	require.Equal(t, int64(3), rec.Reserved)

	_, err = repo.Reserve(ctx, 1, 3)
	var insufficient *repository.InsufficientError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(2), insufficient.Available)

	rec, err = repo.Release(ctx, 1, 5)
	require.NoError(t, err)
	require.Equal(t, int64(7), rec.Available)
	require.Equal(t, int64(0), rec.Reserved)

	_, err = repo.Reserve(ctx, 2, 1)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(repository.StockRecord{ID: 1, Available: 10})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Reserve(ctx, 1, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rec, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 10, succeeded)
	require.Equal(t, int64(0), rec.Available)
	require.Equal(t, int64(10), rec.Reserved)
}

func TestRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	a, err := repo.Create(ctx, repository.StockRecord{ProductRef: 10, LocationRef: 1, Available: 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), a.ID)

	_, err = repo.Create(ctx, repository.StockRecord{ID: 7, ProductRef: 10, LocationRef: 2, Available: 4})
	require.NoError(t, err)

	_, err = repo.Create(ctx, repository.StockRecord{ProductRef: 10, LocationRef: 1})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	product := int64(10)
	location := int64(2)
	all, err := repo.List(ctx, repository.StockFilter{ProductRef: &product})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, int64(1), all[0].ID)

	one, err := repo.List(ctx, repository.StockFilter{ProductRef: &product, LocationRef: &location})
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, int64(7), one[0].ID)

	next, err := repo.Create(ctx, repository.StockRecord{ProductRef: 11, LocationRef: 1})
	require.NoError(t, err)
	require.Equal(t, int64(8), next.ID)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/inventory/internal/repository"
	"github.com/shestoi/stockhold/services/inventory/internal/repository/mocks"
)

func TestStockService_Reserve(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		amount        int64
		setupRepo     func(r *mocks.StockRepository)
		expected      repository.StockRecord
		expectedError error
		errorContains string
	}{
		{
			name:   "success: moves amount to reserved",
			amount: 3,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Reserve", ctx, int64(1), int64(3)).Return(repository.StockRecord{ID: 1, Available: 7, Reserved: 3}, nil).Once()
			},
			expected: repository.StockRecord{ID: 1, Available: 7, Reserved: 3},
		},
		{
			name:          "zero amount is rejected before repository",
			amount:        0,
			expectedError: ErrValidation,
			errorContains: "amount",
		},
		{
			name:   "insufficient stock keeps available",
			amount: 30,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Reserve", ctx, int64(1), int64(30)).Return(repository.StockRecord{}, &repository.InsufficientError{Available: 7, Requested: 30}).Once()
			},
			errorContains: "available 7, requested 30",
		},
		{
			name:   "unknown stock",
			amount: 1,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Reserve", ctx, int64(1), int64(1)).Return(repository.StockRecord{}, repository.ErrNotFound).Once()
			},
			expectedError: ErrNotFound,
		},
		{
			name:   "repository failure",
			amount: 1,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Reserve", ctx, int64(1), int64(1)).Return(repository.StockRecord{}, errors.New("server selection timeout")).Once()
			},
			errorContains: "server selection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewStockRepository(t)
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			svc := NewStockService(repo, zap.NewNop())

			rec, err := svc.Reserve(ctx, 1, tt.amount)
			if tt.expectedError != nil || tt.errorContains != "" {
				require.Error(t, err)
				if tt.expectedError != nil {
					require.ErrorIs(t, err, tt.expectedError)
				}
				if tt.errorContains != "" {
					require.Contains(t, err.Error(), tt.errorContains)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, rec)
		})
	}
}

func TestStockService_ReserveInsufficientType(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewStockRepository(t)
	repo.On("Reserve", ctx, int64(4), int64(9)).Return(repository.StockRecord{}, &repository.InsufficientError{Available: 2, Requested: 9})

	_, err := NewStockService(repo, zap.NewNop()).Reserve(ctx, 4, 9)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, InsufficientStockError{StockID: 4, Available: 2, Requested: 9}, *insufficient)
}

func TestStockService_Set(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		available     int64
		reserved      int64
		setupRepo     func(r *mocks.StockRepository)
		expectedError error
	}{
		{
			name:      "success",
			available: 5,
			reserved:  2,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Set", ctx, int64(1), int64(5), int64(2)).Return(repository.StockRecord{ID: 1, Available: 5, Reserved: 2}, nil).Once()
			},
		},
		{name: "negative available", available: -1, expectedError: ErrValidation},
		{name: "negative reserved", available: 1, reserved: -1, expectedError: ErrValidation},
		{
			name:      "not found",
			available: 1,
			setupRepo: func(r *mocks.StockRepository) {
				r.On("Set", ctx, int64(1), int64(1), int64(0)).Return(repository.StockRecord{}, repository.ErrNotFound).Once()
			},
			expectedError: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewStockRepository(t)
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			_, err := NewStockService(repo, zap.NewNop()).Set(ctx, 1, tt.available, tt.reserved)
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestStockService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("requires product and location", func(t *testing.T) {
		svc := NewStockService(mocks.NewStockRepository(t), zap.NewNop())
		_, err := svc.Create(ctx, repository.StockRecord{LocationRef: 1})
		require.ErrorIs(t, err, ErrValidation)
		_, err = svc.Create(ctx, repository.StockRecord{ProductRef: 1})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate", func(t *testing.T) {
		repo := mocks.NewStockRepository(t)
		repo.On("Create", ctx, mock.Anything).Return(repository.StockRecord{}, repository.ErrAlreadyExists).Once()

		_, err := NewStockService(repo, zap.NewNop()).Create(ctx, repository.StockRecord{ProductRef: 1, LocationRef: 1})
		require.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestStockService_Release(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewStockRepository(t)
	repo.On("Release", ctx, int64(1), int64(2)).Return(repository.StockRecord{ID: 1, Available: 12, Reserved: 0}, nil).Once()
	svc := NewStockService(repo, zap.NewNop())

	rec, err := svc.Release(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(12), rec.Available)

	_, err = svc.Release(ctx, 1, -2)
	require.ErrorIs(t, err, ErrValidation)
}

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
	"github.com/shestoi/stockhold/services/reservation/internal/service/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lifecycleCall struct {
	op       string
	orderRef int64
}

type fakeLifecycle struct {
	calls []lifecycleCall
	err   error
}

func (f *fakeLifecycle) ConfirmOrder(ctx context.Context, orderRef int64) (int, error) {
	f.calls = append(f.calls, lifecycleCall{op: "confirm", orderRef: orderRef})
	return 1, f.err
}

func (f *fakeLifecycle) CompleteOrder(ctx context.Context, orderRef int64) (int, error) {
	f.calls = append(f.calls, lifecycleCall{op: "complete", orderRef: orderRef})
	return 1, f.err
}

func TestOrderEventService_HandleOrderEvent(t *testing.T) {
	ctx := context.Background()
	ttl := 24 * time.Hour

	tests := []struct {
		name          string
		event         service.OrderEvent
		setupStore    func(s *mocks.ProcessedEventsStore)
		lifecycleErr  error
		expectedError error
		expectCalls   []lifecycleCall
	}{
		{
			name:  "payment completed confirms order",
			event: service.OrderEvent{EventID: "evt-1", EventType: service.EventOrderPaymentCompleted, OrderRef: 42},
			setupStore: func(s *mocks.ProcessedEventsStore) {
				s.On("IsProcessed", mock.Anything, "evt-1").Return(false, nil)
				s.On("MarkProcessed", mock.Anything, "evt-1", ttl).Return(nil)
			},
			expectCalls: []lifecycleCall{{op: "confirm", orderRef: 42}},
		},
		{
			name:  "assembly completed completes order",
			event: service.OrderEvent{EventID: "evt-2", EventType: service.EventOrderAssemblyCompleted, OrderRef: 42},
			setupStore: func(s *mocks.ProcessedEventsStore) {
				s.On("IsProcessed", mock.Anything, "evt-2").Return(false, nil)
				s.On("MarkProcessed", mock.Anything, "evt-2", ttl).Return(nil)
			},
			expectCalls: []lifecycleCall{{op: "complete", orderRef: 42}},
		},
		{
			name:  "duplicate event is skipped",
			event: service.OrderEvent{EventID: "evt-1", EventType: service.EventOrderPaymentCompleted, OrderRef: 42},
			setupStore: func(s *mocks.ProcessedEventsStore) {
				s.On("IsProcessed", mock.Anything, "evt-1").Return(true, nil)
			},
		},
		{
			name:          "missing event id",
			event:         service.OrderEvent{EventType: service.EventOrderPaymentCompleted, OrderRef: 42},
			expectedError: service.ErrEventIDRequired,
		},
		{
			name:  "unknown event type is ignored",
			event: service.OrderEvent{EventID: "evt-3", EventType: "order.created", OrderRef: 42},
			setupStore: func(s *mocks.ProcessedEventsStore) {
				s.On("IsProcessed", mock.Anything, "evt-3").Return(false, nil)
			},
		},
		{
			name:  "lifecycle failure is not marked processed",
			event: service.OrderEvent{EventID: "evt-4", EventType: service.EventOrderPaymentCompleted, OrderRef: 42},
			setupStore: func(s *mocks.ProcessedEventsStore) {
				s.On("IsProcessed", mock.Anything, "evt-4").Return(false, nil)
			},
			lifecycleErr:  service.ErrUnexpected,
			expectedError: service.ErrUnexpected,
			expectCalls:   []lifecycleCall{{op: "confirm", orderRef: 42}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewProcessedEventsStore(t)
			if tt.setupStore != nil {
				tt.setupStore(store)
			}
			lifecycle := &fakeLifecycle{err: tt.lifecycleErr}
			svc := service.NewOrderEventService(lifecycle, store, ttl, zap.NewNop())

			err := svc.HandleOrderEvent(ctx, tt.event)
			if tt.expectedError != nil {
				require.True(t, errors.Is(err, tt.expectedError))
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.expectCalls, lifecycle.calls)
		})
	}
}

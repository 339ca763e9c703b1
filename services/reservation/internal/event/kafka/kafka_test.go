package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/repository/memory"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	failures int // сколько первых вызовов упадут
	calls    int
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls <= w.failures {
		return errors.New("broker not available")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader отдаёт сообщения по очереди, затем ждёт отмены контекста
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type fakeHandler struct {
	mu       sync.Mutex
	events   []service.OrderEvent
	failures int
}

func (h *fakeHandler) HandleOrderEvent(ctx context.Context, event service.OrderEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if len(h.events) <= h.failures {
		return service.ErrUnexpected
	}
	return nil
}

type recordedDLQ struct {
	eventType, eventID, orderRef string
	err                          error
}

type fakeDLQ struct {
	published []recordedDLQ
	fail      bool
}

func (d *fakeDLQ) Publish(ctx context.Context, m kafka.Message, err error, eventType, eventID, orderRef string) error {
	if d.fail {
		return errors.New("dlq unavailable")
	}
	d.published = append(d.published, recordedDLQ{eventType: eventType, eventID: eventID, orderRef: orderRef, err: err})
	return nil
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "order.payment.completed", Offset: offset, Value: []byte(value)}
}

func TestOrderEventConsumer_ProcessMessage(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		failures     int
		dlqFails     bool
		expectCommit bool
		expectEvents int
		expectDLQ    *recordedDLQ
		expectRef    int64
	}{
		{
			name:         "numeric order ref",
			value:        `{"event_id":"e1","event_type":"order.payment.completed","order_ref":42}`,
			expectCommit: true,
			expectEvents: 1,
			expectRef:    42,
		},
		{
			name:         "string order id falls back to consumer event type",
			value:        `{"event_id":"e2","order_id":"77"}`,
			expectCommit: true,
			expectEvents: 1,
			expectRef:    77,
		},
		{
			name:         "invalid json goes to DLQ",
			value:        `{not json`,
			expectCommit: true,
			expectDLQ:    &recordedDLQ{},
		},
		{
			name:         "missing event id goes to DLQ",
			value:        `{"order_ref":42}`,
			expectCommit: true,
			expectDLQ:    &recordedDLQ{eventType: service.EventOrderPaymentCompleted},
		},
		{
			name:         "bad order ref goes to DLQ",
			value:        `{"event_id":"e3","order_ref":"abc"}`,
			expectCommit: true,
			expectDLQ:    &recordedDLQ{eventType: service.EventOrderPaymentCompleted, eventID: "e3"},
		},
		{
			name:         "recovers after retry",
			value:        `{"event_id":"e4","order_ref":5}`,
			failures:     2,
			expectCommit: true,
			expectEvents: 3,
			expectRef:    5,
		},
		{
			name:         "exhausted retries go to DLQ",
			value:        `{"event_id":"e5","order_ref":5}`,
			failures:     10,
			expectCommit: true,
			expectEvents: 3,
			expectRef:    5,
			expectDLQ:    &recordedDLQ{eventType: service.EventOrderPaymentCompleted, eventID: "e5", orderRef: "5"},
		},
		{
			name:         "DLQ failure blocks commit",
			value:        `{not json`,
			dlqFails:     true,
			expectCommit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &fakeHandler{failures: tt.failures}
			dlq := &fakeDLQ{fail: tt.dlqFails}
			c := NewOrderEventConsumer(zap.NewNop(), &fakeReader{}, handler, dlq,
				service.EventOrderPaymentCompleted, 3, time.Millisecond).WithSleeper(noSleep{})

			commit := c.processMessage(context.Background(), message(1, tt.value))
			require.Equal(t, tt.expectCommit, commit)
			require.Len(t, handler.events, tt.expectEvents)
			if tt.expectEvents > 0 {
				require.Equal(t, tt.expectRef, handler.events[0].OrderRef)
				require.Equal(t, service.EventOrderPaymentCompleted, handler.events[0].EventType)
			}

			if tt.expectDLQ == nil {
				require.Empty(t, dlq.published)
				return
			}
			require.Len(t, dlq.published, 1)
			got := dlq.published[0]
			require.Error(t, got.err)
			require.Equal(t, tt.expectDLQ.eventType, got.eventType)
			require.Equal(t, tt.expectDLQ.eventID, got.eventID)
			require.Equal(t, tt.expectDLQ.orderRef, got.orderRef)
		})
	}
}

func TestOrderEventConsumer_StartCommitsInOrder(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(10, `{"event_id":"a","order_ref":1}`),
		message(11, `{"event_id":"b","order_ref":2}`),
	}}
	handler := &fakeHandler{}
	c := NewOrderEventConsumer(zap.NewNop(), reader, handler, &fakeDLQ{},
		service.EventOrderPaymentCompleted, 1, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []int64{10, 11}, reader.commits())
}

func TestParseOrderRef(t *testing.T) {
	tests := []struct {
		name      string
		raw       any
		expected  int64
		expectErr bool
	}{
		{name: "number", raw: float64(12), expected: 12},
		{name: "string", raw: " 34 ", expected: 34},
		{name: "fraction", raw: 1.5, expectErr: true},
		{name: "negative", raw: float64(-1), expectErr: true},
		{name: "not a number", raw: "x1", expectErr: true},
		{name: "bool", raw: true, expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOrderRef(tt.raw)
			if tt.expectErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Equal(t, "order_ref", parseErr.Field)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestOutboxDispatcher_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore("reservation.events")
	_, err := store.Reservations().Create(ctx, repository.Reservation{
		StockRef: 1, OrderRef: 900, Quantity: 2, StateID: 1,
		ReservedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	t.Run("failed publish leaves event pending", func(t *testing.T) {
		writer := &fakeWriter{failures: 3}
		d := NewOutboxDispatcher(zap.NewNop(), store, writer, 10, time.Second, 3, time.Millisecond).WithSleeper(noSleep{})

		require.NoError(t, d.ProcessBatch(ctx))
		require.Empty(t, writer.messages)

		pending, err := store.GetPendingOutboxEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, 1, pending[0].Attempts)
	})

	t.Run("published event is marked sent", func(t *testing.T) {
		writer := &fakeWriter{failures: 1}
		d := NewOutboxDispatcher(zap.NewNop(), store, writer, 10, time.Second, 3, time.Millisecond).WithSleeper(noSleep{})

		require.NoError(t, d.ProcessBatch(ctx))
		require.Len(t, writer.messages, 1)

		msg := writer.messages[0]
		require.Equal(t, "reservation.events", msg.Topic)
		require.Equal(t, "900", string(msg.Key))

		var payload repository.ReservationEventPayload
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		require.Equal(t, repository.EventReservationCreated, payload.EventType)
		require.Equal(t, int64(900), payload.OrderRef)

		pending, err := store.GetPendingOutboxEvents(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, pending)
	})
}

func TestDLQPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := NewDLQPublisher(zap.NewNop(), writer, "reservation.order-events.dlq")

	original := kafka.Message{Topic: "order.payment.completed", Partition: 2, Offset: 7, Key: []byte("k"), Value: []byte("v")}
	require.NoError(t, p.Publish(context.Background(), original, errors.New("boom"), "order.payment.completed", "e1", "42"))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	require.Equal(t, "reservation.order-events.dlq", msg.Topic)
	require.Equal(t, "42", string(msg.Key))

	var body DLQMessage
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	require.Equal(t, "order.payment.completed", body.OriginalTopic)
	require.Equal(t, int64(7), body.OriginalOffset)
	require.Equal(t, "boom", body.ErrorMessage)
	require.Equal(t, "42", body.OrderRef)
}

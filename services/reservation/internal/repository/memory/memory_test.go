package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/stretchr/testify/require"
)

func newReservation(stockRef, orderRef int64, stateID int64, reservedAt time.Time) repository.Reservation {
	return repository.Reservation{
		StockRef:   stockRef,
		OrderRef:   orderRef,
		Quantity:   3,
		StateID:    stateID,
		ReservedAt: reservedAt,
		ExpiresAt:  reservedAt.Add(time.Hour),
	}
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore("reservation.events")
	repo := store.Reservations()

	created, err := repo.Create(ctx, newReservation(10, 100, 1, time.Now()))
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, repository.StatePending, created.StateName)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.StockRef, got.StockRef)

	_, err = repo.GetByID(ctx, 999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReservationRepository_CreateUnknownState(t *testing.T) {
	repo := NewStore("reservation.events").Reservations()

	_, err := repo.Create(context.Background(), newReservation(10, 100, 42, time.Now()))
	require.ErrorIs(t, err, repository.ErrInvalidReference)
}

func TestReservationRepository_ListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewStore("reservation.events").Reservations()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newReservation(10, 100, 1, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newReservation(20, 200, 1, base))
	require.NoError(t, err)

	stockRef := int64(10)
	page, err := repo.List(ctx, repository.ReservationFilter{StockRef: &stockRef}, repository.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), page.Total)
	require.Len(t, page.Items, 2)
	require.True(t, page.Items[0].ReservedAt.After(page.Items[1].ReservedAt))

	page, err = repo.List(ctx, repository.ReservationFilter{StockRef: &stockRef}, repository.Page{Number: 3, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = repo.List(ctx, repository.ReservationFilter{StockRef: &stockRef}, repository.Page{Number: 9, Size: 2})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestReservationRepository_ListExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewStore("reservation.events").Reservations()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	older := newReservation(10, 100, 2, now.Add(-3*time.Hour))
	newer := newReservation(11, 100, 1, now.Add(-2*time.Hour))
	live := newReservation(12, 100, 1, now)
	done := newReservation(13, 100, 3, now.Add(-5*time.Hour))

	for _, r := range []repository.Reservation{newer, live, done, older} {
		_, err := repo.Create(ctx, r)
		require.NoError(t, err)
	}

	expired, err := repo.ListExpired(ctx, now, []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, expired, 2)
	require.Equal(t, int64(10), expired[0].StockRef)
	require.Equal(t, int64(11), expired[1].StockRef)
}

func TestReservationRepository_MutationsWriteOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewStore("reservation.events")
	repo := store.Reservations()

	created, err := repo.Create(ctx, newReservation(10, 100, 1, time.Now()))
	require.NoError(t, err)

	created.Quantity = 7
	_, err = repo.Update(ctx, created)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateState(ctx, created.ID, 5))
	require.NoError(t, repo.Delete(ctx, created.ID))

	events, err := store.GetPendingOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 4)

	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
		require.Equal(t, "reservation.events", ev.Topic)
		require.Equal(t, "100", ev.AggregateID)
	}
	require.Equal(t, []string{
		repository.EventReservationCreated,
		repository.EventReservationUpdated,
		repository.EventReservationExpired,
		repository.EventReservationDeleted,
	}, types)

	var payload repository.ReservationEventPayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	require.Equal(t, int64(7), payload.Quantity)

	require.NoError(t, store.MarkOutboxEventSent(ctx, events[0].EventID))
	require.NoError(t, store.MarkOutboxEventFailed(ctx, events[1].EventID, "broker down"))

	pending, err := store.GetPendingOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.Equal(t, 1, pending[0].Attempts)
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()
	states := NewStore("reservation.events").States()

	all, err := states.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	byName, err := states.GetByNames(ctx, []string{repository.StatePending, repository.StateExpired, "UNKNOWN"})
	require.NoError(t, err)
	require.Len(t, byName, 2)

	created, err := states.Create(ctx, "ON_HOLD", "")
	require.NoError(t, err)
	require.Equal(t, int64(6), created.ID)

	_, err = states.Create(ctx, "ON_HOLD", "")
	require.ErrorIs(t, err, repository.ErrAlreadyExists)

	_, err = states.GetByID(ctx, 77)
	require.ErrorIs(t, err, repository.ErrStateNotFound)
}

func TestProcessedEventsStore(t *testing.T) {
	ctx := context.Background()
	store := NewProcessedEventsStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, processed)

	require.NoError(t, store.MarkProcessed(ctx, "evt-1", time.Minute))
	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.True(t, processed)

	now = now.Add(2 * time.Minute)
	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	require.False(t, processed)
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLock()

	token, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.True(t, errors.Is(lock.Unlock(ctx, "other"), ErrLockNotHeld))
	require.NoError(t, lock.Unlock(ctx, token))
	require.True(t, errors.Is(lock.Unlock(ctx, token), ErrLockNotHeld))

	_, ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

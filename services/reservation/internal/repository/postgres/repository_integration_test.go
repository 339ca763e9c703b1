//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для ping через database/sql

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("reservations"),
		postgres.WithUsername("reservation_user"),
		postgres.WithPassword("reservation_password"),
	)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, postgresContainer.Terminate(ctx))
	}()

	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Ждём готовности БД через ping с retry
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	// Накатываем встроенные миграции так же, как это делает app.Build
	require.NoError(t, Migrate(ctx, pool), "Failed to run migrations")

	reservations := NewReservationRepository(pool, "reservation.events")
	states := NewStateRepository(pool)
	outbox := NewOutboxRepository(pool)

	ids, err := states.GetByNames(ctx, []string{repository.StatePending, repository.StateConfirmed, repository.StateExpired})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	pending := ids[repository.StatePending].ID
	confirmed := ids[repository.StateConfirmed].ID
	expired := ids[repository.StateExpired].ID

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Create and GetByID", func(t *testing.T) {
		storeRef := int64(7)
		created, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 1, OrderRef: 100, Quantity: 3, StateID: pending,
			ReservedAt: now, ExpiresAt: now.Add(24 * time.Hour),
			Fulfillment: &repository.Fulfillment{Mode: repository.ModeStorePickup, StoreRef: &storeRef},
		})
		require.NoError(t, err)
		require.NotZero(t, created.ID)
		require.Equal(t, repository.StatePending, created.StateName)

		got, err := reservations.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, int64(3), got.Quantity)
		require.True(t, now.Equal(got.ReservedAt))
		require.NotNil(t, got.Fulfillment)
		require.Equal(t, repository.ModeStorePickup, got.Fulfillment.Mode)
		require.Equal(t, storeRef, *got.Fulfillment.StoreRef)
		require.Nil(t, got.Fulfillment.CarrierRef)
	})

	t.Run("Create_UnknownState", func(t *testing.T) {
		_, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 1, OrderRef: 100, Quantity: 1, StateID: 9999,
			ReservedAt: now, ExpiresAt: now.Add(time.Hour),
		})
		require.True(t, errors.Is(err, repository.ErrInvalidReference), "got: %v", err)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := reservations.GetByID(ctx, 424242)
		require.True(t, errors.Is(err, repository.ErrNotFound), "got: %v", err)
	})

	t.Run("Update and UpdateState", func(t *testing.T) {
		created, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 2, OrderRef: 200, Quantity: 5, StateID: pending,
			ReservedAt: now, ExpiresAt: now.Add(time.Hour),
		})
		require.NoError(t, err)

		created.Quantity = 8
		created.StateID = confirmed
		updated, err := reservations.Update(ctx, created)
		require.NoError(t, err)
		require.Equal(t, int64(8), updated.Quantity)
		require.Equal(t, repository.StateConfirmed, updated.StateName)

		require.NoError(t, reservations.UpdateState(ctx, created.ID, expired))
		got, err := reservations.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, repository.StateExpired, got.StateName)

		require.True(t, errors.Is(reservations.UpdateState(ctx, 424242, expired), repository.ErrNotFound))
	})

	t.Run("ListExpired and List", func(t *testing.T) {
		old, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 3, OrderRef: 300, Quantity: 1, StateID: confirmed,
			ReservedAt: now.Add(-5 * time.Hour), ExpiresAt: now.Add(-3 * time.Hour),
		})
		require.NoError(t, err)
		newer, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 3, OrderRef: 300, Quantity: 1, StateID: pending,
			ReservedAt: now.Add(-5 * time.Hour), ExpiresAt: now.Add(-time.Hour),
		})
		require.NoError(t, err)

		rows, err := reservations.ListExpired(ctx, now, []int64{pending, confirmed})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, old.ID, rows[0].ID)
		require.Equal(t, newer.ID, rows[1].ID)

		orderRef := int64(300)
		page, err := reservations.List(ctx, repository.ReservationFilter{OrderRef: &orderRef}, repository.Page{Number: 1, Size: 1})
		require.NoError(t, err)
		require.Equal(t, int64(2), page.Total)
		require.Len(t, page.Items, 1)

		byOrder, err := reservations.ListByOrder(ctx, orderRef)
		require.NoError(t, err)
		require.Len(t, byOrder, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		created, err := reservations.Create(ctx, repository.Reservation{
			StockRef: 4, OrderRef: 400, Quantity: 2, StateID: pending,
			ReservedAt: now, ExpiresAt: now.Add(time.Hour),
		})
		require.NoError(t, err)

		require.NoError(t, reservations.Delete(ctx, created.ID))
		require.True(t, errors.Is(reservations.Delete(ctx, created.ID), repository.ErrNotFound))
	})

	t.Run("States", func(t *testing.T) {
		st, err := states.Create(ctx, "ON_HOLD", "Held by support")
		require.NoError(t, err)

		got, err := states.GetByID(ctx, st.ID)
		require.NoError(t, err)
		require.Equal(t, "ON_HOLD", got.Name)

		_, err = states.Create(ctx, "ON_HOLD", "")
		require.True(t, errors.Is(err, repository.ErrAlreadyExists), "got: %v", err)

		_, err = states.GetByID(ctx, 9999)
		require.True(t, errors.Is(err, repository.ErrStateNotFound))

		all, err := states.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 6)
	})

	t.Run("Outbox", func(t *testing.T) {
		events, err := outbox.GetPendingOutboxEvents(ctx, 100)
		require.NoError(t, err)
		require.NotEmpty(t, events)

		first := events[0]
		require.Equal(t, repository.EventReservationCreated, first.EventType)
		require.Equal(t, "reservation.events", first.Topic)
		require.Equal(t, "100", first.AggregateID)

		var payload repository.ReservationEventPayload
		require.NoError(t, json.Unmarshal(first.Payload, &payload))
		require.Equal(t, first.EventID, payload.EventID)

		require.NoError(t, outbox.MarkOutboxEventFailed(ctx, first.EventID, "broker down"))
		again, err := outbox.GetPendingOutboxEvents(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, first.EventID, again[0].EventID)
		require.Equal(t, 1, again[0].Attempts)

		require.NoError(t, outbox.MarkOutboxEventSent(ctx, first.EventID))
		rest, err := outbox.GetPendingOutboxEvents(ctx, 100)
		require.NoError(t, err)
		require.Len(t, rest, len(events)-1)
	})
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

// Коды ошибок PostgreSQL
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

// reservationColumns колонки резерва в порядке scanReservation, r - алиас reservations, s - reservation_states
const reservationColumns = `r.id, r.stock_ref, r.order_ref, r.quantity, r.state_id, s.name, r.reserved_at, r.expires_at,
	r.fulfillment_mode, r.store_ref, r.carrier_ref, r.address, r.latitude, r.longitude`

// ReservationRepository реализует repository.ReservationRepository используя PostgreSQL.
// Каждая мутация в одной транзакции пишет строку и событие в outbox_events.
type ReservationRepository struct {
	pool        *pgxpool.Pool
	eventsTopic string
	now         func() time.Time
}

var _ repository.ReservationRepository = (*ReservationRepository)(nil)

// NewReservationRepository создаёт новый PostgreSQL репозиторий резервов
func NewReservationRepository(pool *pgxpool.Pool, eventsTopic string) *ReservationRepository {
	return &ReservationRepository{
		pool:        pool,
		eventsTopic: eventsTopic,
		now:         time.Now,
	}
}

// Create сохраняет резерв вместе с событием reservation.created
func (r *ReservationRepository) Create(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	var mode *string
	var storeRef, carrierRef *int64
	var address *string
	var lat, lng *float64
	if f := res.Fulfillment; f != nil {
		m := string(f.Mode)
		mode = &m
		storeRef, carrierRef, address, lat, lng = f.StoreRef, f.CarrierRef, f.Address, f.Latitude, f.Longitude
	}

	return r.mutate(ctx, repository.EventReservationCreated, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`WITH r AS (
			   INSERT INTO reservations (stock_ref, order_ref, quantity, state_id, reserved_at, expires_at,
			                             fulfillment_mode, store_ref, carrier_ref, address, latitude, longitude)
			   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			   RETURNING *
			 )
			 SELECT `+reservationColumns+`
			 FROM r JOIN reservation_states s ON s.id = r.state_id`,
			res.StockRef, res.OrderRef, res.Quantity, res.StateID, res.ReservedAt, res.ExpiresAt,
			mode, storeRef, carrierRef, address, lat, lng)
	})
}

// GetByID получает резерв по ID
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (repository.Reservation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r JOIN reservation_states s ON s.id = r.state_id
		 WHERE r.id = $1`,
		id)

	res, err := scanReservation(row)
	if err != nil {
		return repository.Reservation{}, mapError(err)
	}
	return res, nil
}

// Update перезаписывает изменяемые поля, метаданные доставки не меняются
func (r *ReservationRepository) Update(ctx context.Context, res repository.Reservation) (repository.Reservation, error) {
	return r.mutate(ctx, repository.EventReservationUpdated, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`WITH r AS (
			   UPDATE reservations
			   SET stock_ref = $2, order_ref = $3, quantity = $4, state_id = $5, reserved_at = $6, expires_at = $7
			   WHERE id = $1
			   RETURNING *
			 )
			 SELECT `+reservationColumns+`
			 FROM r JOIN reservation_states s ON s.id = r.state_id`,
			res.ID, res.StockRef, res.OrderRef, res.Quantity, res.StateID, res.ReservedAt, res.ExpiresAt)
	})
}

// Delete удаляет резерв вместе с событием reservation.deleted
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.mutate(ctx, repository.EventReservationDeleted, func(tx pgx.Tx) pgx.Row {
		return tx.QueryRow(ctx,
			`WITH r AS (
			   DELETE FROM reservations WHERE id = $1 RETURNING *
			 )
			 SELECT `+reservationColumns+`
			 FROM r JOIN reservation_states s ON s.id = r.state_id`,
			id)
	})
	return err
}

// UpdateState меняет только состояние; тип события зависит от нового состояния
func (r *ReservationRepository) UpdateState(ctx context.Context, id, stateID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`WITH r AS (
		   UPDATE reservations SET state_id = $2 WHERE id = $1 RETURNING *
		 )
		 SELECT `+reservationColumns+`
		 FROM r JOIN reservation_states s ON s.id = r.state_id`,
		id, stateID)

	res, err := scanReservation(row)
	if err != nil {
		return mapError(err)
	}

	if err := r.insertEvent(ctx, tx, repository.StateEventType(res.StateName), res); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// List выборка по фильтру, сортировка reserved_at DESC
func (r *ReservationRepository) List(ctx context.Context, filter repository.ReservationFilter, page repository.Page) (repository.ReservationPage, error) {
	var conds []string
	var args []any
	if filter.StockRef != nil {
		args = append(args, *filter.StockRef)
		conds = append(conds, fmt.Sprintf("r.stock_ref = $%d", len(args)))
	}
	if filter.OrderRef != nil {
		args = append(args, *filter.OrderRef)
		conds = append(conds, fmt.Sprintf("r.order_ref = $%d", len(args)))
	}
	if filter.StateID != nil {
		args = append(args, *filter.StateID)
		conds = append(conds, fmt.Sprintf("r.state_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reservations r`+where, args...).Scan(&total); err != nil {
		return repository.ReservationPage{}, err
	}

	query := `SELECT ` + reservationColumns + `
		FROM reservations r JOIN reservation_states s ON s.id = r.state_id` + where + `
		ORDER BY r.reserved_at DESC, r.id DESC`
	if page.Size > 0 {
		args = append(args, page.Size, page.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	items, err := r.queryReservations(ctx, query, args...)
	if err != nil {
		return repository.ReservationPage{}, err
	}
	return repository.ReservationPage{Items: items, Total: total}, nil
}

// ListByOrder все резервы заказа в порядке ID
func (r *ReservationRepository) ListByOrder(ctx context.Context, orderRef int64) ([]repository.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r JOIN reservation_states s ON s.id = r.state_id
		 WHERE r.order_ref = $1
		 ORDER BY r.id`,
		orderRef)
}

// ListExpired резервы с expires_at < now в одном из stateIDs, от самых старых
func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, stateIDs []int64) ([]repository.Reservation, error) {
	return r.queryReservations(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations r JOIN reservation_states s ON s.id = r.state_id
		 WHERE r.expires_at < $1 AND r.state_id = ANY($2)
		 ORDER BY r.expires_at ASC, r.id ASC`,
		now, stateIDs)
}

// mutate выполняет изменение строки и запись события в одной транзакции
func (r *ReservationRepository) mutate(ctx context.Context, eventType string, exec func(tx pgx.Tx) pgx.Row) (repository.Reservation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return repository.Reservation{}, err
	}
	// Гарантируем откат транзакции в случае ошибки
	defer tx.Rollback(ctx)

	res, err := scanReservation(exec(tx))
	if err != nil {
		return repository.Reservation{}, mapError(err)
	}

	if err := r.insertEvent(ctx, tx, eventType, res); err != nil {
		return repository.Reservation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Reservation{}, err
	}
	return res, nil
}

func (r *ReservationRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, res repository.Reservation) error {
	ev, err := repository.NewReservationEvent(eventType, r.eventsTopic, res, r.now())
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO outbox_events (event_id, event_type, topic, aggregate_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.EventID, ev.EventType, ev.Topic, ev.AggregateID, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]repository.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReservation(row pgx.Row) (repository.Reservation, error) {
	var res repository.Reservation
	var mode *string
	var f repository.Fulfillment

	err := row.Scan(
		&res.ID, &res.StockRef, &res.OrderRef, &res.Quantity, &res.StateID, &res.StateName,
		&res.ReservedAt, &res.ExpiresAt,
		&mode, &f.StoreRef, &f.CarrierRef, &f.Address, &f.Latitude, &f.Longitude,
	)
	if err != nil {
		return repository.Reservation{}, err
	}

	if mode != nil {
		f.Mode = repository.FulfillmentMode(*mode)
		res.Fulfillment = &f
	}
	res.ReservedAt = res.ReservedAt.UTC()
	res.ExpiresAt = res.ExpiresAt.UTC()
	return res, nil
}

// mapError переводит ошибки pgx в ошибки репозитория
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrInvalidReference, pgErr.ConstraintName)
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrAlreadyExists, pgErr.ConstraintName)
		}
	}
	return err
}

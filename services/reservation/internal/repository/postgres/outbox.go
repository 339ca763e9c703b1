package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

// OutboxRepository реализует repository.OutboxRepository поверх outbox_events
type OutboxRepository struct {
	pool *pgxpool.Pool
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository создаёт репозиторий outbox
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// GetPendingOutboxEvents pending события в порядке записи
func (r *OutboxRepository) GetPendingOutboxEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_id::text, event_type, topic, aggregate_id, payload, created_at, attempts
		 FROM outbox_events
		 WHERE status = 'pending'
		 ORDER BY created_at
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.OutboxEvent, 0, limit)
	for rows.Next() {
		var ev repository.OutboxEvent
		if err := rows.Scan(&ev.EventID, &ev.EventType, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.CreatedAt, &ev.Attempts); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// MarkOutboxEventSent помечает событие отправленным
func (r *OutboxRepository) MarkOutboxEventSent(ctx context.Context, eventID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE outbox_events SET status = 'sent', sent_at = now() WHERE event_id = $1`, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkOutboxEventFailed сохраняет ошибку, событие остаётся pending
func (r *OutboxRepository) MarkOutboxEventFailed(ctx context.Context, eventID string, errMsg string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE event_id = $1`, eventID, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

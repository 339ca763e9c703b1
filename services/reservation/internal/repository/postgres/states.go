package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
)

// StateRepository реализует repository.StateRepository поверх reservation_states
type StateRepository struct {
	pool *pgxpool.Pool
}

var _ repository.StateRepository = (*StateRepository)(nil)

// NewStateRepository создаёт репозиторий справочника состояний
func NewStateRepository(pool *pgxpool.Pool) *StateRepository {
	return &StateRepository{pool: pool}
}

// List справочник в порядке ID
func (r *StateRepository) List(ctx context.Context) ([]repository.State, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM reservation_states ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.State, 0)
	for rows.Next() {
		var st repository.State
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// GetByID состояние по ID
func (r *StateRepository) GetByID(ctx context.Context, id int64) (repository.State, error) {
	var st repository.State
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description FROM reservation_states WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.State{}, repository.ErrStateNotFound
		}
		return repository.State{}, err
	}
	return st, nil
}

// GetByNames найденные состояния по именам
func (r *StateRepository) GetByNames(ctx context.Context, names []string) (map[string]repository.State, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description FROM reservation_states WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]repository.State, len(names))
	for rows.Next() {
		var st repository.State
		if err := rows.Scan(&st.ID, &st.Name, &st.Description); err != nil {
			return nil, err
		}
		out[st.Name] = st
	}
	return out, rows.Err()
}

// Create добавляет состояние, дубликат имени - ErrAlreadyExists
func (r *StateRepository) Create(ctx context.Context, name, description string) (repository.State, error) {
	st := repository.State{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reservation_states (name, description) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&st.ID)
	if err != nil {
		return repository.State{}, mapError(err)
	}
	return st, nil
}

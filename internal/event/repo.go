package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"membership/internal/store"
)

// PostgresRepository persists events in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	return e, err
}

// Create inserts an event.
func (r *PostgresRepository) Create(ctx context.Context, e Event) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO events (id, name, event_date)
		VALUES ($1, $2, $3)
		RETURNING id, name, event_date, created_at
	`, e.ID, e.Name, e.Date)
	created, err := scanEvent(row)
	if store.IsUniqueViolation(err) {
		return Event{}, ErrDuplicate
	}
	return created, err
}

// Get returns an event by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `SELECT id, name, event_date, created_at FROM events WHERE id = $1`, id))
}

// GetByName returns an event by name.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (Event, error) {
	return scanEvent(r.db.QueryRowContext(ctx, `SELECT id, name, event_date, created_at FROM events WHERE name = $1`, name))
}

// List returns all events.
func (r *PostgresRepository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, event_date, created_at FROM events ORDER BY event_date, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Update renames and re-dates an event in place.
func (r *PostgresRepository) Update(ctx context.Context, name, newName string, newDate time.Time) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE events SET name = $2, event_date = $3
		WHERE name = $1
		RETURNING id, name, event_date, created_at
	`, name, newName, newDate)
	e, err := scanEvent(row)
	if store.IsUniqueViolation(err) {
		return Event{}, ErrDuplicate
	}
	return e, err
}

// Delete removes an event; attendance rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists attendance rows keyed by (event id, id number).
type Repository interface {
	// RecordSlot fills slot once; a filled slot yields ErrAlreadyRecorded.
	RecordSlot(ctx context.Context, eventID, idNumber string, slot Slot, at time.Time) (Record, error)
	// Get returns nil when the student has no row for the event.
	Get(ctx context.Context, eventID, idNumber string) (*Record, error)
	// ForEvent returns the event's rows keyed by id number.
	ForEvent(ctx context.Context, eventID string) (map[string]Record, error)
	// ForStudent returns the student's rows keyed by event id.
	ForStudent(ctx context.Context, idNumber string) (map[string]Record, error)
	Sheet(ctx context.Context, eventID string) ([]SheetRow, error)
}

// slotColumns whitelists the column names a slot may expand to in SQL.
var slotColumns = map[Slot]string{
	MorningIn:    "morning_in",
	MorningOut:   "morning_out",
	AfternoonIn:  "afternoon_in",
	AfternoonOut: "afternoon_out",
}

// PostgresRepository persists attendance data in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `event_id, id_number, morning_in, morning_out, afternoon_in, afternoon_out`

func scanRecord(row interface{ Scan(...any) error }, extra ...any) (Record, error) {
	var r Record
	dest := append([]any{&r.EventID, &r.IDNumber, &r.MorningIn, &r.MorningOut, &r.AfternoonIn, &r.AfternoonOut}, extra...)
	err := row.Scan(dest...)
	return r, err
}

// RecordSlot inserts the row or fills an empty slot of an existing one.
func (r *PostgresRepository) RecordSlot(ctx context.Context, eventID, idNumber string, slot Slot, at time.Time) (Record, error) {
	slot, err := ParseSlot(string(slot))
	if err != nil {
		return Record{}, err
	}
	col := slotColumns[slot]
	query := fmt.Sprintf(`
		INSERT INTO attendance (event_id, id_number, %[1]s)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, id_number)
		DO UPDATE SET %[1]s = EXCLUDED.%[1]s
		WHERE attendance.%[1]s IS NULL
		RETURNING %[2]s
	`, col, recordColumns)
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, eventID, idNumber, at))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrAlreadyRecorded
	}
	return rec, err
}

// Get returns a single row or nil.
func (r *PostgresRepository) Get(ctx context.Context, eventID, idNumber string) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance WHERE event_id = $1 AND id_number = $2
	`, eventID, idNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ForEvent returns all rows of one event.
func (r *PostgresRepository) ForEvent(ctx context.Context, eventID string) (map[string]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.IDNumber] = rec
	}
	return out, rows.Err()
}

// ForStudent returns all rows of one student.
func (r *PostgresRepository) ForStudent(ctx context.Context, idNumber string) (map[string]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE id_number = $1`, idNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.EventID] = rec
	}
	return out, rows.Err()
}

// Sheet returns an event's rows joined with student names.
func (r *PostgresRepository) Sheet(ctx context.Context, eventID string) ([]SheetRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.event_id, a.id_number, a.morning_in, a.morning_out, a.afternoon_in, a.afternoon_out,
			s.first_name, s.last_name, s.gender
		FROM attendance a
		JOIN students s ON s.id_number = a.id_number
		WHERE a.event_id = $1
		ORDER BY s.last_name, s.first_name
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheet []SheetRow
	for rows.Next() {
		var row SheetRow
		rec, err := scanRecord(rows, &row.FirstName, &row.LastName, &row.Gender)
		if err != nil {
			return nil, err
		}
		row.Record = rec
		sheet = append(sheet, row)
	}
	return sheet, rows.Err()
}

package sanction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"

	"membership/internal/store"
)

// PostgresTierStore keeps tiers in offense_tiers; donations are a JSONB
// array of {item, count} pairs.
type PostgresTierStore struct {
	db *sql.DB
}

// NewPostgresTierStore creates a tier store.
func NewPostgresTierStore(db *sql.DB) *PostgresTierStore {
	return &PostgresTierStore{db: db}
}

// List returns all tiers.
func (s *PostgresTierStore) List(ctx context.Context) ([]Tier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT offense_number, donations, min_absences, max_absences
		FROM offense_tiers ORDER BY offense_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []Tier
	for rows.Next() {
		var t Tier
		var raw []byte
		if err := rows.Scan(&t.OffenseNumber, &raw, &t.MinAbsences, &t.MaxAbsences); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.Donations); err != nil {
			return nil, &ConfigurationError{Field: "donations", Message: err.Error()}
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// Count returns the number of configured tiers.
func (s *PostgresTierStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offense_tiers`).Scan(&n)
	return n, err
}

// Create inserts a tier under its offense number.
func (s *PostgresTierStore) Create(ctx context.Context, t Tier) error {
	raw, err := json.Marshal(t.Donations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO offense_tiers (offense_number, donations, min_absences, max_absences)
		VALUES ($1, $2, $3, $4)
	`, t.OffenseNumber, string(raw), t.MinAbsences, t.MaxAbsences)
	if store.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// Update rewrites every field but the offense number.
func (s *PostgresTierStore) Update(ctx context.Context, t Tier) error {
	raw, err := json.Marshal(t.Donations)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE offense_tiers
		SET donations = $2, min_absences = $3, max_absences = $4, updated_at = NOW()
		WHERE offense_number = $1
	`, t.OffenseNumber, string(raw), t.MinAbsences, t.MaxAbsences)
	return mustAffect(res, err, ErrNotFound)
}

// Delete removes one tier; the others keep their numbers.
func (s *PostgresTierStore) Delete(ctx context.Context, offenseNumber int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offense_tiers WHERE offense_number = $1`, offenseNumber)
	return mustAffect(res, err, ErrNotFound)
}

// PostgresListStore keeps the derived sanction list.
type PostgresListStore struct {
	db *sql.DB
}

// NewPostgresListStore creates a list store.
func NewPostgresListStore(db *sql.DB) *PostgresListStore {
	return &PostgresListStore{db: db}
}

// Reconcile applies every total inside one transaction.
func (s *PostgresListStore) Reconcile(ctx context.Context, totals map[string]int) (Reconciliation, error) {
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var rec Reconciliation
	err := store.InTx(ctx, s.db, func(tx *sql.Tx) error {
		upsert, err := tx.PrepareContext(ctx, `
			INSERT INTO sanction_list (id_number, total_absences)
			VALUES ($1, $2)
			ON CONFLICT (id_number)
			DO UPDATE SET total_absences = EXCLUDED.total_absences, updated_at = NOW()
		`)
		if err != nil {
			return err
		}
		defer upsert.Close()

		remove, err := tx.PrepareContext(ctx, `DELETE FROM sanction_list WHERE id_number = $1`)
		if err != nil {
			return err
		}
		defer remove.Close()

		for _, id := range ids {
			total := totals[id]
			if total > 0 {
				if _, err := upsert.ExecContext(ctx, id, total); err != nil {
					return err
				}
				rec.Sanctioned++
				continue
			}
			res, err := remove.ExecContext(ctx, id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			rec.Cleared += int(n)
		}
		return nil
	})
	if err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

const entryQuery = `
	SELECT sl.id_number, s.student_id, s.first_name, s.last_name, sl.total_absences, sl.updated_at
	FROM sanction_list sl
	JOIN students s ON s.id_number = sl.id_number
`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var e Entry
	err := row.Scan(&e.IDNumber, &e.StudentID, &e.FirstName, &e.LastName, &e.TotalAbsences, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotListed
	}
	return e, err
}

// List returns the entries of students with the student role.
func (s *PostgresListStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, entryQuery+` WHERE s.role = 'student' ORDER BY sl.total_absences DESC, sl.id_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one entry.
func (s *PostgresListStore) Get(ctx context.Context, idNumber string) (Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, entryQuery+` WHERE sl.id_number = $1`, idNumber))
}

// Delete removes one entry.
func (s *PostgresListStore) Delete(ctx context.Context, idNumber string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sanction_list WHERE id_number = $1`, idNumber)
	return mustAffect(res, err, ErrNotListed)
}

func mustAffect(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

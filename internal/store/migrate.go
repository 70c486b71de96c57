package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently on startup and by `admin migrate`.
// Attendance is a single table keyed by (event_id, id_number); events never
// own a table of their own.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		student_id    BIGSERIAL PRIMARY KEY,
		id_number     TEXT UNIQUE NOT NULL,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		gender        TEXT NOT NULL,
		email         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('admin', 'student')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		id_number  TEXT NOT NULL REFERENCES students(id_number) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         UUID PRIMARY KEY,
		name       TEXT UNIQUE NOT NULL CHECK (name ~ '^[A-Za-z0-9_]+$'),
		event_date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		event_id      UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		id_number     TEXT NOT NULL REFERENCES students(id_number) ON DELETE CASCADE,
		morning_in    TIMESTAMPTZ,
		morning_out   TIMESTAMPTZ,
		afternoon_in  TIMESTAMPTZ,
		afternoon_out TIMESTAMPTZ,
		PRIMARY KEY (event_id, id_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(id_number)`,
	`CREATE TABLE IF NOT EXISTS offense_tiers (
		offense_number INT PRIMARY KEY CHECK (offense_number > 0),
		donations      JSONB NOT NULL DEFAULT '[]',
		min_absences   INT NOT NULL CHECK (min_absences >= 0),
		max_absences   INT NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sanction_list (
		id_number      TEXT PRIMARY KEY REFERENCES students(id_number) ON DELETE CASCADE,
		total_absences INT NOT NULL CHECK (total_absences > 0),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id_number      TEXT PRIMARY KEY REFERENCES students(id_number) ON DELETE CASCADE,
		status         TEXT NOT NULL CHECK (status IN ('paid', 'not paid')),
		method         TEXT NOT NULL DEFAULT 'onsite' CHECK (method IN ('onsite', 'online')),
		receipt_number TEXT,
		receipt_date   DATE,
		receipt_url    TEXT,
		checkout_url   TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates missing tables and indexes.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

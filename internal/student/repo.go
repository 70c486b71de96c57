package student

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"membership/internal/store"
)

// PostgresRepository persists students in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const studentColumns = `student_id, id_number, first_name, last_name, gender, email, password_hash, role, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.StudentID, &s.IDNumber, &s.FirstName, &s.LastName, &s.Gender, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return s, err
}

// Create inserts a student and returns it with its surrogate key.
func (r *PostgresRepository) Create(ctx context.Context, s Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id_number, first_name, last_name, gender, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+studentColumns,
		s.IDNumber, s.FirstName, s.LastName, s.Gender, s.Email, s.PasswordHash, s.Role)
	created, err := scanStudent(row)
	if store.IsUniqueViolation(err) {
		return Student{}, ErrDuplicate
	}
	return created, err
}

// Get returns a student by id number.
func (r *PostgresRepository) Get(ctx context.Context, idNumber string) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id_number = $1`, idNumber))
}

// GetByEmail returns a student by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email))
}

// List returns all students.
func (r *PostgresRepository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY id_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// IDNumbers returns the id number of every student.
func (r *PostgresRepository) IDNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id_number FROM students ORDER BY id_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update writes every mutable field.
func (r *PostgresRepository) Update(ctx context.Context, s Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET first_name = $2, last_name = $3, gender = $4, email = $5, role = $6, password_hash = $7, updated_at = NOW()
		WHERE id_number = $1
	`, s.IDNumber, s.FirstName, s.LastName, s.Gender, s.Email, s.Role, s.PasswordHash)
	if store.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return affected(res, err)
}

// UpdatePassword replaces the stored hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, idNumber, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE students SET password_hash = $2, updated_at = NOW() WHERE id_number = $1`, idNumber, hash)
	return affected(res, err)
}

// Delete removes a student; dependent rows go with it.
func (r *PostgresRepository) Delete(ctx context.Context, idNumber string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id_number = $1`, idNumber)
	return affected(res, err)
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *PostgresRepository) SaveRefreshToken(ctx context.Context, idNumber, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, id_number, expires_at)
		VALUES ($1, $2, $3)
	`, token, idNumber, expiresAt)
	return err
}

// ConsumeRefreshToken marks an active token revoked and returns its owner.
func (r *PostgresRepository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error) {
	var idNumber string
	err := r.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND NOT revoked AND expires_at > $2
		RETURNING id_number
	`, token, now).Scan(&idNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return idNumber, err
}

func affected(res sql.Result, err error) error {
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

package payment

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepository persists payments in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const paymentColumns = `id_number, status, method, COALESCE(receipt_number, ''), receipt_date, COALESCE(receipt_url, ''), COALESCE(checkout_url, ''), created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(&p.IDNumber, &p.Status, &p.Method, &p.ReceiptNumber, &p.ReceiptDate, &p.ReceiptURL, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Save inserts or replaces a student's payment.
func (r *PostgresRepository) Save(ctx context.Context, p Payment) (Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `
		INSERT INTO payments (id_number, status, method, receipt_number, receipt_date, receipt_url, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id_number) DO UPDATE SET
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			receipt_number = EXCLUDED.receipt_number,
			receipt_date = EXCLUDED.receipt_date,
			receipt_url = COALESCE(EXCLUDED.receipt_url, payments.receipt_url),
			checkout_url = EXCLUDED.checkout_url,
			updated_at = NOW()
		RETURNING `+paymentColumns,
		p.IDNumber, p.Status, p.Method, nullable(p.ReceiptNumber), p.ReceiptDate, nullable(p.ReceiptURL), nullable(p.CheckoutURL)))
}

// Get returns a student's payment.
func (r *PostgresRepository) Get(ctx context.Context, idNumber string) (Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id_number = $1`, idNumber))
}

// Delete removes a student's payment and returns the deleted row.
func (r *PostgresRepository) Delete(ctx context.Context, idNumber string) (Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx, `DELETE FROM payments WHERE id_number = $1 RETURNING `+paymentColumns, idNumber))
}

// SetReceiptURL links an uploaded receipt image.
func (r *PostgresRepository) SetReceiptURL(ctx context.Context, idNumber, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET receipt_url = $2, updated_at = NOW() WHERE id_number = $1`, idNumber, url)
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

// List returns every student left-joined with payments.
func (r *PostgresRepository) List(ctx context.Context) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.student_id, s.id_number, s.first_name, s.last_name,
			p.status, p.method, COALESCE(p.receipt_number, ''), p.receipt_date,
			COALESCE(p.receipt_url, ''), COALESCE(p.checkout_url, ''), p.created_at, p.updated_at
		FROM students s
		LEFT JOIN payments p ON p.id_number = s.id_number
		ORDER BY s.id_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var (
			status, method *string
			p              Payment
			created        sql.NullTime
			updated        sql.NullTime
		)
		if err := rows.Scan(&row.StudentID, &row.IDNumber, &row.FirstName, &row.LastName,
			&status, &method, &p.ReceiptNumber, &p.ReceiptDate, &p.ReceiptURL, &p.CheckoutURL, &created, &updated); err != nil {
			return nil, err
		}
		if status != nil {
			p.IDNumber = row.IDNumber
			p.Status = Status(*status)
			p.Method = Method(*method)
			p.CreatedAt = created.Time
			p.UpdatedAt = updated.Time
			row.Payment = &p
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("payment record not found")
	ErrAlreadyPaid   = errors.New("membership fee already paid")
	ErrInvalidStatus = errors.New("status must be 'paid' or 'not paid'")
	ErrNoUploader    = errors.New("receipt storage not configured")
	ErrNoGateway     = errors.New("online payment not configured")
)

// UpstreamError wraps a failure of the checkout gateway or receipt storage.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Status of a membership fee payment.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusNotPaid Status = "not paid"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPaid || s == StatusNotPaid
}

// Method is how the fee was or will be paid.
type Method string

const (
	MethodOnsite Method = "onsite"
	MethodOnline Method = "online"
)

// Payment is the single membership fee record of a student.
type Payment struct {
	IDNumber      string     `json:"id_number"`
	Status        Status     `json:"status"`
	Method        Method     `json:"method"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
	ReceiptDate   *time.Time `json:"receipt_date,omitempty"`
	ReceiptURL    string     `json:"receipt_url,omitempty"`
	CheckoutURL   string     `json:"checkout_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Row is a roster line with the student's payment, if any.
type Row struct {
	StudentID int64    `json:"student_id"`
	IDNumber  string   `json:"id_number"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Payment   *Payment `json:"payment"`
}

// Repository persists payments, one per student.
type Repository interface {
	// Save inserts or replaces the student's record.
	Save(ctx context.Context, p Payment) (Payment, error)
	Get(ctx context.Context, idNumber string) (Payment, error)
	Delete(ctx context.Context, idNumber string) (Payment, error)
	SetReceiptURL(ctx context.Context, idNumber, url string) error
	// List returns every student left-joined with their payment.
	List(ctx context.Context) ([]Row, error)
}

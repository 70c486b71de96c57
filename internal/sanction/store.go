package sanction

import (
	"context"
	"time"
)

// Entry is a student currently on the sanction list.
type Entry struct {
	IDNumber      string    `json:"id_number"`
	StudentID     int64     `json:"student_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	TotalAbsences int       `json:"total_absences"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reconciliation counts what a reconcile wrote.
type Reconciliation struct {
	Sanctioned int
	Cleared    int
}

// ListStore persists the derived sanction list.
type ListStore interface {
	// Reconcile upserts every positive total and deletes every zero total in
	// one transaction.
	Reconcile(ctx context.Context, totals map[string]int) (Reconciliation, error)
	// List returns entries of students with the student role.
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, idNumber string) (Entry, error)
	Delete(ctx context.Context, idNumber string) error
}

// TierStore persists offense tiers.
type TierStore interface {
	// List returns tiers by ascending offense number.
	List(ctx context.Context) ([]Tier, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, t Tier) error
	Update(ctx context.Context, t Tier) error
	Delete(ctx context.Context, offenseNumber int) error
}

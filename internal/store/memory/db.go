// Package memory is an in-process implementation of every repository,
// used by STORAGE_BACKEND=memory and by tests.
package memory

import (
	"sync"
	"time"

	"membership/internal/attendance"
	"membership/internal/event"
	"membership/internal/payment"
	"membership/internal/sanction"
	"membership/internal/student"
)

type refreshToken struct {
	idNumber  string
	expiresAt time.Time
	revoked   bool
}

type attendanceKey struct {
	eventID  string
	idNumber string
}

// DB holds all tables behind one lock so cascades and joins stay consistent.
type DB struct {
	mu sync.RWMutex

	pk        int64
	students  map[string]*student.Student
	tokens    map[string]*refreshToken
	events    map[string]*event.Event
	records   map[attendanceKey]*attendance.Record
	tiers     map[int]sanction.Tier
	sanctions map[string]*sanction.Entry
	payments  map[string]*payment.Payment

	now func() time.Time
}

// New creates an empty database.
func New() *DB {
	return &DB{
		students:  make(map[string]*student.Student),
		tokens:    make(map[string]*refreshToken),
		events:    make(map[string]*event.Event),
		records:   make(map[attendanceKey]*attendance.Record),
		tiers:     make(map[int]sanction.Tier),
		sanctions: make(map[string]*sanction.Entry),
		payments:  make(map[string]*payment.Payment),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Students returns the student repository.
func (db *DB) Students() *StudentRepository { return &StudentRepository{db: db} }

// Events returns the event repository.
func (db *DB) Events() *EventRepository { return &EventRepository{db: db} }

// Attendance returns the attendance repository.
func (db *DB) Attendance() *AttendanceRepository { return &AttendanceRepository{db: db} }

// Tiers returns the offense tier store.
func (db *DB) Tiers() *TierStore { return &TierStore{db: db} }

// Sanctions returns the sanction list store.
func (db *DB) Sanctions() *ListStore { return &ListStore{db: db} }

// Payments returns the payment repository.
func (db *DB) Payments() *PaymentRepository { return &PaymentRepository{db: db} }

var (
	_ student.Repository    = (*StudentRepository)(nil)
	_ event.Repository      = (*EventRepository)(nil)
	_ attendance.Repository = (*AttendanceRepository)(nil)
	_ sanction.TierStore    = (*TierStore)(nil)
	_ sanction.ListStore    = (*ListStore)(nil)
	_ payment.Repository    = (*PaymentRepository)(nil)
)

package event

import (
	"context"
	"errors"
	"regexp"
	"time"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrDuplicate   = errors.New("event name already taken")
	ErrInvalidName = errors.New("invalid event name: use letters, digits and '_' instead of spaces")
	ErrMissingDate = errors.New("event date is required")
)

// DateLayout is the wire format of event dates.
const DateLayout = "2006-01-02"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidName reports whether name only uses letters, digits and underscores.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Event is an attendance-taking session. ID is stable across renames.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DateString formats the event date for responses.
func (e Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrMissingDate
	}
	return time.Parse(DateLayout, s)
}

// Repository persists the event registry.
type Repository interface {
	Create(ctx context.Context, e Event) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	GetByName(ctx context.Context, name string) (Event, error)
	List(ctx context.Context) ([]Event, error)
	Update(ctx context.Context, name, newName string, newDate time.Time) (Event, error)
	Delete(ctx context.Context, name string) error
}

package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service manages the event registry.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create registers an event under a fresh surrogate id.
func (s *Service) Create(ctx context.Context, name string, date time.Time) (Event, error) {
	if !ValidName(name) {
		return Event{}, ErrInvalidName
	}
	if date.IsZero() {
		return Event{}, ErrMissingDate
	}
	evt, err := s.repo.Create(ctx, Event{ID: uuid.NewString(), Name: name, Date: date})
	if err != nil {
		return Event{}, err
	}
	s.log.Info().Str("event", evt.Name).Str("date", evt.DateString()).Msg("event created")
	return evt, nil
}

// Update renames and re-dates an event. Attendance follows the event id.
func (s *Service) Update(ctx context.Context, name, newName string, newDate time.Time) (Event, error) {
	if !ValidName(name) || !ValidName(newName) {
		return Event{}, ErrInvalidName
	}
	if newDate.IsZero() {
		return Event{}, ErrMissingDate
	}
	evt, err := s.repo.Update(ctx, name, newName, newDate)
	if err != nil {
		return Event{}, err
	}
	s.log.Info().Str("event", name).Str("new_name", newName).Msg("event updated")
	return evt, nil
}

// Delete removes an event and its attendance rows.
func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info().Str("event", name).Msg("event deleted")
	return nil
}

// Get returns an event by name.
func (s *Service) Get(ctx context.Context, name string) (Event, error) {
	return s.repo.GetByName(ctx, name)
}

// List returns every event ordered by date.
func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

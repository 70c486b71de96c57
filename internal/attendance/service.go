package attendance

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"membership/internal/event"
	"membership/internal/queue"
	"membership/internal/student"
)

// StudentLookup resolves id numbers scanned at the door.
type StudentLookup interface {
	Get(ctx context.Context, idNumber string) (student.Student, error)
}

// EventLookup resolves events by name.
type EventLookup interface {
	Get(ctx context.Context, name string) (event.Event, error)
	List(ctx context.Context) ([]event.Event, error)
}

// Service records scans and serves attendance views.
type Service struct {
	repo     Repository
	students StudentLookup
	events   EventLookup
	notify   queue.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a service. notify may be nil; when set, every recorded
// slot publishes a recompute request.
func NewService(repo Repository, students StudentLookup, events EventLookup, notify queue.Publisher, log zerolog.Logger) *Service {
	return &Service{repo: repo, students: students, events: events, notify: notify, log: log, now: time.Now}
}

// Record stores a scan for slot, which may be in any form ParseSlot accepts.
// A zero at means now.
func (s *Service) Record(ctx context.Context, eventName, idNumber string, slot Slot, at time.Time) (Record, error) {
	slot, err := ParseSlot(string(slot))
	if err != nil {
		return Record{}, err
	}
	evt, err := s.events.Get(ctx, eventName)
	if err != nil {
		return Record{}, err
	}
	if _, err := s.students.Get(ctx, idNumber); err != nil {
		return Record{}, err
	}
	if at.IsZero() {
		at = s.now()
	}

	rec, err := s.repo.RecordSlot(ctx, evt.ID, idNumber, slot, at.UTC())
	if err != nil {
		return Record{}, err
	}
	s.log.Debug().Str("event", evt.Name).Str("id_number", idNumber).Str("slot", string(slot)).Msg("attendance recorded")

	if s.notify != nil {
		if err := s.notify.Publish(ctx, queue.NewRecompute("attendance:"+evt.Name)); err != nil {
			s.log.Warn().Err(err).Msg("recompute request not published")
		}
	}
	return rec, nil
}

// Sheet returns the event and its rows joined with student names.
func (s *Service) Sheet(ctx context.Context, eventName string) (event.Event, []SheetRow, error) {
	evt, err := s.events.Get(ctx, eventName)
	if err != nil {
		return event.Event{}, nil, err
	}
	rows, err := s.repo.Sheet(ctx, evt.ID)
	if err != nil {
		return event.Event{}, nil, err
	}
	return evt, rows, nil
}

// ForStudent returns the student's attendance at every known event,
// including events with no row.
func (s *Service) ForStudent(ctx context.Context, idNumber string) ([]StudentEvent, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ForStudent(ctx, idNumber)
	if err != nil {
		return nil, err
	}

	history := make([]StudentEvent, 0, len(events))
	for _, evt := range events {
		item := StudentEvent{EventID: evt.ID, EventName: evt.Name, EventDate: evt.Date}
		if rec, ok := rows[evt.ID]; ok {
			rec := rec
			item.Record = &rec
		}
		item.Absences = Absences(item.Record)
		history = append(history, item)
	}
	return history, nil
}

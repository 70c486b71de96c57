package memory

import (
	"context"
	"sort"
	"time"

	"membership/internal/event"
)

// EventRepository keeps events in memory, keyed by id.
type EventRepository struct {
	db *DB
}

func (r *EventRepository) byName(name string) *event.Event {
	for _, e := range r.db.events {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, e event.Event) (event.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[e.ID]; ok || r.byName(e.Name) != nil {
		return event.Event{}, event.ErrDuplicate
	}
	e.CreatedAt = r.db.now()
	r.db.events[e.ID] = &e
	return e, nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (event.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if e, ok := r.db.events[id]; ok {
		return *e, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (r *EventRepository) GetByName(ctx context.Context, name string) (event.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if e := r.byName(name); e != nil {
		return *e, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (r *EventRepository) List(ctx context.Context) ([]event.Event, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]event.Event, 0, len(r.db.events))
	for _, e := range r.db.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *EventRepository) Update(ctx context.Context, name, newName string, newDate time.Time) (event.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e := r.byName(name)
	if e == nil {
		return event.Event{}, event.ErrNotFound
	}
	if other := r.byName(newName); other != nil && other.ID != e.ID {
		return event.Event{}, event.ErrDuplicate
	}
	e.Name = newName
	e.Date = newDate
	return *e, nil
}

// Delete removes the event and its attendance rows.
func (r *EventRepository) Delete(ctx context.Context, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e := r.byName(name)
	if e == nil {
		return event.ErrNotFound
	}
	delete(r.db.events, e.ID)
	for k := range r.db.records {
		if k.eventID == e.ID {
			delete(r.db.records, k)
		}
	}
	return nil
}

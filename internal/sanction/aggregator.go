package sanction

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"membership/internal/attendance"
	"membership/internal/event"
	"membership/internal/store"
)

// StudentDirectory lists the roster.
type StudentDirectory interface {
	IDNumbers(ctx context.Context) ([]string, error)
}

// EventRegistry lists known events.
type EventRegistry interface {
	List(ctx context.Context) ([]event.Event, error)
}

// AttendanceSource reads one event's rows keyed by id number.
type AttendanceSource interface {
	ForEvent(ctx context.Context, eventID string) (map[string]attendance.Record, error)
}

// Locker serializes runs across processes. Acquire returns store.ErrLockHeld
// when another process holds the lock.
type Locker interface {
	Acquire(ctx context.Context) (func(), error)
}

// Observer receives run outcomes, typically Prometheus collectors.
type Observer interface {
	ObserveRecompute(d time.Duration, err error)
	SetSanctioned(n int)
}

// Result summarizes one recompute.
type Result struct {
	Students   int           `json:"students"`
	Events     int           `json:"events"`
	Sanctioned int           `json:"sanctioned"`
	Cleared    int           `json:"cleared"`
	Duration   time.Duration `json:"duration_ns"`
	Shared     bool          `json:"shared"`
}

// Aggregator recomputes every student's absence total and reconciles the
// sanction list. A run either commits the complete new list or nothing.
type Aggregator struct {
	students   StudentDirectory
	events     EventRegistry
	attendance AttendanceSource
	list       ListStore
	lock       Locker
	observer   Observer
	group      singleflight.Group
	timeout    time.Duration
	log        zerolog.Logger
}

// DefaultRunTimeout bounds a single recompute.
const DefaultRunTimeout = 5 * time.Minute

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLocker guards runs with a cross-process lock.
func WithLocker(l Locker) Option {
	return func(a *Aggregator) { a.lock = l }
}

// WithTimeout bounds each run. Runs are detached from the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithObserver reports run outcomes.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observer = o }
}

// NewAggregator wires the aggregator to its collaborators.
func NewAggregator(students StudentDirectory, events EventRegistry, att AttendanceSource, list ListStore, log zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{students: students, events: events, attendance: att, list: list, timeout: DefaultRunTimeout, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Totals computes the absence units of every student across every event
// without writing anything.
func (a *Aggregator) Totals(ctx context.Context) (map[string]int, int, error) {
	ids, err := a.students.IDNumbers(ctx)
	if err != nil {
		return nil, 0, err
	}
	events, err := a.events.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	totals := make(map[string]int, len(ids))
	for _, id := range ids {
		totals[id] = 0
	}
	for _, evt := range events {
		rows, err := a.attendance.ForEvent(ctx, evt.ID)
		if err != nil {
			return nil, 0, &LookupError{EventID: evt.ID, EventName: evt.Name, Err: err}
		}
		for _, id := range ids {
			var rec *attendance.Record
			if r, ok := rows[id]; ok {
				rec = &r
			}
			totals[id] += attendance.Absences(rec)
		}
	}
	return totals, len(events), nil
}

// Recompute runs a full recomputation. Concurrent callers in this process
// share a single run; a run held by another process yields
// ErrRecomputeInProgress.
func (a *Aggregator) Recompute(ctx context.Context) (Result, error) {
	ch := a.group.DoChan("recompute", func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.run(runCtx)
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		res.Shared = r.Shared
		return res, nil
	}
}

func (a *Aggregator) run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if a.observer != nil && !errors.Is(err, ErrRecomputeInProgress) {
			a.observer.ObserveRecompute(res.Duration, err)
		}
	}()

	if a.lock != nil {
		release, lerr := a.lock.Acquire(ctx)
		if errors.Is(lerr, store.ErrLockHeld) {
			return Result{}, ErrRecomputeInProgress
		}
		if lerr != nil {
			return Result{}, lerr
		}
		defer release()
	}

	totals, events, err := a.Totals(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("sanction recompute aborted")
		return Result{}, err
	}

	rec, err := a.list.Reconcile(ctx, totals)
	if err != nil {
		a.log.Error().Err(err).Msg("sanction list reconcile failed")
		return Result{}, err
	}
	if a.observer != nil {
		a.observer.SetSanctioned(rec.Sanctioned)
	}

	res = Result{Students: len(totals), Events: events, Sanctioned: rec.Sanctioned, Cleared: rec.Cleared}
	a.log.Info().
		Int("students", res.Students).
		Int("events", res.Events).
		Int("sanctioned", res.Sanctioned).
		Int("cleared", res.Cleared).
		Dur("took", time.Since(start)).
		Msg("sanction list recomputed")
	return res, nil
}

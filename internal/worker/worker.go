// Package worker drains recompute requests from the queue.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"membership/internal/queue"
	"membership/internal/sanction"
)

// Recomputer rebuilds the sanction list.
type Recomputer interface {
	Recompute(ctx context.Context) (sanction.Result, error)
}

// Worker coalesces bursts of recompute requests into single runs.
type Worker struct {
	recomputer Recomputer
	grace      time.Duration
	log        zerolog.Logger
}

// New creates a worker. Requests arriving within grace of each other share
// one run.
func New(r Recomputer, grace time.Duration, log zerolog.Logger) *Worker {
	return &Worker{recomputer: r, grace: grace, log: log}
}

// Run consumes msgs until the channel closes or ctx ends.
func (w *Worker) Run(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if msg.Type != queue.TypeRecompute {
				w.log.Warn().Str("type", msg.Type).Msg("ignoring unknown message")
				continue
			}
			n, open := w.drain(ctx, msgs)
			w.recompute(ctx, string(msg.Body), n+1)
			if !open {
				return
			}
		}
	}
}

// drain swallows further requests until grace passes without one.
func (w *Worker) drain(ctx context.Context, msgs <-chan queue.Message) (int, bool) {
	if w.grace <= 0 {
		return 0, true
	}
	n := 0
	timer := time.NewTimer(w.grace)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return n, true
		case <-timer.C:
			return n, true
		case msg, ok := <-msgs:
			if !ok {
				return n, false
			}
			if msg.Type == queue.TypeRecompute {
				n++
			}
			timer.Reset(w.grace)
		}
	}
}

func (w *Worker) recompute(ctx context.Context, reason string, requests int) {
	if ctx.Err() != nil {
		return
	}
	res, err := w.recomputer.Recompute(ctx)
	switch {
	case errors.Is(err, sanction.ErrRecomputeInProgress):
		w.log.Info().Str("reason", reason).Msg("recompute already running elsewhere")
	case err != nil:
		w.log.Error().Err(err).Str("reason", reason).Msg("recompute failed")
	default:
		w.log.Info().
			Str("reason", reason).
			Int("requests", requests).
			Int("sanctioned", res.Sanctioned).
			Int("cleared", res.Cleared).
			Dur("took", res.Duration).
			Msg("sanction list recomputed")
	}
}

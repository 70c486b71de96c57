// Package app wires storage, queues and services from config. The API,
// worker and admin binaries share it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"membership/internal/attendance"
	"membership/internal/config"
	"membership/internal/event"
	"membership/internal/metrics"
	"membership/internal/payment"
	"membership/internal/queue"
	"membership/internal/sanction"
	"membership/internal/store"
	"membership/internal/store/memory"
	"membership/internal/student"
)

const recomputeLockKey = "membership:recompute-lock"

// Backend holds the repositories of the selected storage backend.
type Backend struct {
	Students   student.Repository
	Events     event.Repository
	Attendance attendance.Repository
	Tiers      sanction.TierStore
	Sanctions  sanction.ListStore
	Payments   payment.Repository

	DB    *store.DB
	Redis *store.Redis
	Queue queue.Queue
}

// Open connects the configured storage, redis and queue backends.
func Open(ctx context.Context, cfg config.App, log zerolog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.StorageBackend {
	case "memory":
		mem := memory.New()
		b.Students = mem.Students()
		b.Events = mem.Events()
		b.Attendance = mem.Attendance()
		b.Tiers = mem.Tiers()
		b.Sanctions = mem.Sanctions()
		b.Payments = mem.Payments()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	case "postgres", "":
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		b.DB = db
		b.Students = student.NewPostgresRepository(db.Client)
		b.Events = event.NewPostgresRepository(db.Client)
		b.Attendance = attendance.NewPostgresRepository(db.Client)
		b.Tiers = sanction.NewPostgresTierStore(db.Client)
		b.Sanctions = sanction.NewPostgresListStore(db.Client)
		b.Payments = payment.NewPostgresRepository(db.Client)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.NeedsRedis() {
		b.Redis = store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		if !b.Redis.Healthy(ctx) {
			log.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable")
		}
	}

	if cfg.QueueBackend == "memory" {
		b.Queue = queue.NewInMemory(64)
	} else {
		b.Queue = queue.NewRedisQueue(b.Redis.Client, cfg.QueueKey, log.With().Str("component", "queue").Logger())
	}
	return b, nil
}

// Close releases every connection.
func (b *Backend) Close() {
	if b.DB != nil {
		_ = b.DB.Close()
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
}

// Services are the domain services built over a Backend.
type Services struct {
	Students   *student.Service
	Events     *event.Service
	Attendance *attendance.Service
	Sanctions  *sanction.Service
	Aggregator *sanction.Aggregator
	Payments   *payment.Service
}

// Options carries the optional collaborators of Services.
type Options struct {
	Metrics  *metrics.Metrics
	Gateway  payment.Gateway
	Uploader payment.Uploader
}

// Services builds every domain service. Recording attendance publishes a
// recompute request only when AutoRecompute is on.
func (b *Backend) Services(cfg config.App, log zerolog.Logger, opts Options) Services {
	students := student.NewService(b.Students, cfg.BcryptCost, log.With().Str("component", "student").Logger())
	events := event.NewService(b.Events, log.With().Str("component", "event").Logger())

	var notify queue.Publisher
	if cfg.AutoRecompute {
		notify = b.Queue
	}
	att := attendance.NewService(b.Attendance, students, events, notify, log.With().Str("component", "attendance").Logger())

	var aggOpts []sanction.Option
	if b.Redis != nil {
		aggOpts = append(aggOpts, sanction.WithLocker(store.NewLock(b.Redis.Client, recomputeLockKey, cfg.RecomputeLock)))
	}
	if opts.Metrics != nil {
		aggOpts = append(aggOpts, sanction.WithObserver(opts.Metrics))
	}
	sanctionLog := log.With().Str("component", "sanction").Logger()

	return Services{
		Students:   students,
		Events:     events,
		Attendance: att,
		Sanctions:  sanction.NewService(b.Tiers, b.Sanctions, att, sanctionLog),
		Aggregator: sanction.NewAggregator(students, events, b.Attendance, b.Sanctions, sanctionLog, aggOpts...),
		Payments:   payment.NewService(b.Payments, students, opts.Gateway, opts.Uploader, cfg.MembershipFee, log.With().Str("component", "payment").Logger()),
	}
}

package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership/internal/attendance"
	"membership/internal/config"
	"membership/internal/queue"
	"membership/internal/student"
)

func memoryConfig() config.App {
	return config.App{
		StorageBackend:   "memory",
		QueueBackend:     "memory",
		RateLimitBackend: "memory",
		BcryptCost:       4,
		MembershipFee:    10000,
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	b, err := Open(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.Nil(t, b.DB)
	assert.Nil(t, b.Redis)
	assert.IsType(t, &queue.InMemory{}, b.Queue)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageBackend = "sqlite"
	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestServicesRecomputeEndToEnd(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	svc := b.Services(memoryConfig(), zerolog.Nop(), Options{})

	_, err = svc.Students.Register(ctx, student.Registration{
		FirstName: "Ana", LastName: "Cruz", Gender: "F",
		IDNumber: "20210001", Email: "ana@example.com", Password: "secret",
	})
	require.NoError(t, err)
	_, err = svc.Events.Create(ctx, "General_Assembly", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	res, err := svc.Aggregator.Recompute(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sanctioned)

	entry, err := svc.Sanctions.Entry(ctx, "20210001")
	require.NoError(t, err)
	assert.Equal(t, 4, entry.TotalAbsences)
}

func TestAutoRecomputePublishes(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	cfg.AutoRecompute = true
	b, err := Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	svc := b.Services(cfg, zerolog.Nop(), Options{})

	_, err = svc.Students.Register(ctx, student.Registration{
		FirstName: "Ben", LastName: "Reyes", Gender: "M",
		IDNumber: "20210002", Email: "ben@example.com", Password: "secret",
	})
	require.NoError(t, err)
	_, err = svc.Events.Create(ctx, "Orientation", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	msgs, err := b.Queue.Consume(ctx)
	require.NoError(t, err)

	_, err = svc.Attendance.Record(ctx, "Orientation", "20210002", attendance.MorningIn, time.Now())
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.Equal(t, queue.TypeRecompute, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("no recompute request published")
	}
}

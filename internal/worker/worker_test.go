package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"membership/internal/queue"
	"membership/internal/sanction"
)

type countingRecomputer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingRecomputer) Recompute(context.Context) (sanction.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return sanction.Result{Sanctioned: 1}, c.err
}

func (c *countingRecomputer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestBurstCoalescesIntoOneRun(t *testing.T) {
	rec := &countingRecomputer{}
	msgs := make(chan queue.Message, 10)
	for i := 0; i < 5; i++ {
		msgs <- queue.NewRecompute("attendance:assembly")
	}
	close(msgs)

	New(rec, 20*time.Millisecond, zerolog.Nop()).Run(context.Background(), msgs)

	assert.Equal(t, 1, rec.Calls())
}

func TestSeparateBurstsRunSeparately(t *testing.T) {
	rec := &countingRecomputer{}
	msgs := make(chan queue.Message)
	done := make(chan struct{})
	go func() {
		New(rec, 10*time.Millisecond, zerolog.Nop()).Run(context.Background(), msgs)
		close(done)
	}()

	msgs <- queue.NewRecompute("first")
	assert.Eventually(t, func() bool { return rec.Calls() == 1 }, time.Second, 5*time.Millisecond)
	msgs <- queue.NewRecompute("second")
	assert.Eventually(t, func() bool { return rec.Calls() == 2 }, time.Second, 5*time.Millisecond)

	close(msgs)
	<-done
}

func TestUnknownMessagesIgnored(t *testing.T) {
	rec := &countingRecomputer{}
	msgs := make(chan queue.Message, 2)
	msgs <- queue.Message{Type: "checkin"}
	close(msgs)

	New(rec, 0, zerolog.Nop()).Run(context.Background(), msgs)

	assert.Zero(t, rec.Calls())
}

func TestFailuresDoNotStopWorker(t *testing.T) {
	rec := &countingRecomputer{err: errors.New("db down")}
	msgs := make(chan queue.Message)
	done := make(chan struct{})
	go func() {
		New(rec, 0, zerolog.Nop()).Run(context.Background(), msgs)
		close(done)
	}()

	msgs <- queue.NewRecompute("a")
	msgs <- queue.NewRecompute("b")
	close(msgs)
	<-done

	assert.Equal(t, 2, rec.Calls())
}

func TestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(&countingRecomputer{}, time.Second, zerolog.Nop()).Run(ctx, make(chan queue.Message))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collectingPublisher struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (p *collectingPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *collectingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// stuckPublisher behaves like an unresponsive broker: each send waits until
// released or its context ends.
type stuckPublisher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStuckPublisher() *stuckPublisher {
	return &stuckPublisher{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (p *stuckPublisher) Publish(ctx context.Context, _ Event) error {
	p.started <- struct{}{}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *stuckPublisher) Close() error { return nil }

func (p *stuckPublisher) unblock() { p.once.Do(func() { close(p.release) }) }

func TestDispatcherDeliversInOrder(t *testing.T) {
	next := &collectingPublisher{}
	d := NewDispatcher(next, 8, time.Second, discardLog())

	for _, typ := range []string{WorkoutCreated, WorkoutUpdated, WorkoutDeleted} {
		require.NoError(t, d.Publish(context.Background(), Event{Type: typ}))
	}
	require.NoError(t, d.Close())

	require.True(t, next.closed)
	require.Len(t, next.events, 3)
	require.Equal(t, WorkoutCreated, next.events[0].Type)
	require.Equal(t, WorkoutDeleted, next.events[2].Type)
}

// TestDispatcherDoesNotWaitForBroker verifies Publish returns while the
// broker is unresponsive and reports a full queue instead of blocking.
func TestDispatcherDoesNotWaitForBroker(t *testing.T) {
	next := newStuckPublisher()
	d := NewDispatcher(next, 1, time.Minute, discardLog())
	t.Cleanup(func() {
		next.unblock()
		require.NoError(t, d.Close())
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: WorkoutCreated}))
	<-next.started

	require.NoError(t, d.Publish(context.Background(), Event{Type: WorkoutUpdated}))
	require.ErrorIs(t, d.Publish(context.Background(), Event{Type: WorkoutDeleted}), ErrQueueFull)
}

func TestDispatcherSendTimeout(t *testing.T) {
	next := newStuckPublisher()
	d := NewDispatcher(next, 4, 20*time.Millisecond, discardLog())

	require.NoError(t, d.Publish(context.Background(), Event{Type: WorkoutCreated}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: WorkoutUpdated}))

	start := time.Now()
	require.NoError(t, d.Close())
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestDispatcherClosed(t *testing.T) {
	d := NewDispatcher(&collectingPublisher{}, 0, 0, nil)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.ErrorIs(t, d.Publish(context.Background(), Event{Type: WorkoutCreated}), ErrClosed)
}

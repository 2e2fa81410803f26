package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 5 * time.Second
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event dispatcher closed")
)

// Dispatcher queues events and delivers them to another Publisher from its
// own goroutine. Publish never waits on the broker; when the queue is full
// the event is dropped and ErrQueueFull returned.
type Dispatcher struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher starts delivering to next. Each send is bounded by timeout.
func NewDispatcher(next Publisher, queueSize int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		next:    next,
		queue:   make(chan Event, queueSize),
		timeout: timeout,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues e. The caller's context is not used for delivery, which
// outlives the request that produced the event.
func (d *Dispatcher) Publish(_ context.Context, e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and gives queued ones one send timeout to
// drain before abandoning them. It then closes the wrapped publisher.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-time.After(d.timeout):
		d.cancel()
		<-d.done
	}
	d.cancel()
	return d.next.Close()
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		err := d.next.Publish(ctx, e)
		cancel()
		if err != nil {
			d.log.Warn("delivering event", "type", e.Type, "workout_id", e.WorkoutID, "error", err)
		}
	}
}

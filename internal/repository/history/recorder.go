package history

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Inserter persists a single event.
type Inserter interface {
	Insert(ctx context.Context, event Event) error
}

// Recorder queues state changes and writes them in the background.
type Recorder struct {
	inserter Inserter
	timeout  time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}

	dropped atomic.Uint64
}

// NewRecorder starts the background writer. ctx provides the logger used by
// the worker; each insert gets its own timeout.
func NewRecorder(ctx context.Context, inserter Inserter, buffer int, timeout time.Duration) *Recorder {
	r := &Recorder{
		inserter: inserter,
		timeout:  timeout,
		now:      time.Now,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
	}

	go r.run(logger.WithName(ctx, "history"))

	return r
}

// AlarmStatusChanged queues an alarm event.
func (r *Recorder) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	r.enqueue(ctx, alarmEvent(r.now(), status))
}

// CatDetected queues a detection event.
func (r *Recorder) CatDetected(ctx context.Context, detected bool) {
	r.enqueue(ctx, catEvent(r.now(), detected))
}

// SensorStatusChanged queues a sensor event.
func (r *Recorder) SensorStatusChanged(ctx context.Context, sensor *domain.Sensor) {
	r.enqueue(ctx, sensorEvent(r.now(), sensor))
}

// Dropped reports how many events were discarded because the buffer was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops accepting events and waits until queued ones are written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) enqueue(ctx context.Context, event Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
		logger.WarnKV(ctx, "History buffer full, event dropped", "kind", event.Kind, "subject", event.Subject)
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)

	for event := range r.events {
		r.write(ctx, event)
	}
}

func (r *Recorder) write(ctx context.Context, event Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.inserter.Insert(ctx, event); err != nil {
		logger.ErrorKV(ctx, "Failed to record history event", "kind", event.Kind, "error", err)
	}
}

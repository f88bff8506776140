package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

type fakeInserter struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	events []Event
	err    error
}

func newFakeInserter() *fakeInserter {
	release := make(chan struct{})
	close(release)

	return &fakeInserter{
		started: make(chan struct{}, 16),
		release: release,
	}
}

func (f *fakeInserter) Insert(ctx context.Context, event Event) error {
	f.started <- struct{}{}

	select {
	case <-f.release:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, event)

	return f.err
}

func (f *fakeInserter) recorded() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Event(nil), f.events...)
}

// TestRecorderWritesEvents checks that every notification becomes a row.
func TestRecorderWritesEvents(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inserter := newFakeInserter()
	recorder := NewRecorder(t.Context(), inserter, 8, time.Second)
	recorder.now = func() time.Time { return at }

	ctx := t.Context()
	recorder.AlarmStatusChanged(ctx, domain.AlarmActive)
	recorder.CatDetected(ctx, false)
	recorder.SensorStatusChanged(ctx, &domain.Sensor{Name: "door", Type: domain.SensorDoor, Active: true})
	recorder.Close()

	require.Equal(t, []Event{
		{RecordedAt: at, Kind: KindAlarm, Value: "ALARM"},
		{RecordedAt: at, Kind: KindCat, Value: "false"},
		{RecordedAt: at, Kind: KindSensor, Subject: "door", Value: "true"},
	}, inserter.recorded())
	require.Zero(t, recorder.Dropped())
}

// TestRecorderDropsWhenFull verifies that a slow database never blocks notifications.
func TestRecorderDropsWhenFull(t *testing.T) {
	t.Parallel()

	inserter := newFakeInserter()
	inserter.release = make(chan struct{})
	recorder := NewRecorder(t.Context(), inserter, 1, time.Minute)

	ctx := t.Context()
	recorder.CatDetected(ctx, true)
	<-inserter.started

	recorder.CatDetected(ctx, false)
	recorder.AlarmStatusChanged(ctx, domain.AlarmPending)
	require.Equal(t, uint64(1), recorder.Dropped())

	close(inserter.release)
	recorder.Close()

	events := inserter.recorded()
	require.Len(t, events, 2)
	require.Equal(t, "true", events[0].Value)
	require.Equal(t, "false", events[1].Value)
}

// TestRecorderCloseIsIdempotent checks repeated Close calls and late events.
func TestRecorderCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	inserter := newFakeInserter()
	inserter.err = errors.New("connection refused")
	recorder := NewRecorder(t.Context(), inserter, 4, time.Second)

	recorder.AlarmStatusChanged(t.Context(), domain.AlarmNone)
	recorder.Close()
	recorder.Close()
	recorder.CatDetected(t.Context(), true)

	require.Len(t, inserter.recorded(), 1)
	require.Zero(t, recorder.Dropped())
}

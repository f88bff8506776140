package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/metrics"
	repo "github.com/oshokin/catpoint/internal/repository/status"
	"github.com/oshokin/catpoint/internal/security"
)

var (
	errTestLoad = errors.New("test load error")
	errTestSave = errors.New("test save error")
)

// memoryStore is a minimal in-memory Store implementation for tests.
type memoryStore struct {
	mu sync.Mutex
	// snapshot is returned from Load operations.
	snapshot *domain.Snapshot
	// loadErr is the error to return from Load operations.
	loadErr error
	// saveErr is the error to return from Save operations.
	saveErr error
	// saves counts Save calls.
	saves int
}

// Load returns the stored snapshot or the configured error.
func (m *memoryStore) Load(context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}

	return m.snapshot.Clone(), nil
}

// Save stores the snapshot unless saveErr is set.
func (m *memoryStore) Save(_ context.Context, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++

	if m.saveErr != nil {
		return m.saveErr
	}

	m.snapshot = s.Clone()

	return nil
}

func (m *memoryStore) saved() *domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot.Clone()
}

// fakeArchive records archived images.
type fakeArchive struct {
	mu     sync.Mutex
	images [][]byte
}

func (a *fakeArchive) Archive(_ context.Context, image []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.images = append(a.images, image)

	return fmt.Sprintf("cats/%d.jpg", len(a.images)), nil
}

func initialSensors() []*domain.Sensor {
	return []*domain.Sensor{
		domain.NewSensor("door", domain.SensorDoor),
		domain.NewSensor("window", domain.SensorWindow),
	}
}

func newTestService(t *testing.T, opts serviceOptions) *service {
	t.Helper()

	if opts.classifier == nil {
		opts.classifier = classifier.Fixed(false)
	}

	if opts.archiveTimeout == 0 {
		opts.archiveTimeout = time.Second
	}

	s, err := newService(context.Background(), opts)
	require.NoError(t, err)

	t.Cleanup(s.Close)

	return s
}

// TestNewService_LoadsStateOrDefaults asserts newService behavior on existing, missing, and error states.
func TestNewService_LoadsStateOrDefaults(t *testing.T) {
	t.Parallel()

	// Existing state wins over configured sensors.
	old := domain.NewSnapshot()
	old.Arming = domain.ArmingArmedAway
	old.Alarm = domain.AlarmPending
	old.Sensors["garage"] = &domain.Sensor{Name: "garage", Type: domain.SensorDoor, Active: true}

	s := newTestService(t, serviceOptions{
		store:          &memoryStore{snapshot: old},
		initialSensors: initialSensors(),
	})

	state := s.State(context.Background())
	require.Equal(t, domain.ArmingArmedAway, state.Arming)
	require.Equal(t, domain.AlarmPending, state.Alarm)
	require.Len(t, state.Sensors, 1)
	require.True(t, state.Sensors["garage"].Active)

	// Not found -> defaults with configured sensors.
	s = newTestService(t, serviceOptions{
		store:          &memoryStore{loadErr: repo.ErrNotFound},
		initialSensors: initialSensors(),
	})

	state = s.State(context.Background())
	require.Equal(t, domain.ArmingDisarmed, state.Arming)
	require.Equal(t, domain.AlarmNone, state.Alarm)
	require.Len(t, state.Sensors, 2)
	require.False(t, state.Sensors["door"].Active)

	// No store behaves like a missing state.
	s = newTestService(t, serviceOptions{initialSensors: initialSensors()})
	require.Len(t, s.State(context.Background()).Sensors, 2)

	// Other error.
	failed, err := newService(context.Background(), serviceOptions{
		store:      &memoryStore{loadErr: errTestLoad},
		classifier: classifier.Fixed(false),
	})

	require.ErrorIs(t, err, errTestLoad)
	require.Nil(t, failed)
}

// TestService_PersistsEveryMutation verifies that each operation saves the resulting state.
func TestService_PersistsEveryMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memoryStore{loadErr: repo.ErrNotFound}
	s := newTestService(t, serviceOptions{store: store, initialSensors: initialSensors()})

	result, err := s.SetArmingStatus(ctx, domain.ArmingArmedAway)
	require.NoError(t, err)
	require.Equal(t, domain.ArmingArmedAway, result.Arming)

	result, err = s.ChangeSensorActivation(ctx, "door", true)
	require.NoError(t, err)
	require.Equal(t, domain.AlarmPending, result.Alarm)
	require.Equal(t, domain.AlarmPending, store.saved().Alarm)
	require.True(t, store.saved().Sensors["door"].Active)

	result, err = s.AddSensor(ctx, "hall", domain.SensorMotion)
	require.NoError(t, err)
	require.Contains(t, result.Sensors, "hall")

	result, err = s.RemoveSensor(ctx, "door")
	require.NoError(t, err)
	require.Equal(t, domain.AlarmNone, result.Alarm)
	require.NotContains(t, store.saved().Sensors, "door")

	_, err = s.ProcessImage(ctx, []byte("frame"))
	require.NoError(t, err)
	require.Equal(t, 5, store.saves)

	// Returned snapshots are copies.
	result.Sensors["hall"].Active = true
	require.False(t, s.State(ctx).Sensors["hall"].Active)
}

// TestService_DomainErrorsSkipPersistence checks that rejected operations do not save.
func TestService_DomainErrorsSkipPersistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memoryStore{loadErr: repo.ErrNotFound}
	s := newTestService(t, serviceOptions{store: store, initialSensors: initialSensors()})

	_, err := s.ChangeSensorActivation(ctx, "garage", true)
	require.ErrorIs(t, err, security.ErrSensorNotFound)

	_, err = s.AddSensor(ctx, "door", domain.SensorDoor)
	require.ErrorIs(t, err, security.ErrSensorExists)

	_, err = s.RemoveSensor(ctx, "garage")
	require.ErrorIs(t, err, security.ErrSensorNotFound)

	require.Zero(t, store.saves)
}

// TestService_PersistenceFailure ensures save errors are returned and counted.
func TestService_PersistenceFailure(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	store := &memoryStore{loadErr: repo.ErrNotFound, saveErr: errTestSave}
	s := newTestService(t, serviceOptions{store: store, metrics: m, initialSensors: initialSensors()})

	result, err := s.SetArmingStatus(context.Background(), domain.ArmingArmedHome)
	require.ErrorIs(t, err, errTestSave)
	require.Nil(t, result)
	require.InDelta(t, 1, testutil.ToFloat64(m.PersistenceErrors), 0)

	// The in-memory state still moved on.
	require.Equal(t, domain.ArmingArmedHome, s.State(context.Background()).Arming)
}

// TestService_ArchivesCatImages verifies that only images with a cat are archived.
func TestService_ArchivesCatImages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	images := new(fakeArchive)
	cat := newTestService(t, serviceOptions{classifier: classifier.Fixed(true), archive: images})

	_, err := cat.SetArmingStatus(ctx, domain.ArmingArmedHome)
	require.NoError(t, err)

	result, err := cat.ProcessImage(ctx, []byte("whiskers"))
	require.NoError(t, err)
	require.True(t, result.CatDetected)
	require.Equal(t, domain.AlarmActive, result.Alarm)

	cat.Close()
	require.Equal(t, [][]byte{[]byte("whiskers")}, images.images)

	empty := new(fakeArchive)
	noCat := newTestService(t, serviceOptions{classifier: classifier.Fixed(false), archive: empty})

	result, err = noCat.ProcessImage(ctx, []byte("empty room"))
	require.NoError(t, err)
	require.False(t, result.CatDetected)

	noCat.Close()
	require.Empty(t, empty.images)
}

// TestService_MetricsFollowState checks that metrics are seeded and updated.
func TestService_MetricsFollowState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	s := newTestService(t, serviceOptions{metrics: m, initialSensors: initialSensors()})

	require.InDelta(t, 1, testutil.ToFloat64(m.AlarmStatus.WithLabelValues("NO_ALARM")), 0)

	_, err := s.SetArmingStatus(ctx, domain.ArmingArmedAway)
	require.NoError(t, err)

	_, err = s.ChangeSensorActivation(ctx, "door", true)
	require.NoError(t, err)
	require.InDelta(t, 1, testutil.ToFloat64(m.AlarmStatus.WithLabelValues("PENDING_ALARM")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.SensorActive.WithLabelValues("door", "DOOR")), 0)

	_, err = s.RemoveSensor(ctx, "window")
	require.NoError(t, err)
	require.Equal(t, 1, testutil.CollectAndCount(m.SensorActive))
}

// TestService_ConcurrentOperations runs operations from many goroutines.
func TestService_ConcurrentOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memoryStore{loadErr: repo.ErrNotFound}
	s := newTestService(t, serviceOptions{store: store, initialSensors: initialSensors()})

	_, err := s.SetArmingStatus(ctx, domain.ArmingArmedAway)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Go(func() {
			_, _ = s.ChangeSensorActivation(ctx, "door", i%2 == 0)
			_ = s.State(ctx)
		})
	}

	wg.Wait()

	_, err = s.ChangeSensorActivation(ctx, "door", true)
	require.NoError(t, err)
	require.NotEqual(t, domain.AlarmNone, s.State(ctx).Alarm)
	require.Equal(t, s.State(ctx).Alarm, store.saved().Alarm)
	require.True(t, store.saved().Sensors["door"].Active)
}

// TestResolveListenAddress covers override, port extraction and missing values.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	address, err := resolveListenAddress("catpoint.local:7000", "")
	require.NoError(t, err)
	require.Equal(t, ":7000", address)

	address, err = resolveListenAddress("catpoint.local:7000", "127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", address)

	_, err = resolveListenAddress("", "")
	require.ErrorIs(t, err, ErrNoServerAddress)

	_, err = resolveListenAddress("catpoint.local", "")
	require.Error(t, err)
}

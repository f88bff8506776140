package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/metrics"
	repo "github.com/oshokin/catpoint/internal/repository/status"
	"github.com/oshokin/catpoint/internal/security"
)

// imageArchive stores images that contained a cat.
type imageArchive interface {
	Archive(ctx context.Context, image []byte) (string, error)
}

// serviceOptions lists the collaborators of the service.
type serviceOptions struct {
	// store persists snapshots. Nil keeps state in memory only.
	store repo.Store
	// classifier decides whether images contain a cat.
	classifier security.ImageClassifier
	// initialSensors are registered when the store holds no state yet.
	initialSensors []*domain.Sensor
	// listeners are notified about every state change.
	listeners []security.StatusListener
	// metrics is optional. It receives state changes and persistence failures.
	metrics *metrics.Metrics
	// archive is optional. It receives images that contained a cat.
	archive imageArchive
	// archiveTimeout bounds a single archive upload.
	archiveTimeout time.Duration
}

// service serializes state machine operations and persists the result.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// mu serializes every read-compute-write of the security state.
	mu sync.Mutex
	// memory is the repository the state machine works on.
	memory *repo.Memory
	// machine applies the alarm rules.
	machine *security.StateMachine
	// store persists snapshots after each mutation.
	store repo.Store
	// metrics counts persistence failures and tracks removed sensors.
	metrics *metrics.Metrics
	// archive uploads cat images in the background.
	archive        imageArchive
	archiveTimeout time.Duration
	// uploads tracks archive uploads still running.
	uploads sync.WaitGroup
}

// newService loads the persisted snapshot and builds the state machine.
// Missing state starts from the initial status with the configured sensors.
func newService(ctx context.Context, opts serviceOptions) (*service, error) {
	snapshot, err := loadSnapshot(ctx, opts.store, opts.initialSensors)
	if err != nil {
		return nil, err
	}

	s := &service{
		memory:         repo.NewMemory(snapshot),
		store:          opts.store,
		metrics:        opts.metrics,
		archive:        opts.archive,
		archiveTimeout: opts.archiveTimeout,
	}

	listeners := opts.listeners
	if opts.metrics != nil {
		opts.metrics.Seed(snapshot)
		listeners = append([]security.StatusListener{opts.metrics}, listeners...)
	}

	s.machine = security.NewStateMachine(s.memory, opts.classifier, listeners...)

	logger.InfoKV(ctx, "Security state loaded",
		"arming", snapshot.Arming,
		"alarm", snapshot.Alarm,
		"sensors", len(snapshot.Sensors))

	return s, nil
}

func loadSnapshot(ctx context.Context, store repo.Store, initial []*domain.Sensor) (*domain.Snapshot, error) {
	if store != nil {
		snapshot, err := store.Load(ctx)
		switch {
		case err == nil:
			return snapshot, nil
		case errors.Is(err, repo.ErrNotFound):
			logger.Info(ctx, "No saved state, starting from defaults")
		default:
			return nil, fmt.Errorf("load state: %w", err)
		}
	}

	snapshot := domain.NewSnapshot()
	for _, sensor := range initial {
		snapshot.Sensors[sensor.Name] = domain.NewSensor(sensor.Name, sensor.Type)
	}

	return snapshot, nil
}

// State returns the current security state.
func (s *service) State(ctx context.Context) *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Debug(ctx, "Security state requested")

	return s.memory.Snapshot()
}

// SetArmingStatus changes the arming mode.
func (s *service) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.SetArmingStatus(ctx, status)

	return s.persist(ctx)
}

// ChangeSensorActivation sets the sensor's active flag.
func (s *service) ChangeSensorActivation(ctx context.Context, name string, active bool) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.ChangeSensorActivationStatus(ctx, name, active); err != nil {
		return nil, err
	}

	return s.persist(ctx)
}

// ProcessImage classifies a camera image. Images with a cat are archived
// in the background when an archive is configured.
func (s *service) ProcessImage(ctx context.Context, image []byte) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.ProcessImage(ctx, image) && s.archive != nil {
		s.archiveImage(ctx, image)
	}

	return s.persist(ctx)
}

// AddSensor registers an inactive sensor.
func (s *service) AddSensor(ctx context.Context, name string, sensorType domain.SensorType) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.machine.AddSensor(ctx, domain.NewSensor(name, sensorType)); err != nil {
		return nil, err
	}

	return s.persist(ctx)
}

// RemoveSensor forgets a sensor.
func (s *service) RemoveSensor(ctx context.Context, name string) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor, ok := s.memory.Sensor(name)

	if err := s.machine.RemoveSensor(ctx, name); err != nil {
		return nil, err
	}

	if ok && s.metrics != nil {
		s.metrics.ForgetSensor(sensor)
	}

	return s.persist(ctx)
}

// Close waits for running archive uploads.
func (s *service) Close() {
	s.uploads.Wait()
}

// persist saves the current snapshot and returns a copy of it.
// The caller must hold mu.
func (s *service) persist(ctx context.Context) (*domain.Snapshot, error) {
	snapshot := s.memory.Snapshot()
	if s.store == nil {
		return snapshot, nil
	}

	if err := s.store.Save(ctx, snapshot); err != nil {
		if s.metrics != nil {
			s.metrics.PersistenceErrors.Inc()
		}

		logger.Errorf(ctx, "Failed to persist security state: %v", err)

		return nil, fmt.Errorf("persist state: %w", err)
	}

	return snapshot, nil
}

func (s *service) archiveImage(ctx context.Context, image []byte) {
	image = append([]byte(nil), image...)
	ctx = context.WithoutCancel(ctx)

	s.uploads.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
		defer cancel()

		key, err := s.archive.Archive(ctx, image)
		if err != nil {
			logger.ErrorKV(ctx, "Failed to archive cat image", "error", err)
			return
		}

		logger.InfoKV(ctx, "Cat image archived", "key", key)
	})
}

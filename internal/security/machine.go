package security

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// CatConfidenceThreshold is the minimum classifier confidence, in percent,
// for an image to count as containing a cat.
const CatConfidenceThreshold float32 = 50.0

var (
	// ErrSensorNotFound is returned for operations on an unknown sensor.
	ErrSensorNotFound = errors.New("sensor not found")
	// ErrSensorExists is returned when adding a sensor whose name is taken.
	ErrSensorExists = errors.New("sensor already exists")
	// ErrSensorRequired is returned when a nil or unnamed sensor is added.
	ErrSensorRequired = errors.New("sensor name must be provided")
)

// StateMachine applies the alarm transition rules.
type StateMachine struct {
	// repo stores the status and sensors.
	repo StatusRepository
	// classifier answers whether an image contains a cat.
	classifier ImageClassifier
	// listeners are notified on every change.
	listeners Listeners
}

// NewStateMachine wires the repository and classifier into a state machine.
func NewStateMachine(repo StatusRepository, classifier ImageClassifier, listeners ...StatusListener) *StateMachine {
	return &StateMachine{
		repo:       repo,
		classifier: classifier,
		listeners:  listeners,
	}
}

// AddStatusListener registers an additional listener.
func (m *StateMachine) AddStatusListener(listener StatusListener) {
	m.listeners = append(m.listeners, listener)
}

// ArmingStatus returns the current arming status.
func (m *StateMachine) ArmingStatus() domain.ArmingStatus {
	return m.repo.ArmingStatus()
}

// AlarmStatus returns the current alarm status.
func (m *StateMachine) AlarmStatus() domain.AlarmStatus {
	return m.repo.AlarmStatus()
}

// Sensors returns copies of all known sensors ordered by name.
func (m *StateMachine) Sensors() []*domain.Sensor {
	return m.repo.Sensors()
}

// SetArmingStatus changes the arming mode.
// Disarming clears the alarm. Arming resets every sensor to inactive and,
// when arming at home while the camera last showed a cat, raises the alarm.
func (m *StateMachine) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) {
	ctx = logger.WithKV(ctx, "arming", status)

	if status.IsArmed() {
		m.resetSensors(ctx)
	}

	m.repo.SetArmingStatus(status)

	switch {
	case status == domain.ArmingDisarmed:
		m.setAlarmStatus(ctx, domain.AlarmNone)
	case status == domain.ArmingArmedHome && m.repo.CatDetected():
		m.setAlarmStatus(ctx, domain.AlarmActive)
	}

	logger.InfoKV(ctx, "Arming status changed", "alarm", m.repo.AlarmStatus())
}

// ChangeSensorActivationStatus sets the sensor's active flag and applies
// the escalation rules. Setting a flag to its current value changes nothing.
func (m *StateMachine) ChangeSensorActivationStatus(ctx context.Context, name string, active bool) error {
	sensor, ok := m.repo.Sensor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSensorNotFound, name)
	}

	if sensor.Active == active {
		logger.DebugKV(ctx, "Sensor already in requested state", "sensor", name, "active", active)

		return nil
	}

	sensor.Active = active
	m.repo.UpdateSensor(sensor)

	if m.repo.ArmingStatus().IsArmed() {
		if active {
			m.handleSensorActivated(ctx)
		} else {
			m.handleSensorDeactivated(ctx)
		}
	}

	logger.InfoKV(ctx, "Sensor activation changed", "sensor", name, "active", active, "alarm", m.repo.AlarmStatus())

	m.listeners.SensorStatusChanged(ctx, sensor)

	return nil
}

// ProcessImage runs the classifier on the image and applies the cat rules.
// It returns whether a cat was detected.
func (m *StateMachine) ProcessImage(ctx context.Context, image []byte) bool {
	detected := m.classifier.ContainsCat(image, CatConfidenceThreshold)
	m.repo.SetCatDetected(detected)

	switch {
	case detected && m.repo.ArmingStatus() == domain.ArmingArmedHome:
		m.setAlarmStatus(ctx, domain.AlarmActive)
	case !detected && !m.anySensorActive():
		m.setAlarmStatus(ctx, domain.AlarmNone)
	}

	logger.InfoKV(ctx, "Image processed", "cat_detected", detected, "image_bytes", len(image))

	m.listeners.CatDetected(ctx, detected)

	return detected
}

// AddSensor registers a new sensor. The sensor is stored inactive.
func (m *StateMachine) AddSensor(ctx context.Context, sensor *domain.Sensor) error {
	if sensor == nil || sensor.Name == "" {
		return ErrSensorRequired
	}

	if _, ok := m.repo.Sensor(sensor.Name); ok {
		return fmt.Errorf("%w: %q", ErrSensorExists, sensor.Name)
	}

	added := domain.NewSensor(sensor.Name, sensor.Type)
	m.repo.AddSensor(added)

	logger.InfoKV(ctx, "Sensor added", "sensor", added.Name, "type", added.Type)

	m.listeners.SensorStatusChanged(ctx, added)

	return nil
}

// RemoveSensor forgets a sensor. Removing an active sensor counts as its
// deactivation, so a pending alarm with no other active sensor clears.
func (m *StateMachine) RemoveSensor(ctx context.Context, name string) error {
	sensor, ok := m.repo.Sensor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrSensorNotFound, name)
	}

	m.repo.RemoveSensor(name)

	if sensor.Active && m.repo.ArmingStatus().IsArmed() {
		m.handleSensorDeactivated(ctx)
	}

	logger.InfoKV(ctx, "Sensor removed", "sensor", name)

	sensor.Active = false
	m.listeners.SensorStatusChanged(ctx, sensor)

	return nil
}

func (m *StateMachine) handleSensorActivated(ctx context.Context) {
	m.setAlarmStatus(ctx, m.repo.AlarmStatus().Escalate())
}

func (m *StateMachine) handleSensorDeactivated(ctx context.Context) {
	if m.repo.AlarmStatus() == domain.AlarmPending && !m.anySensorActive() {
		m.setAlarmStatus(ctx, domain.AlarmNone)
	}
}

func (m *StateMachine) resetSensors(ctx context.Context) {
	for _, sensor := range m.repo.Sensors() {
		if !sensor.Active {
			continue
		}

		sensor.Active = false
		m.repo.UpdateSensor(sensor)
		m.listeners.SensorStatusChanged(ctx, sensor)
	}
}

func (m *StateMachine) anySensorActive() bool {
	for _, sensor := range m.repo.Sensors() {
		if sensor.Active {
			return true
		}
	}

	return false
}

// setAlarmStatus is the only alarm write path. Unchanged values are not written.
func (m *StateMachine) setAlarmStatus(ctx context.Context, status domain.AlarmStatus) {
	previous := m.repo.AlarmStatus()
	if previous == status {
		return
	}

	m.repo.SetAlarmStatus(status)

	logger.InfoKV(ctx, "Alarm status changed", "from", previous, "to", status)

	m.listeners.AlarmStatusChanged(ctx, status)
}

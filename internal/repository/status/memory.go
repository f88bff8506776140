package status

import (
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Memory keeps the security state in process memory.
// It has a single owner and performs no locking of its own.
type Memory struct {
	// state is the current snapshot, never shared outside.
	state *domain.Snapshot
	// now stamps every change.
	now func() time.Time
}

// NewMemory creates a repository seeded with a copy of the snapshot.
// A nil snapshot starts from the initial disarmed state.
func NewMemory(snapshot *domain.Snapshot) *Memory {
	state := snapshot.Clone()
	if state == nil {
		state = domain.NewSnapshot()
	}

	if state.Sensors == nil {
		state.Sensors = make(map[string]*domain.Sensor)
	}

	return &Memory{
		state: state,
		now:   time.Now,
	}
}

// Snapshot returns a copy of the current state.
func (m *Memory) Snapshot() *domain.Snapshot {
	return m.state.Clone()
}

// ArmingStatus returns the current arming status.
func (m *Memory) ArmingStatus() domain.ArmingStatus {
	return m.state.Arming
}

// SetArmingStatus stores the arming status.
func (m *Memory) SetArmingStatus(status domain.ArmingStatus) {
	m.state.Arming = status
	m.touch()
}

// AlarmStatus returns the current alarm status.
func (m *Memory) AlarmStatus() domain.AlarmStatus {
	return m.state.Alarm
}

// SetAlarmStatus stores the alarm status.
func (m *Memory) SetAlarmStatus(status domain.AlarmStatus) {
	m.state.Alarm = status
	m.touch()
}

// CatDetected returns the result of the last image check.
func (m *Memory) CatDetected() bool {
	return m.state.CatDetected
}

// SetCatDetected stores the result of the last image check.
func (m *Memory) SetCatDetected(detected bool) {
	m.state.CatDetected = detected
	m.touch()
}

// Sensors returns copies of all sensors ordered by name.
func (m *Memory) Sensors() []*domain.Sensor {
	return m.state.SensorList()
}

// Sensor returns a copy of the named sensor.
func (m *Memory) Sensor(name string) (*domain.Sensor, bool) {
	sensor, ok := m.state.Sensors[name]
	if !ok {
		return nil, false
	}

	return sensor.Clone(), true
}

// AddSensor stores a copy of the sensor, replacing any sensor with the same name.
func (m *Memory) AddSensor(sensor *domain.Sensor) {
	m.state.Sensors[sensor.Name] = sensor.Clone()
	m.touch()
}

// UpdateSensor stores a copy of the sensor.
func (m *Memory) UpdateSensor(sensor *domain.Sensor) {
	m.AddSensor(sensor)
}

// RemoveSensor deletes the named sensor if present.
func (m *Memory) RemoveSensor(name string) {
	delete(m.state.Sensors, name)
	m.touch()
}

func (m *Memory) touch() {
	m.state.UpdatedAt = m.now()
}

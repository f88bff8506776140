package security

import (
	"slices"
	"strings"
	"time"
)

// Snapshot is the complete security state at a specific point in time.
type Snapshot struct {
	// Arming is the operator-selected mode.
	Arming ArmingStatus
	// Alarm is the derived escalation level.
	Alarm AlarmStatus
	// Sensors are keyed by sensor name.
	Sensors map[string]*Sensor
	// CatDetected is the result of the most recent image check.
	CatDetected bool
	// UpdatedAt is when the state was last changed.
	UpdatedAt time.Time
}

// NewSnapshot returns the initial state: disarmed, no alarm, no sensors.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Arming:  ArmingDisarmed,
		Alarm:   AlarmNone,
		Sensors: make(map[string]*Sensor),
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := &Snapshot{
		Arming:      s.Arming,
		Alarm:       s.Alarm,
		Sensors:     make(map[string]*Sensor, len(s.Sensors)),
		CatDetected: s.CatDetected,
		UpdatedAt:   s.UpdatedAt,
	}

	for name, sensor := range s.Sensors {
		cloned.Sensors[name] = sensor.Clone()
	}

	return cloned
}

// SensorList returns copies of all sensors ordered by name.
func (s *Snapshot) SensorList() []*Sensor {
	result := make([]*Sensor, 0, len(s.Sensors))
	for _, sensor := range s.Sensors {
		result = append(result, sensor.Clone())
	}

	slices.SortFunc(result, func(a, b *Sensor) int {
		return strings.Compare(a.Name, b.Name)
	})

	return result
}

// ActiveSensors counts the sensors that are currently active.
func (s *Snapshot) ActiveSensors() int {
	var count int

	for _, sensor := range s.Sensors {
		if sensor.Active {
			count++
		}
	}

	return count
}

package security

import (
	"errors"
	"fmt"
)

// SensorType identifies the kind of physical detector.
type SensorType string

const (
	// SensorDoor is a door contact.
	SensorDoor SensorType = "DOOR"
	// SensorWindow is a window contact.
	SensorWindow SensorType = "WINDOW"
	// SensorMotion is a motion detector.
	SensorMotion SensorType = "MOTION"
)

// ErrUnknownSensorType is returned when a textual sensor type cannot be parsed.
var ErrUnknownSensorType = errors.New("unknown sensor type")

// String implements fmt.Stringer.
func (t SensorType) String() string {
	return string(t)
}

// ParseSensorType converts user input into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	switch t := SensorType(normalize(s)); t {
	case SensorDoor, SensorWindow, SensorMotion:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
	}
}

// Sensor is a binary presence or contact detector.
type Sensor struct {
	// Name uniquely identifies the sensor.
	Name string
	// Type is fixed at creation.
	Type SensorType
	// Active is true while the sensor reports presence or an open contact.
	Active bool
}

// NewSensor creates an inactive sensor.
func NewSensor(name string, sensorType SensorType) *Sensor {
	return &Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Clone returns a copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

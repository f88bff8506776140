package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	sensorsSegment = "sensors"
	stateSegment   = "state"
	wildcard       = "+"
)

var (
	// ErrBadTopic is returned for topics outside the expected layout.
	ErrBadTopic = errors.New("unexpected topic")
	// ErrBadPayload is returned for sensor payloads that are not a known state.
	ErrBadPayload = errors.New("unrecognized sensor payload")
)

// Topics builds topic names under a common base.
type Topics struct {
	Base string
}

// SensorStateFilter matches the state topic of every sensor.
func (t Topics) SensorStateFilter() string {
	return t.join(sensorsSegment, wildcard, stateSegment)
}

// SensorState is the topic a sensor reports its state on.
func (t Topics) SensorState(name string) string {
	return t.join(sensorsSegment, name, stateSegment)
}

// Sensor is the retained topic describing a sensor.
func (t Topics) Sensor(name string) string {
	return t.join(sensorsSegment, name)
}

// CameraImage is the topic carrying camera frames.
func (t Topics) CameraImage() string {
	return t.join("camera", "image")
}

// CatDetected is the retained topic carrying the last detection result.
func (t Topics) CatDetected() string {
	return t.join("camera", "cat")
}

// AlarmStatus is the retained topic carrying the alarm status.
func (t Topics) AlarmStatus() string {
	return t.join("alarm", "status")
}

// SensorName extracts the sensor name from a sensor state topic.
func (t Topics) SensorName(topic string) (string, error) {
	prefix := t.join(sensorsSegment) + "/"
	suffix := "/" + stateSegment

	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, suffix) {
		return "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	name := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), suffix)
	if name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}

	return name, nil
}

func (t Topics) join(parts ...string) string {
	base := strings.Trim(t.Base, "/")
	if base == "" {
		return strings.Join(parts, "/")
	}

	return base + "/" + strings.Join(parts, "/")
}

type sensorState struct {
	Active *bool `json:"active"`
}

// ParseSensorState reads a sensor state payload. JSON objects with an
// "active" field are accepted, as are the plain words OPEN/CLOSED, ON/OFF
// and true/false.
func ParseSensorState(payload []byte) (bool, error) {
	text := strings.TrimSpace(string(payload))

	if strings.HasPrefix(text, "{") {
		var state sensorState
		if err := json.Unmarshal([]byte(text), &state); err != nil {
			return false, fmt.Errorf("%w: %w", ErrBadPayload, err)
		}

		if state.Active == nil {
			return false, fmt.Errorf("%w: missing active field", ErrBadPayload)
		}

		return *state.Active, nil
	}

	switch strings.ToUpper(text) {
	case "OPEN", "ON", "TRUE", "1":
		return true, nil
	case "CLOSED", "OFF", "FALSE", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrBadPayload, text)
	}
}

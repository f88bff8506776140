package history

import (
	"strconv"
	"time"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Kind tells what changed.
type Kind string

// Recorded event kinds.
const (
	KindAlarm  Kind = "alarm"
	KindCat    Kind = "cat"
	KindSensor Kind = "sensor"
)

// Event is one row of the history table.
type Event struct {
	RecordedAt time.Time
	Kind       Kind
	// Subject is the sensor name for sensor events and empty otherwise.
	Subject string
	Value   string
}

func alarmEvent(at time.Time, status domain.AlarmStatus) Event {
	return Event{RecordedAt: at, Kind: KindAlarm, Value: status.String()}
}

func catEvent(at time.Time, detected bool) Event {
	return Event{RecordedAt: at, Kind: KindCat, Value: strconv.FormatBool(detected)}
}

func sensorEvent(at time.Time, sensor *domain.Sensor) Event {
	return Event{RecordedAt: at, Kind: KindSensor, Subject: sensor.Name, Value: strconv.FormatBool(sensor.Active)}
}

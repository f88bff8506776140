package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// StatusRepository holds the current arming and alarm status and the sensor set.
type StatusRepository interface {
	ArmingStatus() domain.ArmingStatus
	SetArmingStatus(status domain.ArmingStatus)
	AlarmStatus() domain.AlarmStatus
	SetAlarmStatus(status domain.AlarmStatus)
	CatDetected() bool
	SetCatDetected(detected bool)
	// Sensors returns copies of all sensors ordered by name.
	Sensors() []*domain.Sensor
	// Sensor returns a copy of the named sensor and false when it is unknown.
	Sensor(name string) (*domain.Sensor, bool)
	AddSensor(sensor *domain.Sensor)
	UpdateSensor(sensor *domain.Sensor)
	RemoveSensor(name string)
}

// ImageClassifier decides whether an image contains a cat.
type ImageClassifier interface {
	ContainsCat(image []byte, confidenceThreshold float32) bool
}

// StatusListener receives notifications about state changes.
// Implementations are called synchronously and must not block.
type StatusListener interface {
	AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus)
	CatDetected(ctx context.Context, detected bool)
	SensorStatusChanged(ctx context.Context, sensor *domain.Sensor)
}

// Listeners fans notifications out to several listeners in order.
type Listeners []StatusListener

// AlarmStatusChanged implements StatusListener.
func (l Listeners) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	for _, listener := range l {
		listener.AlarmStatusChanged(ctx, status)
	}
}

// CatDetected implements StatusListener.
func (l Listeners) CatDetected(ctx context.Context, detected bool) {
	for _, listener := range l {
		listener.CatDetected(ctx, detected)
	}
}

// SensorStatusChanged implements StatusListener.
func (l Listeners) SensorStatusChanged(ctx context.Context, sensor *domain.Sensor) {
	for _, listener := range l {
		listener.SensorStatusChanged(ctx, sensor.Clone())
	}
}

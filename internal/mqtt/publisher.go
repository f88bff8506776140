package mqtt

import (
	"context"
	"encoding/json"
	"strconv"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Sender publishes a payload to a topic without blocking.
type Sender interface {
	Publish(ctx context.Context, topic string, retained bool, payload []byte)
}

// Publisher reports security state changes to the broker.
type Publisher struct {
	topics Topics
	sender Sender
}

// NewPublisher creates a publisher for topics under base.
func NewPublisher(base string, sender Sender) *Publisher {
	return &Publisher{
		topics: Topics{Base: base},
		sender: sender,
	}
}

type sensorMessage struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// AlarmStatusChanged publishes the new alarm status as a retained message.
func (p *Publisher) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	p.sender.Publish(ctx, p.topics.AlarmStatus(), true, []byte(status.String()))
}

// CatDetected publishes the latest detection result as a retained message.
func (p *Publisher) CatDetected(ctx context.Context, detected bool) {
	p.sender.Publish(ctx, p.topics.CatDetected(), true, []byte(strconv.FormatBool(detected)))
}

// SensorStatusChanged publishes the sensor description as a retained message.
func (p *Publisher) SensorStatusChanged(ctx context.Context, sensor *domain.Sensor) {
	payload, err := json.Marshal(sensorMessage{
		Name:   sensor.Name,
		Type:   sensor.Type.String(),
		Active: sensor.Active,
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode sensor message", "sensor", sensor.Name, "error", err)
		return
	}

	p.sender.Publish(ctx, p.topics.Sensor(sensor.Name), true, payload)
}

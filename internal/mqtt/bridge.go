package mqtt

import (
	"context"
	"fmt"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Subscriber registers handlers for topic filters.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) error
}

// Controller is the part of the security service driven by MQTT.
type Controller interface {
	ChangeSensorActivation(ctx context.Context, name string, active bool) (*domain.Snapshot, error)
	ProcessImage(ctx context.Context, image []byte) (*domain.Snapshot, error)
}

// Bridge turns broker messages into security service calls.
type Bridge struct {
	topics     Topics
	controller Controller
}

// NewBridge creates a bridge for topics under base.
func NewBridge(base string, controller Controller) *Bridge {
	return &Bridge{
		topics:     Topics{Base: base},
		controller: controller,
	}
}

// Start subscribes to sensor state and camera image topics.
// Handlers log with the logger carried by ctx.
func (b *Bridge) Start(ctx context.Context, sub Subscriber) error {
	ctx = logger.WithName(ctx, "mqtt-bridge")

	if err := sub.Subscribe(b.topics.SensorStateFilter(), func(topic string, payload []byte) {
		b.handleSensorState(ctx, topic, payload)
	}); err != nil {
		return fmt.Errorf("subscribe sensor states: %w", err)
	}

	if err := sub.Subscribe(b.topics.CameraImage(), func(_ string, payload []byte) {
		b.handleImage(ctx, payload)
	}); err != nil {
		return fmt.Errorf("subscribe camera images: %w", err)
	}

	logger.InfoKV(ctx, "MQTT bridge subscribed", "base", b.topics.Base)

	return nil
}

func (b *Bridge) handleSensorState(ctx context.Context, topic string, payload []byte) {
	name, err := b.topics.SensorName(topic)
	if err != nil {
		logger.WarnKV(ctx, "Ignoring sensor message", "topic", topic, "error", err)
		return
	}

	active, err := ParseSensorState(payload)
	if err != nil {
		logger.WarnKV(ctx, "Ignoring sensor message", "sensor", name, "error", err)
		return
	}

	snapshot, err := b.controller.ChangeSensorActivation(ctx, name, active)
	if err != nil {
		logger.ErrorKV(ctx, "Sensor update failed", "sensor", name, "active", active, "error", err)
		return
	}

	logger.DebugKV(ctx, "Sensor update applied", "sensor", name, "active", active, "alarm", snapshot.Alarm)
}

func (b *Bridge) handleImage(ctx context.Context, image []byte) {
	if len(image) == 0 {
		logger.Warn(ctx, "Ignoring empty camera image")
		return
	}

	snapshot, err := b.controller.ProcessImage(ctx, image)
	if err != nil {
		logger.ErrorKV(ctx, "Image processing failed", "error", err)
		return
	}

	logger.DebugKV(ctx, "Camera image processed", "bytes", len(image), "cat", snapshot.CatDetected, "alarm", snapshot.Alarm)
}

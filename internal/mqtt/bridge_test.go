package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

type fakeSubscriber struct {
	handlers map[string]MessageHandler
	err      error
}

func (s *fakeSubscriber) Subscribe(topic string, handler MessageHandler) error {
	if s.err != nil {
		return s.err
	}

	if s.handlers == nil {
		s.handlers = make(map[string]MessageHandler)
	}

	s.handlers[topic] = handler

	return nil
}

type sensorCall struct {
	name   string
	active bool
}

type fakeController struct {
	sensorCalls []sensorCall
	images      [][]byte
	err         error
}

func (c *fakeController) ChangeSensorActivation(_ context.Context, name string, active bool) (*domain.Snapshot, error) {
	c.sensorCalls = append(c.sensorCalls, sensorCall{name: name, active: active})
	if c.err != nil {
		return nil, c.err
	}

	return domain.NewSnapshot(), nil
}

func (c *fakeController) ProcessImage(_ context.Context, image []byte) (*domain.Snapshot, error) {
	c.images = append(c.images, image)
	if c.err != nil {
		return nil, c.err
	}

	snapshot := domain.NewSnapshot()
	snapshot.CatDetected = true

	return snapshot, nil
}

// TestBridgeRoutesMessages checks that sensor and camera messages reach the controller.
func TestBridgeRoutesMessages(t *testing.T) {
	t.Parallel()

	sub := &fakeSubscriber{}
	controller := &fakeController{}
	bridge := NewBridge("catpoint", controller)

	require.NoError(t, bridge.Start(t.Context(), sub))
	require.Len(t, sub.handlers, 2)

	sensors := sub.handlers["catpoint/sensors/+/state"]
	require.NotNil(t, sensors)
	sensors("catpoint/sensors/door/state", []byte(`{"active":true}`))
	sensors("catpoint/sensors/window/state", []byte("CLOSED"))
	sensors("catpoint/sensors/window/state", []byte("ajar"))

	require.Equal(t, []sensorCall{
		{name: "door", active: true},
		{name: "window", active: false},
	}, controller.sensorCalls)

	camera := sub.handlers["catpoint/camera/image"]
	require.NotNil(t, camera)
	camera("catpoint/camera/image", nil)
	camera("catpoint/camera/image", []byte{0xff, 0xd8})

	require.Equal(t, [][]byte{{0xff, 0xd8}}, controller.images)
}

// TestBridgeStartSubscribeError verifies that subscription failures are returned.
func TestBridgeStartSubscribeError(t *testing.T) {
	t.Parallel()

	errBroker := errors.New("broker gone")
	bridge := NewBridge("catpoint", &fakeController{})

	err := bridge.Start(t.Context(), &fakeSubscriber{err: errBroker})
	require.ErrorIs(t, err, errBroker)
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/codec"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Client wraps a gRPC connection to the security service with typed helpers.
type Client struct {
	// conn is the underlying gRPC connection to the security server.
	conn grpc.ClientConnInterface
	// closer releases conn. It is nil for connections owned by the caller.
	closer func() error

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor is sent with every call for audit logging when set.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches "user@host" to every call.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSensorNameRequired is returned when a sensor operation has no name.
	errSensorNameRequired = errors.New("sensor name must be provided")
)

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn.Close

	return client, nil
}

// NewClient wraps an existing connection. Close does not close it.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer()
}

// State retrieves the current security state.
func (c *Client) State(ctx context.Context) (*domain.Snapshot, error) {
	snapshot, err := c.call(ctx, api.MethodGetState, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	return snapshot, nil
}

// SetArmingStatus changes the arming mode.
func (c *Client) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error) {
	snapshot, err := c.call(ctx, api.MethodSetArmingStatus, wrapperspb.String(status.String()))
	if err != nil {
		return nil, fmt.Errorf("set arming status: %w", err)
	}

	return snapshot, nil
}

// ChangeSensorActivation sets a sensor's active flag.
func (c *Client) ChangeSensorActivation(ctx context.Context, name string, active bool) (*domain.Snapshot, error) {
	if name == "" {
		return nil, errSensorNameRequired
	}

	request := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			codec.FieldName:   structpb.NewStringValue(name),
			codec.FieldActive: structpb.NewBoolValue(active),
		},
	}

	snapshot, err := c.call(ctx, api.MethodChangeSensorActivation, request)
	if err != nil {
		return nil, fmt.Errorf("change sensor %q: %w", name, err)
	}

	return snapshot, nil
}

// ProcessImage sends a camera image for classification.
func (c *Client) ProcessImage(ctx context.Context, image []byte) (*domain.Snapshot, error) {
	snapshot, err := c.call(ctx, api.MethodProcessImage, wrapperspb.Bytes(image))
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	return snapshot, nil
}

// AddSensor registers a sensor.
func (c *Client) AddSensor(ctx context.Context, name string, sensorType domain.SensorType) (*domain.Snapshot, error) {
	if name == "" {
		return nil, errSensorNameRequired
	}

	snapshot, err := c.call(ctx, api.MethodAddSensor, codec.SensorToStruct(domain.NewSensor(name, sensorType)))
	if err != nil {
		return nil, fmt.Errorf("add sensor %q: %w", name, err)
	}

	return snapshot, nil
}

// RemoveSensor forgets a sensor.
func (c *Client) RemoveSensor(ctx context.Context, name string) (*domain.Snapshot, error) {
	if name == "" {
		return nil, errSensorNameRequired
	}

	snapshot, err := c.call(ctx, api.MethodRemoveSensor, wrapperspb.String(name))
	if err != nil {
		return nil, fmt.Errorf("remove sensor %q: %w", name, err)
	}

	return snapshot, nil
}

// call invokes a method that answers with a snapshot document.
func (c *Client) call(ctx context.Context, method string, request proto.Message) (*domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, method, request, response); err != nil {
		return nil, err
	}

	return codec.SnapshotFromStruct(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, api.ActorMetadataKey, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

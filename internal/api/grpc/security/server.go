package security

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/catpoint/internal/codec"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/security"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	State(ctx context.Context) *domain.Snapshot
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) (*domain.Snapshot, error)
	ChangeSensorActivation(ctx context.Context, name string, active bool) (*domain.Snapshot, error)
	ProcessImage(ctx context.Context, image []byte) (*domain.Snapshot, error)
	AddSensor(ctx context.Context, name string, sensorType domain.SensorType) (*domain.Snapshot, error)
	RemoveSensor(ctx context.Context, name string) (*domain.Snapshot, error)
}

var _ SecurityServiceServer = (*Server)(nil)

// Server implements SecurityServiceServer.
type Server struct {
	// service provides the business logic for security operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetState returns the current security state.
func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return codec.SnapshotToStruct(s.service.State(ctx)), nil
}

// SetArmingStatus changes the arming mode.
func (s *Server) SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	arming, err := domain.ParseArmingStatus(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snapshot, err := s.service.SetArmingStatus(ctx, arming)

	return respond(ctx, snapshot, err)
}

// ChangeSensorActivation sets a sensor's active flag.
// The request carries "name" and "active" fields.
func (s *Server) ChangeSensorActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	name := fields[codec.FieldName].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "sensor name is required")
	}

	active, ok := fields[codec.FieldActive].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "active must be a boolean")
	}

	snapshot, err := s.service.ChangeSensorActivation(ctx, name, active.BoolValue)

	return respond(ctx, snapshot, err)
}

// ProcessImage classifies a camera image.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "image is required")
	}

	snapshot, err := s.service.ProcessImage(ctx, req.GetValue())

	return respond(ctx, snapshot, err)
}

// AddSensor registers a sensor. The request carries "name" and "type" fields.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := codec.SensorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snapshot, err := s.service.AddSensor(ctx, sensor.Name, sensor.Type)

	return respond(ctx, snapshot, err)
}

// RemoveSensor forgets a sensor.
func (s *Server) RemoveSensor(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "sensor name is required")
	}

	snapshot, err := s.service.RemoveSensor(ctx, req.GetValue())

	return respond(ctx, snapshot, err)
}

func respond(ctx context.Context, snapshot *domain.Snapshot, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatusError(ctx, err)
	}

	return codec.SnapshotToStruct(snapshot), nil
}

// toStatusError maps service errors to gRPC status codes.
func toStatusError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, security.ErrSensorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, security.ErrSensorExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrUnknownArmingStatus),
		errors.Is(err, domain.ErrUnknownSensorType),
		errors.Is(err, security.ErrSensorRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		logger.Errorf(ctx, "Security operation failed: %v", err)

		return status.Error(codes.Internal, "unable to persist state")
	}
}

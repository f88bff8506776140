package codec

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Field names of the snapshot document.
const (
	FieldArming      = "arming"
	FieldAlarm       = "alarm"
	FieldCatDetected = "cat_detected"
	FieldUpdatedAt   = "updated_at"
	FieldSensors     = "sensors"
	FieldName        = "name"
	FieldType        = "type"
	FieldActive      = "active"
)

var (
	// ErrNilDocument is returned when decoding a nil message.
	ErrNilDocument = errors.New("document is nil")
	// ErrSensorName is returned for sensor documents without a name.
	ErrSensorName = errors.New("sensor name is empty")
)

// SnapshotToStruct encodes a snapshot.
func SnapshotToStruct(snapshot *domain.Snapshot) *structpb.Struct {
	if snapshot == nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}

	sensors := snapshot.SensorList()
	values := make([]*structpb.Value, 0, len(sensors))

	for _, sensor := range sensors {
		values = append(values, structpb.NewStructValue(SensorToStruct(sensor)))
	}

	fields := map[string]*structpb.Value{
		FieldArming:      structpb.NewStringValue(snapshot.Arming.String()),
		FieldAlarm:       structpb.NewStringValue(snapshot.Alarm.String()),
		FieldCatDetected: structpb.NewBoolValue(snapshot.CatDetected),
		FieldSensors:     structpb.NewListValue(&structpb.ListValue{Values: values}),
	}

	if !snapshot.UpdatedAt.IsZero() {
		fields[FieldUpdatedAt] = structpb.NewStringValue(snapshot.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}

	return &structpb.Struct{Fields: fields}
}

// SnapshotFromStruct decodes a snapshot. Missing statuses fall back to the
// initial DISARMED / NO_ALARM values.
func SnapshotFromStruct(document *structpb.Struct) (*domain.Snapshot, error) {
	if document == nil {
		return nil, ErrNilDocument
	}

	var (
		fields   = document.GetFields()
		snapshot = domain.NewSnapshot()
		err      error
	)

	if value := fields[FieldArming].GetStringValue(); value != "" {
		if snapshot.Arming, err = domain.ParseArmingStatus(value); err != nil {
			return nil, err
		}
	}

	if value := fields[FieldAlarm].GetStringValue(); value != "" {
		if snapshot.Alarm, err = domain.ParseAlarmStatus(value); err != nil {
			return nil, err
		}
	}

	snapshot.CatDetected = fields[FieldCatDetected].GetBoolValue()

	if value := fields[FieldUpdatedAt].GetStringValue(); value != "" {
		if snapshot.UpdatedAt, err = time.Parse(time.RFC3339Nano, value); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FieldUpdatedAt, err)
		}
	}

	for i, value := range fields[FieldSensors].GetListValue().GetValues() {
		sensor, err := SensorFromStruct(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("sensor #%d: %w", i, err)
		}

		snapshot.Sensors[sensor.Name] = sensor
	}

	return snapshot, nil
}

// SensorToStruct encodes a sensor.
func SensorToStruct(sensor *domain.Sensor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldName:   structpb.NewStringValue(sensor.Name),
			FieldType:   structpb.NewStringValue(sensor.Type.String()),
			FieldActive: structpb.NewBoolValue(sensor.Active),
		},
	}
}

// SensorFromStruct decodes a sensor.
func SensorFromStruct(document *structpb.Struct) (*domain.Sensor, error) {
	if document == nil {
		return nil, ErrNilDocument
	}

	fields := document.GetFields()

	name := fields[FieldName].GetStringValue()
	if name == "" {
		return nil, ErrSensorName
	}

	sensorType, err := domain.ParseSensorType(fields[FieldType].GetStringValue())
	if err != nil {
		return nil, err
	}

	return &domain.Sensor{
		Name:   name,
		Type:   sensorType,
		Active: fields[FieldActive].GetBoolValue(),
	}, nil
}

// MarshalSnapshot renders a snapshot as protobuf JSON.
func MarshalSnapshot(snapshot *domain.Snapshot) ([]byte, error) {
	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(SnapshotToStruct(snapshot))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshot parses protobuf JSON produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*domain.Snapshot, error) {
	var document structpb.Struct
	if err := protojson.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return SnapshotFromStruct(&document)
}

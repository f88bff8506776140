package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestSnapshot_JSONRoundtrip ensures a snapshot survives protobuf JSON encoding.
func TestSnapshot_JSONRoundtrip(t *testing.T) {
	t.Parallel()

	want := domain.NewSnapshot()
	want.Arming = domain.ArmingArmedHome
	want.Alarm = domain.AlarmPending
	want.CatDetected = true
	want.UpdatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	want.Sensors["front door"] = &domain.Sensor{Name: "front door", Type: domain.SensorDoor, Active: true}
	want.Sensors["hall"] = domain.NewSensor("hall", domain.SensorMotion)

	data, err := MarshalSnapshot(want)
	require.NoError(t, err)
	require.Contains(t, string(data), `"PENDING_ALARM"`)

	got, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestSnapshotFromStruct_Defaults checks that an empty document yields the initial state.
func TestSnapshotFromStruct_Defaults(t *testing.T) {
	t.Parallel()

	got, err := SnapshotFromStruct(&structpb.Struct{})
	require.NoError(t, err)
	require.Equal(t, domain.NewSnapshot(), got)

	_, err = SnapshotFromStruct(nil)
	require.ErrorIs(t, err, ErrNilDocument)
}

// TestSnapshotFromStruct_Invalid rejects unknown enum values and unnamed sensors.
func TestSnapshotFromStruct_Invalid(t *testing.T) {
	t.Parallel()

	document, err := structpb.NewStruct(map[string]any{FieldArming: "ON_HOLIDAY"})
	require.NoError(t, err)

	_, err = SnapshotFromStruct(document)
	require.ErrorIs(t, err, domain.ErrUnknownArmingStatus)

	document, err = structpb.NewStruct(map[string]any{
		FieldSensors: []any{map[string]any{FieldType: "DOOR"}},
	})
	require.NoError(t, err)

	_, err = SnapshotFromStruct(document)
	require.ErrorIs(t, err, ErrSensorName)

	_, err = SensorFromStruct(&structpb.Struct{Fields: map[string]*structpb.Value{
		FieldName: structpb.NewStringValue("garage"),
		FieldType: structpb.NewStringValue("LASER"),
	}})
	require.ErrorIs(t, err, domain.ErrUnknownSensorType)
}

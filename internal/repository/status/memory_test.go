package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/security"
)

var _ security.StatusRepository = (*Memory)(nil)

// TestNewMemory_Defaults verifies a nil seed starts disarmed with no sensors.
func TestNewMemory_Defaults(t *testing.T) {
	t.Parallel()

	m := NewMemory(nil)
	require.Equal(t, domain.ArmingDisarmed, m.ArmingStatus())
	require.Equal(t, domain.AlarmNone, m.AlarmStatus())
	require.Empty(t, m.Sensors())
}

// TestMemory_DoesNotLeakReferences ensures callers only ever see copies.
func TestMemory_DoesNotLeakReferences(t *testing.T) {
	t.Parallel()

	seed := domain.NewSnapshot()
	seed.Sensors["door"] = domain.NewSensor("door", domain.SensorDoor)

	m := NewMemory(seed)
	seed.Sensors["door"].Active = true

	sensor, ok := m.Sensor("door")
	require.True(t, ok)
	require.False(t, sensor.Active)

	sensor.Active = true
	stored, _ := m.Sensor("door")
	require.False(t, stored.Active)

	m.UpdateSensor(sensor)
	stored, _ = m.Sensor("door")
	require.True(t, stored.Active)

	snapshot := m.Snapshot()
	snapshot.Sensors["door"].Active = false
	stored, _ = m.Sensor("door")
	require.True(t, stored.Active)
}

// TestMemory_TouchesTimestamp checks that writes stamp UpdatedAt.
func TestMemory_TouchesTimestamp(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMemory(nil)
	m.now = func() time.Time { return fixed }

	m.SetAlarmStatus(domain.AlarmPending)
	require.Equal(t, fixed, m.Snapshot().UpdatedAt)

	m.AddSensor(domain.NewSensor("hall", domain.SensorMotion))
	m.RemoveSensor("hall")

	_, ok := m.Sensor("hall")
	require.False(t, ok)
}

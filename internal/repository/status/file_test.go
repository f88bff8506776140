package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestFileStore_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileStore_NotFound(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	s, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileStore_SaveLoad_Roundtrip ensures Save followed by Load returns equal state.
func TestFileStore_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(file)

	want := domain.NewSnapshot()
	want.Arming = domain.ArmingArmedAway
	want.Alarm = domain.AlarmActive
	want.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	want.Sensors["kitchen window"] = &domain.Sensor{Name: "kitchen window", Type: domain.SensorWindow, Active: true}

	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Arming, got.Arming)
	require.Equal(t, want.Alarm, got.Alarm)
	require.Equal(t, want.UpdatedAt.Unix(), got.UpdatedAt.Unix())
	require.Equal(t, want.Sensors, got.Sensors)

	_, err = os.Stat(file)
	require.NoError(t, err)

	_, err = os.Stat(file + ".tmp")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFileStore_Corrupted reports decode errors instead of ErrNotFound.
func TestFileStore_Corrupted(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := NewFileStore(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

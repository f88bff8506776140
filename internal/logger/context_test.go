package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithFields_ScopesLogger verifies that loggers stored in context carry their fields.
func TestWithFields_ScopesLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "security")
	ctx = WithKV(ctx, "sensor", "front door")
	ctx = WithFields(ctx, "arming", "ARMED_HOME")

	InfoKV(ctx, "Sensor changed", "active", true)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "security", entries[0].LoggerName)
	require.Equal(t, "Sensor changed", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "front door", fields["sensor"])
	require.Equal(t, "ARMED_HOME", fields["arming"])
	require.Equal(t, true, fields["active"])
}

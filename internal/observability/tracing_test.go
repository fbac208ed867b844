package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Enabled:  false,
		Endpoint: "localhost:4318",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// No-op shutdown must be safe to call
	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_DefaultEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Enabled:     true,
		Endpoint:    "", // Empty should use default
		Environment: "test",
		ServiceName: "test-service",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	// Should not fail even with empty Endpoint
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Cleanup
	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_CustomEndpoint(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Enabled:     true,
		Endpoint:    "custom-host:4318",
		Environment: "staging",
		ServiceName: "custom-service",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	// Should not fail with custom host
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Cleanup
	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestSetup_CollectorUnavailable_GracefulDegradation(t *testing.T) {
	t.Parallel()

	// Point to a non-existent collector
	cfg := Config{
		Enabled:     true,
		Endpoint:    "localhost:99999", // Invalid port
		Environment: "test",
		ServiceName: "graceful-test",
	}

	ctx := context.Background()
	shutdown, err := Setup(ctx, cfg)

	// Should NOT fail - graceful degradation
	// The exporter creation may succeed but spans will fail to export silently
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Shutdown should not panic
	err = shutdown(ctx)
	assert.NoError(t, err)
}

func TestDefaultEndpoint_Value(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "localhost:4318", DefaultEndpoint)
}

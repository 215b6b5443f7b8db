package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTracingDisabled(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		shutdown, err := SetupTracing(context.Background(), TraceConfig{ServiceName: "pixelgen-test", Exporter: exporter}, nil)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestSetupTracingRejectsBadConfig(t *testing.T) {
	_, err := SetupTracing(context.Background(), TraceConfig{Exporter: "jaeger"}, nil)
	require.Error(t, err)

	_, err = SetupTracing(context.Background(), TraceConfig{Exporter: "otlp"}, nil)
	require.Error(t, err)
}

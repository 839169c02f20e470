package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/LeJamon/xrplstate/internal/config"
)

func keepGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetupDisabled(t *testing.T) {
	keepGlobalProvider(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Endpoint: "localhost:4317"})
	require.NoError(t, err)
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupRegistersProvider(t *testing.T) {
	for _, protocol := range []string{config.TelemetryHTTP, config.TelemetryGRPC} {
		t.Run(protocol, func(t *testing.T) {
			keepGlobalProvider(t)

			// Non-routable; nothing is exported before shutdown.
			shutdown, err := Setup(context.Background(), config.TelemetryConfig{
				Enabled:     true,
				Endpoint:    "192.0.2.1:4318",
				Protocol:    protocol,
				SampleRatio: 1,
			})
			require.NoError(t, err)
			_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
			assert.True(t, ok)
			assert.NoError(t, shutdown(context.Background()))
		})
	}
}

func TestSetupUnknownProtocol(t *testing.T) {
	keepGlobalProvider(t)
	_, err := Setup(context.Background(), config.TelemetryConfig{Enabled: true, Endpoint: "localhost:4317", Protocol: "zipkin"})
	assert.Error(t, err)
}

func TestNewProviderSampling(t *testing.T) {
	tests := []struct {
		ratio float64
		spans int
	}{
		{ratio: 1, spans: 1},
		{ratio: 0, spans: 0},
	}
	for _, tt := range tests {
		sr := tracetest.NewSpanRecorder()
		tp, err := NewProvider(context.Background(), config.TelemetryConfig{SampleRatio: tt.ratio}, sdktrace.WithSpanProcessor(sr))
		require.NoError(t, err)

		_, span := tp.Tracer("test").Start(context.Background(), "work")
		span.End()

		ended := sr.Ended()
		require.Len(t, ended, tt.spans)
		if tt.spans > 0 {
			assert.Contains(t, ended[0].Resource().Attributes(), semconv.ServiceName(ServiceName))
		}
		require.NoError(t, tp.Shutdown(context.Background()))
	}
}

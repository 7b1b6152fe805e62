package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing("", "teambot", "test")
	require.NoError(t, err)
	shutdown()
	assert.False(t, TracingEnabled())

	// spans still work against the no-op provider
	ctx, span := StartSpan(WithCorrelation(context.Background(), "c1"), "test", "op", CommandAttrs("ping", "slack", "C1")...)
	defer span.End()
	assert.NotNil(t, ctx)
	SetSpanStatus(span, nil)
}

func TestTracingEnabledUntilShutdown(t *testing.T) {
	// the gRPC exporter connects lazily, so no collector is needed
	shutdown, err := InitTracing("127.0.0.1:4317", "teambot", "test")
	require.NoError(t, err)
	assert.True(t, TracingEnabled())
	shutdown()
	assert.False(t, TracingEnabled())
}

func TestSetSpanStatus(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")

	_, okSpan := tracer.Start(context.Background(), "ok")
	SetSpanStatus(okSpan, nil)
	okSpan.End()

	_, badSpan := tracer.Start(context.Background(), "bad")
	SetSpanStatus(badSpan, errors.New("boom"))
	badSpan.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1, "error is recorded as a span event")
}

func TestCommandAttrs(t *testing.T) {
	attrs := CommandAttrs("teams", "twitch", "#chan")
	assert.Contains(t, attrs, attribute.String("bot.command", "teams"))
	assert.Contains(t, attrs, attribute.String("bot.transport", "twitch"))
	assert.Contains(t, attrs, attribute.String("bot.channel", "#chan"))
}

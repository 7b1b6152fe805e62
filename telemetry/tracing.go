package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const exporterTimeout = 5 * time.Second

var tracing atomic.Bool

// InitTracing exports command spans over OTLP/gRPC to endpoint. With no
// endpoint spans go to the global no-op provider and shutdown does nothing.
// Shutdown flushes pending spans and puts the no-op provider back.
func InitTracing(endpoint, serviceName, serviceVersion string) (shutdown func(), err error) {
	if endpoint == "" {
		slog.Info("tracing disabled: OTEL_EXPORTER_OTLP_ENDPOINT not set")
		return func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), exporterTimeout)
	defer cancel()
	tp, err := newTracerProvider(ctx, endpoint, serviceName, serviceVersion)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	tracing.Store(true)
	slog.Info("tracing initialized", slog.String("service", serviceName), slog.String("endpoint", endpoint))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), exporterTimeout)
		defer cancel()
		tracing.Store(false)
		otel.SetTracerProvider(noop.NewTracerProvider())
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("tracer provider shutdown", slog.Any("err", err))
		}
	}, nil
}

func newTracerProvider(ctx context.Context, endpoint, serviceName, serviceVersion string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithInsecure(), otlptracegrpc.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	), nil
}

// TracingEnabled reports whether spans are being exported.
func TracingEnabled() bool { return tracing.Load() }

// StartSpan opens a span tagged with the request's correlation id.
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if corr := GetCorrelation(ctx); corr != "" {
		attrs = append(attrs, attribute.String("correlation_id", corr))
	}
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// SetSpanStatus marks span as failed with err, or ok when err is nil.
func SetSpanStatus(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// CommandAttrs are the span attributes of a chat command.
func CommandAttrs(command, transport, channel string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("bot.command", command),
		attribute.String("bot.transport", transport),
		attribute.String("bot.channel", channel),
	}
}

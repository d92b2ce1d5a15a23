package smartobjects

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/mnubo/Mnubo.SmartObjects.Client-sub001"

// sdkInstruments is the tracer and the request instruments of one transport.
// Instruments that failed to register stay nil and are skipped.
type sdkInstruments struct {
	tracer        trace.Tracer
	requestLat    metric.Float64Histogram
	requestCount  metric.Int64Counter
	requestErrors metric.Int64Counter
	retryCount    metric.Int64Counter
}

func newSDKInstruments(tp trace.TracerProvider, mp metric.MeterProvider) *sdkInstruments {
	meter := mp.Meter(instrumentationName, metric.WithInstrumentationVersion(Version))
	in := &sdkInstruments{
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(Version)),
	}

	in.requestLat, _ = meter.Float64Histogram(
		"smartobjects_sdk_request_duration_ms",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency of SDK HTTP calls, retries included"),
	)
	in.requestCount, _ = meter.Int64Counter(
		"smartobjects_sdk_requests_total",
		metric.WithDescription("Total SDK HTTP calls"),
	)
	in.requestErrors, _ = meter.Int64Counter(
		"smartobjects_sdk_request_errors_total",
		metric.WithDescription("SDK HTTP calls that ended in an error"),
	)
	in.retryCount, _ = meter.Int64Counter(
		"smartobjects_sdk_retries_total",
		metric.WithDescription("Retries scheduled by the SDK retry policy"),
	)
	return in
}

func (in *sdkInstruments) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if in == nil || in.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return in.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// endSDKSpan records err on span, if any, and ends it.
func endSDKSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (in *sdkInstruments) recordRequest(ctx context.Context, operation string, status int, duration time.Duration, err error) {
	if in == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Int("http.status_code", status),
	}
	if in.requestLat != nil {
		in.requestLat.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if in.requestCount != nil {
		in.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if err != nil && in.requestErrors != nil {
		in.requestErrors.Add(ctx, 1, metric.WithAttributes(
			append(attrs, attribute.String("error.type", errorType(err)))...,
		))
	}
}

func (in *sdkInstruments) recordRetry(ctx context.Context, operation string, status int) {
	if in == nil || in.retryCount == nil {
		return
	}
	in.retryCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("http.status_code", status),
	))
}

// errorType keeps the error attribute low-cardinality.
func errorType(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsAPIError(err):
		return "api"
	case IsTransportError(err):
		return "transport"
	case IsSerializationError(err):
		return "serialization"
	case IsAuthenticationError(err):
		return "authentication"
	default:
		return "other"
	}
}

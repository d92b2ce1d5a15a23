package smartobjects

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TelemetryConfig enables OpenTelemetry for SDK calls. Spans are exported
// over OTLP/gRPC; metrics stay in memory until Client.CollectMetrics reads
// them. Each client owns its providers, the global ones are left untouched.
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string            // default: smartobjects-go-sdk
	Endpoint    string            `validate:"required_if=Enabled true"` // OTLP collector, host:port
	Insecure    bool              // plaintext connection to the collector
	Headers     map[string]string // extra exporter headers, e.g. an API key
}

// telemetryProvider holds the providers of one client.
type telemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	reader         *sdkmetric.ManualReader
	propagator     propagation.TextMapPropagator
}

func enableTelemetry(ctx context.Context, cfg *TelemetryConfig) (*telemetryProvider, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	res, err := telemetryResource(ctx, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	return &telemetryProvider{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		),
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		),
		reader: reader,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}, nil
}

// telemetryResource describes the SDK process. The semconv package must
// follow the schema of the sdk module or detection fails with a schema
// conflict.
func telemetryResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	return resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
}

func exporterOptions(cfg *TelemetryConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return opts
}

// instruments returns the request instruments bound to t. A nil provider
// falls back to the global OpenTelemetry providers.
func (t *telemetryProvider) instruments() *sdkInstruments {
	if t == nil {
		return newSDKInstruments(otel.GetTracerProvider(), otel.GetMeterProvider())
	}
	return newSDKInstruments(t.tracerProvider, t.meterProvider)
}

// wrapRoundTripper adds otelhttp client spans to rt.
func (t *telemetryProvider) wrapRoundTripper(rt http.RoundTripper) http.RoundTripper {
	if t == nil {
		return otelhttp.NewTransport(rt)
	}
	return otelhttp.NewTransport(rt,
		otelhttp.WithTracerProvider(t.tracerProvider),
		otelhttp.WithMeterProvider(t.meterProvider),
		otelhttp.WithPropagators(t.propagator),
	)
}

// Shutdown flushes pending spans and stops both providers.
func (t *telemetryProvider) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return errors.Join(
		t.meterProvider.Shutdown(ctx),
		t.tracerProvider.Shutdown(ctx),
	)
}

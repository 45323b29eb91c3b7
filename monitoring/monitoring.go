package monitoring

import (
	"context"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-relay/logging"
)

var (
	// OpenTelemetry metrics
	PaymentCounter      metric.Int64Counter
	PaymentAmount       metric.Float64Histogram
	GatewayCallDuration metric.Float64Histogram
	HTTPServerDuration  metric.Float64Histogram

	registry = promclient.NewRegistry()
)

func init() {
	// Instruments are usable before InitMeter (tests, early startup).
	if err := registerInstruments(noop.NewMeterProvider().Meter("checkout-relay")); err != nil {
		panic(err)
	}
}

// InitTracer initializes OpenTelemetry tracing
func InitTracer(serviceName, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	ctx := context.Background()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(serviceName)

	logging.Info("Tracing initialized", zap.String("service_name", serviceName))

	return tp, tracer, nil
}

// InitMeter initializes OpenTelemetry metrics. Measurements are pushed over
// OTLP and also exposed for scraping through MetricsHandler.
func InitMeter(serviceName, endpoint string) (*sdkmetric.MeterProvider, metric.Meter, error) {
	ctx := context.Background()

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, nil, err
	}

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)
	meter := mp.Meter(serviceName)

	if err := registerInstruments(meter); err != nil {
		return nil, nil, err
	}

	logging.Info("Metrics initialized with OTLP and Prometheus exporters", zap.String("endpoint", endpoint))

	return mp, meter, nil
}

// MetricsHandler serves the Prometheus exposition of the meter provider.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
}

func registerInstruments(meter metric.Meter) error {
	var err error

	PaymentCounter, err = meter.Int64Counter(
		"payments_initiated_total",
		metric.WithDescription("Total number of payment initiations by outcome"),
	)
	if err != nil {
		return err
	}

	PaymentAmount, err = meter.Float64Histogram(
		"payment_amount_etb",
		metric.WithDescription("Amounts of successfully initiated payments in ETB"),
	)
	if err != nil {
		return err
	}

	GatewayCallDuration, err = meter.Float64Histogram(
		"gateway_call_duration_seconds",
		metric.WithDescription("Duration of payment gateway calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

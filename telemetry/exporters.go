package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names a telemetry export backend.
type Exporter string

const (
	// ExporterOTLP ships to an OTLP collector over gRPC. Requires
	// OTEL_EXPORTER_OTLP_ENDPOINT.
	ExporterOTLP Exporter = "otlp"
	// ExporterPrometheus registers a Prometheus pull reader (metrics only).
	ExporterPrometheus Exporter = "prometheus"
	// ExporterStdout writes to standard output.
	ExporterStdout Exporter = "stdout"
	// ExporterNone discards everything.
	ExporterNone Exporter = "none"
)

func (e Exporter) validForTracing() bool {
	switch e {
	case ExporterOTLP, ExporterStdout, ExporterNone, "":
		return true
	}
	return false
}

func (e Exporter) validForMetrics() bool {
	switch e {
	case ExporterOTLP, ExporterPrometheus, ExporterStdout, ExporterNone, "":
		return true
	}
	return false
}

// NewSpanExporter creates a span exporter for the named backend.
func NewSpanExporter(ctx context.Context, name Exporter) (sdktrace.SpanExporter, error) {
	switch name {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))

	case ExporterOTLP:
		if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" &&
			os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") == "" {
			return nil, fmt.Errorf("telemetry: OTLP endpoint not configured")
		}
		return otlptracegrpc.New(ctx)

	case ExporterNone, "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("telemetry: unknown span exporter: %q", name)
	}
}

// NewMetricReader creates a metric reader for the named backend.
func NewMetricReader(ctx context.Context, name Exporter) (sdkmetric.Reader, error) {
	switch name {
	case ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case ExporterOTLP:
		if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" &&
			os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") == "" {
			return nil, fmt.Errorf("telemetry: OTLP metrics endpoint not configured")
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("telemetry: OTLP metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case ExporterPrometheus:
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: prometheus exporter: %w", err)
		}
		return exp, nil

	case ExporterNone, "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("telemetry: unknown metric exporter: %q", name)
	}
}

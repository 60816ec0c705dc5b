package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpMeta identifies one logical operation for telemetry purposes.
type OpMeta struct {
	Adapter  string // vendor adapter name (github, registry, warehouse)
	Name     string // logical operation name (required)
	Target   string // circuit-breaker target
	Category string // rate-limit category
}

// SpanName returns the deterministic span name for this operation.
// Format: transport.op.<adapter>.<name> or transport.op.<name>
func (m OpMeta) SpanName() string {
	if m.Adapter != "" {
		return "transport.op." + m.Adapter + "." + m.Name
	}
	return "transport.op." + m.Name
}

func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.name", m.Name),
	}
	if m.Adapter != "" {
		attrs = append(attrs, attribute.String("op.adapter", m.Adapter))
	}
	if m.Target != "" {
		attrs = append(attrs, attribute.String("op.target", m.Target))
	}
	if m.Category != "" {
		attrs = append(attrs, attribute.String("op.category", m.Category))
	}
	return attrs
}

// Metrics records per-operation transport metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one completed logical operation.
	RecordRequest(ctx context.Context, meta OpMeta, duration time.Duration, attempts int, err error)

	// RecordTransfer records bytes moved by a chunked transfer.
	RecordTransfer(ctx context.Context, meta OpMeta, bytes int64)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	requestTotal  metric.Int64Counter
	requestErrors metric.Int64Counter
	requestRetry  metric.Int64Counter
	durationHist  metric.Float64Histogram
	transferBytes metric.Int64Counter
}

// NewMetrics creates transport metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	requestTotal, err := meter.Int64Counter(
		"transport.request.total",
		metric.WithDescription("Total number of logical operations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestErrors, err := meter.Int64Counter(
		"transport.request.errors",
		metric.WithDescription("Total number of failed logical operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	requestRetry, err := meter.Int64Counter(
		"transport.request.retries",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"transport.request.duration_ms",
		metric.WithDescription("Logical operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transferBytes, err := meter.Int64Counter(
		"transport.transfer.bytes",
		metric.WithDescription("Bytes moved by chunked transfers"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requestTotal:  requestTotal,
		requestErrors: requestErrors,
		requestRetry:  requestRetry,
		durationHist:  durationHist,
		transferBytes: transferBytes,
	}, nil
}

// RecordRequest records one completed logical operation.
func (m *metricsImpl) RecordRequest(ctx context.Context, meta OpMeta, duration time.Duration, attempts int, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.requestTotal.Add(ctx, 1, opt)
	if err != nil {
		m.requestErrors.Add(ctx, 1, opt)
	}
	if attempts > 1 {
		m.requestRetry.Add(ctx, int64(attempts-1), opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordTransfer records bytes moved by a chunked transfer.
func (m *metricsImpl) RecordTransfer(ctx context.Context, meta OpMeta, bytes int64) {
	m.transferBytes.Add(ctx, bytes, metric.WithAttributes(meta.attributes()...))
}

// nopMetrics discards everything.
type nopMetrics struct{}

// NopMetrics returns a Metrics that does nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordRequest(context.Context, OpMeta, time.Duration, int, error) {}
func (nopMetrics) RecordTransfer(context.Context, OpMeta, int64)                    {}

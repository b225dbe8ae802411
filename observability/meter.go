package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/birdkit/logger"
)

// InitMeter initializes the OpenTelemetry meter provider.
func InitMeter(ctx context.Context, serviceName string, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(serviceName, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"service", serviceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))

	return mp, nil
}

// Meter returns the birdkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Outcomes recorded on executions and handshakes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics holds the client's instruments. A nil *Metrics records nothing.
type Metrics struct {
	executions      metric.Int64Counter
	duration        metric.Float64Histogram
	active          metric.Int64UpDownCounter
	bytesReceived   metric.Int64Counter
	bytesSent       metric.Int64Counter
	streamDocuments metric.Int64Counter
	streamDropped   metric.Int64Counter
	handshakes      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.executions, err = meter.Int64Counter("birdkit.executions",
		metric.WithDescription("Completed request executions by outcome")); err != nil {
		return nil, fmt.Errorf("creating birdkit.executions counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("birdkit.execution.duration",
		metric.WithDescription("Execution duration from start to terminal state"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating birdkit.execution.duration histogram: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter("birdkit.executions.active",
		metric.WithDescription("Executions that have started and not reached a terminal state")); err != nil {
		return nil, fmt.Errorf("creating birdkit.executions.active counter: %w", err)
	}
	if m.bytesReceived, err = meter.Int64Counter("birdkit.bytes.received",
		metric.WithDescription("Response body bytes received"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("creating birdkit.bytes.received counter: %w", err)
	}
	if m.bytesSent, err = meter.Int64Counter("birdkit.bytes.sent",
		metric.WithDescription("Request body bytes written"), metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("creating birdkit.bytes.sent counter: %w", err)
	}
	if m.streamDocuments, err = meter.Int64Counter("birdkit.stream.documents",
		metric.WithDescription("JSON documents decoded from streaming bodies")); err != nil {
		return nil, fmt.Errorf("creating birdkit.stream.documents counter: %w", err)
	}
	if m.streamDropped, err = meter.Int64Counter("birdkit.stream.dropped",
		metric.WithDescription("Malformed stream segments dropped")); err != nil {
		return nil, fmt.Errorf("creating birdkit.stream.dropped counter: %w", err)
	}
	if m.handshakes, err = meter.Int64Counter("birdkit.handshakes",
		metric.WithDescription("OAuth flows by flow and outcome")); err != nil {
		return nil, fmt.Errorf("creating birdkit.handshakes counter: %w", err)
	}
	return &m, nil
}

// ExecutionStarted increments the active gauge.
func (m *Metrics) ExecutionStarted(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// ExecutionFinished records the terminal outcome of an execution.
func (m *Metrics) ExecutionFinished(ctx context.Context, method, outcome string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
		attribute.Int("status", status),
	)
	m.active.Add(ctx, -1, metric.WithAttributes(attribute.String("method", method)))
	m.executions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// BytesReceived counts response body bytes.
func (m *Metrics) BytesReceived(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesReceived.Add(ctx, int64(n))
}

// BytesSent counts request body bytes.
func (m *Metrics) BytesSent(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesSent.Add(ctx, int64(n))
}

// StreamDocument counts one decoded stream document.
func (m *Metrics) StreamDocument(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamDocuments.Add(ctx, 1)
}

// StreamDropped counts one dropped stream segment.
func (m *Metrics) StreamDropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamDropped.Add(ctx, 1)
}

// Handshake records the outcome of an OAuth flow.
func (m *Metrics) Handshake(ctx context.Context, flow, outcome string) {
	if m == nil {
		return
	}
	m.handshakes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

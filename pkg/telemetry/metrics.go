package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider registers a Prometheus exporter on the default registry and installs the provider globally.
// Metrics are scraped through promhttp.Handler.
func NewMeterProvider(serviceName string) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(serviceResource(serviceName)),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// RPCMetrics counts handled commands and their latency, labelled by command and outcome.
type RPCMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewRPCMetrics(meter metric.Meter) (*RPCMetrics, error) {
	requests, err := meter.Int64Counter("rpc.server.requests",
		metric.WithDescription("Number of handled RPC commands."))
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc request counter: %w", err)
	}
	duration, err := meter.Float64Histogram("rpc.server.duration",
		metric.WithDescription("Duration of handled RPC commands."),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc duration histogram: %w", err)
	}
	return &RPCMetrics{requests: requests, duration: duration}, nil
}

// Record adds one handled command.
func (m *RPCMetrics) Record(ctx context.Context, command, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Nanoseconds())/1e6, attrs)
}

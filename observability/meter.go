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

	"github.com/kbukum/hollowfoot/logger"
)

// Status values recorded on step and pipeline metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's metric instruments.
type Metrics struct {
	stepTotal        metric.Int64Counter
	stepDuration     metric.Float64Histogram
	memoHits         metric.Int64Counter
	pipelineTotal    metric.Int64Counter
	pipelineDuration metric.Float64Histogram
	errorTotal       metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	stepTotal, err := meter.Int64Counter("hollowfoot.step.evaluations",
		metric.WithDescription("Step evaluations that invoked the operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.step.evaluations counter: %w", err)
	}

	stepDuration, err := meter.Float64Histogram("hollowfoot.step.duration",
		metric.WithDescription("Duration of step evaluations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.step.duration histogram: %w", err)
	}

	memoHits, err := meter.Int64Counter("hollowfoot.step.memo_hits",
		metric.WithDescription("Step evaluations answered from the memo"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.step.memo_hits counter: %w", err)
	}

	pipelineTotal, err := meter.Int64Counter("hollowfoot.pipeline.evaluations",
		metric.WithDescription("Pipeline evaluations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.pipeline.evaluations counter: %w", err)
	}

	pipelineDuration, err := meter.Float64Histogram("hollowfoot.pipeline.duration",
		metric.WithDescription("Duration of pipeline evaluations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.pipeline.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("hollowfoot.errors",
		metric.WithDescription("Errors by code and operation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hollowfoot.errors counter: %w", err)
	}

	return &Metrics{
		stepTotal:        stepTotal,
		stepDuration:     stepDuration,
		memoHits:         memoHits,
		pipelineTotal:    pipelineTotal,
		pipelineDuration: pipelineDuration,
		errorTotal:       errorTotal,
	}, nil
}

// RecordStep records one step evaluation that ran the operation.
func (m *Metrics) RecordStep(ctx context.Context, operation, status string, duration time.Duration) {
	m.stepTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.stepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordMemoHit records a step evaluation served from the memo.
func (m *Metrics) RecordMemoHit(ctx context.Context, operation string) {
	m.memoHits.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordPipeline records a whole pipeline evaluation.
func (m *Metrics) RecordPipeline(ctx context.Context, status string, steps int, duration time.Duration) {
	m.pipelineTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Int("steps", steps),
	))
	m.pipelineDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordError records an error by code and operation.
func (m *Metrics) RecordError(ctx context.Context, code, operation string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("operation", operation),
	))
}

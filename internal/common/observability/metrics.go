package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	"account-onboarding/internal/common/logger"
)

// Observability bundles the OpenTelemetry meter and tracer. A nil or zero
// value is usable and records nothing.
type Observability struct {
	meterProvider     *metric.MeterProvider
	tracer            trace.Tracer
	executionCounter  otelmetric.Int64Counter
	executionDuration otelmetric.Float64Histogram
	taskCounter       otelmetric.Int64Counter
}

func New(serviceName string, log logger.Logger) *Observability {
	tracer := otel.Tracer(serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err.Error()})
		return &Observability{tracer: tracer}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	executionCounter, _ := meter.Int64Counter(
		"onboarding.executions",
		otelmetric.WithDescription("Number of onboarding executions by terminal state"),
	)
	executionDuration, _ := meter.Float64Histogram(
		"onboarding.execution.duration",
		otelmetric.WithDescription("Onboarding execution duration"),
		otelmetric.WithUnit("ms"),
	)
	taskCounter, _ := meter.Int64Counter(
		"onboarding.task.attempts",
		otelmetric.WithDescription("Task attempts by task and outcome"),
	)

	return &Observability{
		meterProvider:     provider,
		tracer:            tracer,
		executionCounter:  executionCounter,
		executionDuration: executionDuration,
		taskCounter:       taskCounter,
	}
}

func (o *Observability) RecordExecution(ctx context.Context, state string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("state", state))
	if o.executionCounter != nil {
		o.executionCounter.Add(ctx, 1, attrs)
	}
	if o.executionDuration != nil {
		o.executionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordTaskAttempt(ctx context.Context, task, outcome string) {
	if o == nil || o.taskCounter == nil {
		return
	}
	o.taskCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task", task),
		attribute.String("outcome", outcome),
	))
}

// StartSpan opens a span for one unit of work. End it with EndSpan.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}

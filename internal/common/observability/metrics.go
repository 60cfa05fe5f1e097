package observability

import (
	"context"
	"time"

	"give4need/internal/common/config"
	"give4need/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	nearbyKept     otelmetric.Int64Histogram
}

// New wires the otel meter to the prometheus exporter and, when tracing is enabled, a tracer provider.
// Exporter failures degrade to no-op instruments.
func New(serviceName string, tracing config.TracingConfig, log logger.Logger) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(serviceName)

		o.jobCounter, _ = o.meter.Int64Counter(
			"jobs.processed",
			otelmetric.WithDescription("Number of jobs processed"),
		)
		o.jobDuration, _ = o.meter.Float64Histogram(
			"jobs.duration",
			otelmetric.WithDescription("Job processing duration"),
			otelmetric.WithUnit("ms"),
		)
		o.nearbyKept, _ = o.meter.Int64Histogram(
			"nearby.items.kept",
			otelmetric.WithDescription("Items kept per nearby view"),
		)
	}

	if tracing.Enabled {
		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tracing.SampleRatio))),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		}
		if tracing.JaegerEndpoint != "" {
			exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(tracing.JaegerEndpoint)))
			if err != nil {
				log.Warn("failed to create jaeger exporter", map[string]interface{}{"error": err})
			} else {
				opts = append(opts, sdktrace.WithBatcher(exp))
			}
		}
		o.tracerProvider = sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(o.tracerProvider)
		o.tracer = o.tracerProvider.Tracer(serviceName)
	}

	return o
}

// StartSpan starts a span under ctx. The caller ends it.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o != nil && o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordNearbyKept(ctx context.Context, kept int) {
	if o != nil && o.nearbyKept != nil {
		o.nearbyKept.Record(ctx, int64(kept))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}

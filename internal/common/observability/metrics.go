package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"search.requests",
		otelmetric.WithDescription("Number of search requests processed"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"search.duration",
		otelmetric.WithDescription("Search request duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
	}
}

func (o *Observability) RecordRequest(ctx context.Context, outcome string) {
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}

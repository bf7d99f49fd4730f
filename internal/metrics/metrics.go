// Package metrics exports client telemetry over OTLP: API request counts,
// errors and latency, query cache hits and misses, and activity events.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/example/skycart/internal/activity"
)

const meterName = "github.com/example/skycart"

// Options configures the OTLP exporter. An empty Endpoint disables export.
type Options struct {
	Endpoint       string
	Headers        map[string]string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Interval       time.Duration
}

type Metrics struct {
	requests        metric.Int64Counter
	requestErrors   metric.Int64Counter
	requestDuration metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	events          metric.Int64Counter

	shutdown func(context.Context) error
}

// New builds the OTLP pipeline, or a no-op one when no endpoint is set.
func New(ctx context.Context, opts Options) (*Metrics, error) {
	if opts.Endpoint == "" {
		return NewWithProvider(noop.NewMeterProvider())
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(opts.Endpoint),
		otlpmetrichttp.WithURLPath("/v1/metrics"),
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithHeaders(opts.Headers))
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	m, err := NewWithProvider(provider)
	if err != nil {
		return nil, err
	}
	m.shutdown = provider.Shutdown
	return m, nil
}

// NewWithProvider registers the instruments on provider.
func NewWithProvider(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{shutdown: func(context.Context) error { return nil }}

	var err error
	if m.requests, err = meter.Int64Counter("skycart.api.requests",
		metric.WithDescription("API requests sent"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.requestErrors, err = meter.Int64Counter("skycart.api.errors",
		metric.WithDescription("API requests that failed"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("skycart.api.duration",
		metric.WithDescription("API request latency"), metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000)); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	if m.cacheHits, err = meter.Int64Counter("skycart.cache.hits",
		metric.WithDescription("Query cache hits"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create cache hit counter: %w", err)
	}
	if m.cacheMisses, err = meter.Int64Counter("skycart.cache.misses",
		metric.WithDescription("Query cache misses"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create cache miss counter: %w", err)
	}
	if m.events, err = meter.Int64Counter("skycart.activity.events",
		metric.WithDescription("Activity events by type: cart changes, orders, payment failures"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("failed to create event counter: %w", err)
	}
	return m, nil
}

// ObserveRequest records one API call.
func (m *Metrics) ObserveRequest(ctx context.Context, op, method string, status int, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	if err != nil {
		m.requestErrors.Add(ctx, 1, attrs)
	}
}

// ObserveCache records a query cache lookup under its key root.
func (m *Metrics) ObserveCache(ctx context.Context, root string, hit bool) {
	attrs := metric.WithAttributes(attribute.String("root", root))
	if hit {
		m.cacheHits.Add(ctx, 1, attrs)
		return
	}
	m.cacheMisses.Add(ctx, 1, attrs)
}

// Shutdown flushes pending exports.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.shutdown(ctx)
}

// Publisher counts every event before handing it to next.
func (m *Metrics) Publisher(next activity.Publisher) activity.Publisher {
	return &countingPublisher{next: next, events: m.events}
}

type countingPublisher struct {
	next   activity.Publisher
	events metric.Int64Counter
}

func (p *countingPublisher) Publish(ctx context.Context, event activity.Event) error {
	p.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", event.Type)))
	return p.next.Publish(ctx, event)
}

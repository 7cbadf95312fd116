package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

const namespace = "fedramp_marketplace"

// Provider owns the tracer provider, the prometheus registry and the catalog
// metrics. A nil *Provider is valid and records nothing.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promHandler    http.Handler
	registry       *promreg.Registry
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	groupRequests      *promreg.CounterVec
	groupedProviders   promreg.Histogram
	unresolvedEntries  promreg.Counter
	snapshotReloads    *promreg.CounterVec
}

func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fedramp-marketplace"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	provider := &Provider{}

	if cfg.EnableOTLP {
		tp, err := newTracerProvider(ctx, cfg.OTLPEndpoint, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		if err := provider.setupMetrics(res); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func newTracerProvider(ctx context.Context, rawEndpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	endpoint := strings.TrimSpace(rawEndpoint)
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	opts := []otlptracegrpc.Option{}
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	default:
		endpoint = strings.TrimPrefix(endpoint, "http://")
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	p.meterProvider = mp
	p.registry = registry
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	latencyBuckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	p.httpRequestCounter = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})
	p.httpRequestLatency = promreg.NewHistogramVec(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   latencyBuckets,
	}, []string{"method", "route", "status"})
	p.groupRequests = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_group_requests_total",
		Help:      "Grouping requests by origin of the product list.",
	}, []string{"origin"})
	p.groupedProviders = promreg.NewHistogram(promreg.HistogramOpts{
		Namespace: namespace,
		Name:      "catalog_grouped_providers",
		Help:      "Number of provider groups returned per grouping request.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	p.unresolvedEntries = promreg.NewCounter(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_unresolved_entries_total",
		Help:      "Grouped entries whose product name had no product record.",
	})
	p.snapshotReloads = promreg.NewCounterVec(promreg.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_snapshot_reloads_total",
		Help:      "Catalog snapshot reload attempts by outcome.",
	}, []string{"status"})

	for _, c := range []promreg.Collector{
		p.httpRequestCounter,
		p.httpRequestLatency,
		p.groupRequests,
		p.groupedProviders,
		p.unresolvedEntries,
		p.snapshotReloads,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

// Registry exposes the prometheus registry, mainly for tests.
func (p *Provider) Registry() *promreg.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if p == nil || p.httpRequestCounter == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// RecordGroup counts one grouping request. origin is "request" or "agency".
func (p *Provider) RecordGroup(origin string, providers, unresolved int) {
	if p == nil || p.groupRequests == nil {
		return
	}
	p.groupRequests.WithLabelValues(origin).Inc()
	p.groupedProviders.Observe(float64(providers))
	if unresolved > 0 {
		p.unresolvedEntries.Add(float64(unresolved))
	}
}

func (p *Provider) RecordSnapshotReload(err error) {
	if p == nil || p.snapshotReloads == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.snapshotReloads.WithLabelValues(status).Inc()
}

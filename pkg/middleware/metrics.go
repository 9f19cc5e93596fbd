package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "braid").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels added to every metric.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "braid",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// requestMetrics holds the instruments one Prometheus() call registers.
type requestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	inflight        prometheus.Gauge
}

func newRequestMetrics(config MetricsConfig) *requestMetrics {
	factory := promauto.With(config.Registry)

	return &requestMetrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total pipeline requests by route, method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Pipeline execution duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "method"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Pipeline errors by route and kind",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "kind"}),

		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_inflight",
			Help:        "Requests currently inside the pipeline",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that instruments every request flowing
// through the pipeline.
//
// Metrics collected (under the configured namespace):
//   - requests_total: counter by route pattern, method and status
//   - request_duration_seconds: histogram by route pattern and method
//   - request_errors_total: counter by route pattern and error kind
//   - requests_inflight: gauge of requests currently executing
//
// The route label uses the matched pattern ("/blog/[id]"), never the raw
// path, so label cardinality stays bounded by the route tree. Expose the
// scrape endpoint with server.WithMetricsHandler(promhttp.Handler()).
func Prometheus(opts ...MetricsOption) router.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := newRequestMetrics(config)

	return router.MiddlewareFunc(func(ctx server.Ctx, next func() error) error {
		start := time.Now()
		m.inflight.Inc()
		err := next()
		m.inflight.Dec()

		route := ctx.RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		status := ctx.StatusCode()
		var redirect *server.RedirectError
		switch {
		case err == nil:
		case errors.As(err, &redirect):
			// Control flow, not failure.
			status = redirect.Status
		default:
			status = server.StatusOf(err)
			m.requestErrors.WithLabelValues(route, errorKind(status)).Inc()
		}

		m.requestDuration.WithLabelValues(route, ctx.Method()).
			Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, ctx.Method(), strconv.Itoa(status)).Inc()

		return err
	})
}

// errorKind buckets an error by its response status. Error messages never
// become label values.
func errorKind(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status >= 400 && status < 500:
		return "client"
	default:
		return "server"
	}
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "setlog"

// Metrics holds the server's instruments and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration prometheus.Histogram
	SetsUpserted        *prometheus.CounterVec
	BulkBatchSize       prometheus.Histogram
}

// New creates a registry with Go and process collectors plus the setlog instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg)
}

// NewTest creates instruments on a bare registry.
func NewTest() *Metrics {
	return newWithRegistry(prometheus.NewRegistry())
}

func newWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of API requests by method and status.",
		}, []string{"method", "status"}),
		HTTPRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		SetsUpserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sets_upserted_total",
			Help:      "Set log rows written, by save path.",
		}, []string{"path"}),
		BulkBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_batch_size",
			Help:      "Number of sets per bulk save.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

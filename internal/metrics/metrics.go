// Package metrics exposes pipeline counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doclens/internal/model"
)

const namespace = "doclens"

// Collector implements processor.Observer on its own registry.
type Collector struct {
	registry  *prometheus.Registry
	files     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	truncated prometheus.Counter
}

// New registers the pipeline collectors plus the Go runtime and process
// collectors.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files processed, by result type and outcome (ok, recommendation, error).",
		}, []string{"type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_seconds",
			Help:      "Per-file processing time.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"type"}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pdf_pages_truncated_total",
			Help:      "PDF pages skipped by the page cap.",
		}),
	}
	c.registry.MustRegister(
		c.files, c.duration, c.truncated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObserveFile(resultType model.ResultType, outcome string, elapsed time.Duration) {
	c.files.WithLabelValues(string(resultType), outcome).Inc()
	c.duration.WithLabelValues(string(resultType)).Observe(elapsed.Seconds())
}

func (c *Collector) ObservePDFTruncated(skippedPages int) {
	if skippedPages > 0 {
		c.truncated.Add(float64(skippedPages))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry is exposed for tests and for callers adding their own collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

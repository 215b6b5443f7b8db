package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry       *prometheus.Registry
	jobsTotal      *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	activeJobs     prometheus.Gauge
	framesTotal    prometheus.Counter
	masksTotal     prometheus.Counter
	rateLimitedJob prometheus.Counter
}

// newMetrics registers the worker collectors on registry, creating one
// when nil.
func newMetrics(registry *prometheus.Registry) *metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelgen_worker_jobs_total",
			Help: "Total animation render attempts by mode and outcome.",
		}, []string{"mode", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelgen_worker_job_duration_seconds",
			Help:    "Duration of each animation render attempt.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"mode", "status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelgen_worker_active_jobs",
			Help: "Animation renders currently in progress.",
		}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelgen_worker_frames_total",
			Help: "Total frames written by successful renders.",
		}),
		masksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelgen_worker_masks_total",
			Help: "Total masks written by successful renders.",
		}),
		rateLimitedJob: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelgen_worker_rate_limited_total",
			Help: "Render attempts aborted by the generation rate limit.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.framesTotal,
		m.masksTotal,
		m.rateLimitedJob,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package xform

import (
	"github.com/dunamismax/pixelgen/pkg/generation"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts transform calls and the artifacts they return. A nil
// *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	artifactsTotal  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelgen_transform_requests_total",
			Help: "Total transform requests by engine and final status.",
		}, []string{"engine", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelgen_transform_request_duration_seconds",
			Help:    "Duration of transform requests including stream consumption.",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine", "status"}),
		artifactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelgen_transform_artifacts_total",
			Help: "Total artifacts received from transform responses by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration, m.artifactsTotal)
	}
	return m
}

func (m *Metrics) observeRequest(engine, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(engine, status).Inc()
	m.requestDuration.WithLabelValues(engine, status).Observe(seconds)
}

func (m *Metrics) observeArtifact(t generation.ArtifactType) {
	if m == nil {
		return
	}
	m.artifactsTotal.WithLabelValues(t.String()).Inc()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the service's Prometheus collectors behind one registry.
type Set struct {
	registry *prometheus.Registry

	PipelineStages   *prometheus.CounterVec
	PaymentOutcomes  *prometheus.CounterVec
	CaptionSlots     *prometheus.CounterVec
	RegistryOutcomes *prometheus.CounterVec
	PaymentWait      prometheus.Histogram
}

// New builds and registers the collector set.
func New() *Set {
	registry := prometheus.NewRegistry()
	s := &Set{
		registry: registry,
		PipelineStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memeforge_pipeline_stage_total",
			Help: "Pipeline stage transitions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		PaymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memeforge_payments_total",
			Help: "Payment submissions by terminal status.",
		}, []string{"status"}),
		CaptionSlots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memeforge_caption_slots_total",
			Help: "Caption option slots by outcome.",
		}, []string{"outcome"}),
		RegistryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "memeforge_registrations_total",
			Help: "Registry transactions by outcome.",
		}, []string{"outcome"}),
		PaymentWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "memeforge_payment_wait_seconds",
			Help:    "Wall time from payment submission to a terminal status, confirmation polling included.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.PipelineStages,
		s.PaymentOutcomes,
		s.CaptionSlots,
		s.RegistryOutcomes,
		s.PaymentWait,
	)
	return s
}

// Handler serves the registry in the Prometheus text format.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

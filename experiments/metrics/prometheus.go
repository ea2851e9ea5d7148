package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector records searches like the plain collector and mirrors
// the counts into a registry, labelled by rollout and backup.
type PrometheusCollector struct {
	Collector

	registry   *prometheus.Registry
	searches   *prometheus.CounterVec
	iterations *prometheus.CounterVec
	expansions *prometheus.CounterVec
	invalid    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	depth      *prometheus.HistogramVec
	rootBest   *prometheus.GaugeVec
	duration   *prometheus.HistogramVec

	labels prometheus.Labels
}

func NewPrometheusCollector() *PrometheusCollector {
	labels := []string{"rollout", "backup"}
	m := &PrometheusCollector{
		Collector: NewCollector(),
		registry:  prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macaronic",
			Name:      "searches_total",
			Help:      "Completed searches by stop reason.",
		}, append(labels, "stop")),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macaronic",
			Name:      "search_iterations_total",
			Help:      "Search iterations run.",
		}, labels),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macaronic",
			Name:      "search_expansions_total",
			Help:      "Tree nodes created.",
		}, labels),
		invalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macaronic",
			Name:      "search_invalid_actions_total",
			Help:      "Actions discarded because they broke a state invariant.",
		}, labels),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "macaronic",
			Name:      "search_failures_total",
			Help:      "Expansions whose scoring or rollout failed.",
		}, labels),
		depth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "macaronic",
			Name:      "search_expansion_depth",
			Help:      "Depth of expanded nodes.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, labels),
		rootBest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "macaronic",
			Name:      "search_root_best_value",
			Help:      "Best aggregate among the root's children.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "macaronic",
			Name:      "search_duration_seconds",
			Help:      "Wall time per search.",
			Buckets:   prometheus.DefBuckets,
		}, labels),
	}
	m.registry.MustRegister(m.searches, m.iterations, m.expansions, m.invalid, m.failures, m.depth, m.rootBest, m.duration)
	return m
}

func (m *PrometheusCollector) Registry() *prometheus.Registry { return m.registry }

func (m *PrometheusCollector) Start(rollout, backup string) {
	m.labels = prometheus.Labels{"rollout": rollout, "backup": backup}
	m.Collector.Start(rollout, backup)
}

func (m *PrometheusCollector) AddIteration(record IterationRecord) {
	m.Collector.AddIteration(record)
	m.iterations.With(m.labels).Inc()
	m.depth.With(m.labels).Observe(float64(record.Depth))
	m.rootBest.With(m.labels).Set(record.RootBest)
}

func (m *PrometheusCollector) AddExpansion() {
	m.Collector.AddExpansion()
	m.expansions.With(m.labels).Inc()
}

func (m *PrometheusCollector) AddInvalidAction() {
	m.Collector.AddInvalidAction()
	m.invalid.With(m.labels).Inc()
}

func (m *PrometheusCollector) AddFailure() {
	m.Collector.AddFailure()
	m.failures.With(m.labels).Inc()
}

func (m *PrometheusCollector) Complete(stop string) SearchMetric {
	metric := m.Collector.Complete(stop)
	m.searches.With(prometheus.Labels{"rollout": metric.Rollout, "backup": metric.Backup, "stop": stop}).Inc()
	m.duration.With(m.labels).Observe(metric.Duration.Seconds())
	return metric
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *PrometheusCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Load pipeline metrics
	LoadsTotal                *prometheus.CounterVec
	LoadDuration              prometheus.Histogram
	PluginsRegistered         prometheus.Gauge
	VerificationFailuresTotal *prometheus.CounterVec

	// Execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ExecutionsRunning prometheus.Gauge

	// History metrics
	HistoryWriteErrorsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubcap_plugin_loads_total",
				Help: "Total number of plugin registry load passes",
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hubcap_plugin_load_duration_seconds",
				Help:    "Duration of a full plugin registry load pass",
				Buckets: prometheus.DefBuckets,
			},
		),
		PluginsRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubcap_plugins_registered",
				Help: "Number of plugins currently registered",
			},
		),
		VerificationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubcap_plugin_verification_failures_total",
				Help: "Total number of plugin integrity verification failures",
			},
			[]string{"reason"},
		),
		ExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubcap_plugin_executions_total",
				Help: "Total number of plugin executions",
			},
			[]string{"plugin", "result"},
		),
		ExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hubcap_plugin_execution_duration_seconds",
				Help:    "Plugin execution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
			[]string{"plugin"},
		),
		ExecutionsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubcap_plugin_executions_running",
				Help: "Number of plugin executions in flight",
			},
		),
		HistoryWriteErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hubcap_plugin_history_write_errors_total",
				Help: "Total number of failed plugin history writes",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.LoadsTotal,
			m.LoadDuration,
			m.PluginsRegistered,
			m.VerificationFailuresTotal,
			m.ExecutionsTotal,
			m.ExecutionDuration,
			m.ExecutionsRunning,
			m.HistoryWriteErrorsTotal,
		)
	}

	return m
}

// RecordLoad records the outcome of a load pass
func (m *Metrics) RecordLoad(count int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.LoadsTotal.WithLabelValues(result).Inc()
	m.LoadDuration.Observe(duration.Seconds())
}

// SetRegistered sets the registered plugin gauge
func (m *Metrics) SetRegistered(n int) {
	if m == nil {
		return
	}
	m.PluginsRegistered.Set(float64(n))
}

// RecordVerificationFailure counts a rejected library by reason
func (m *Metrics) RecordVerificationFailure(reason string) {
	if m == nil {
		return
	}
	m.VerificationFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordExecution records a finished plugin execution
func (m *Metrics) RecordExecution(plugin string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ExecutionsTotal.WithLabelValues(plugin, result).Inc()
	m.ExecutionDuration.WithLabelValues(plugin).Observe(duration.Seconds())
}

// ExecutionStarted increments the in-flight gauge; the returned func decrements it
func (m *Metrics) ExecutionStarted() func() {
	if m == nil {
		return func() {}
	}
	m.ExecutionsRunning.Inc()
	return m.ExecutionsRunning.Dec
}

// RecordHistoryWriteError counts a history persistence failure
func (m *Metrics) RecordHistoryWriteError() {
	if m == nil {
		return
	}
	m.HistoryWriteErrorsTotal.Inc()
}

// Handler returns the Prometheus HTTP handler
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

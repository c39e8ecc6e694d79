// Package metrics provides the Prometheus metrics registry for backtest runs.
//
// The runner is a one-shot process, so metrics are not served over HTTP; they
// are written to a file in the node exporter textfile format when requested.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Counter metrics
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloud_backtest",
		Name:      "runs_total",
		Help:      "Total number of cloud backtest runs by status",
	}, []string{"status"})
)

// Gauge metrics
var (
	BacktestParameters = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cloud_backtest",
		Name:      "parameters",
		Help:      "Number of parameters passed to the last backtest",
	})
	LastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cloud_backtest",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last run by status",
	}, []string{"status"})
)

// Histogram metrics
var (
	StepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloud_backtest",
		Name:      "step_duration_seconds",
		Help:      "Duration of each run step",
		Buckets:   []float64{0.01, 0.1, 1, 5, 10, 30, 60, 300, 600, 1800},
	}, []string{"step"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestParameters)
		registry.MustRegister(LastRunTimestamp)
		registry.MustRegister(StepDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// RecordRun records the outcome of a run.
func RecordRun(status string) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	LastRunTimestamp.WithLabelValues(status).SetToCurrentTime()
}

// RecordStep records how long a run step took.
func RecordStep(step string, durationSeconds float64) {
	StepDuration.WithLabelValues(step).Observe(durationSeconds)
}

// RecordParameters records the parameter count of the current run.
func RecordParameters(count int) {
	BacktestParameters.Set(float64(count))
}

// WriteTextfile writes the registry to path for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

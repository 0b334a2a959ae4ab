// Package telemetry exposes job activity: Prometheus collectors fed by the
// job observer hooks, OpenTelemetry spans around each execution, and the
// admin HTTP server that serves both alongside health and manual runs.
package telemetry

import (
	"time"

	"github.com/flemzord/hostjob/internal/job"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hostjob"

// Metrics records job activity as Prometheus collectors.
type Metrics struct {
	runs     *prometheus.CounterVec
	skips    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	running  *prometheus.GaugeVec
}

// Compile-time interface check.
var _ job.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Completed job executions by outcome.",
		}, []string{"job", "status"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_skips_total",
			Help:      "Start calls skipped because the job was already running.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of job executions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"job"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while the job is executing.",
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.skips, m.duration, m.running} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Skipped implements job.Observer.
func (m *Metrics) Skipped(name string) {
	m.skips.WithLabelValues(name).Inc()
}

// Started implements job.Observer.
func (m *Metrics) Started(name string) {
	m.running.WithLabelValues(name).Set(1)
}

// Finished implements job.Observer.
func (m *Metrics) Finished(name string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.running.WithLabelValues(name).Set(0)
	m.runs.WithLabelValues(name, status).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

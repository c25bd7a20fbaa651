// Package metrics exposes collector, pool and scheduler counters in the
// Prometheus exposition format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nekowatch"

// Metrics owns a private registry so tests and multiple servers never clash
// on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	polls         *prometheus.CounterVec
	pollsSkipped  prometheus.Counter
	hosts         *prometheus.GaugeVec
	transitions   *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	trafficErrors prometheus.Counter
}

// New creates and registers every collector, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "collector", Name: "polls_total",
			Help: "Agent fetches by outcome.",
		}, []string{"result"}),
		pollsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "collector", Name: "polls_skipped_total",
			Help: "Fetches skipped because the previous one for the host was still in flight.",
		}),
		hosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hosts",
			Help: "Polled hosts by state.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "transitions_total",
			Help: "Host status transitions.",
		}, []string{"to"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_runs_total",
			Help: "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_duration_seconds",
			Help:    "Scheduled job run time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"job"}),
		trafficErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "traffic", Name: "store_errors_total",
			Help: "Per-host traffic persistence failures.",
		}),
	}

	m.Registry.MustRegister(
		m.polls, m.pollsSkipped, m.hosts, m.transitions,
		m.jobRuns, m.jobDuration, m.trafficErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// PollFinished counts one agent fetch.
func (m *Metrics) PollFinished(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.polls.WithLabelValues("ok").Inc()
	} else {
		m.polls.WithLabelValues("fail").Inc()
	}
}

// PollSkipped counts a fetch suppressed by the in-flight guard.
func (m *Metrics) PollSkipped() {
	if m == nil {
		return
	}
	m.pollsSkipped.Inc()
}

// SetHosts publishes the current up/down/pending host counts.
func (m *Metrics) SetHosts(up, down, pending int) {
	if m == nil {
		return
	}
	m.hosts.WithLabelValues("up").Set(float64(up))
	m.hosts.WithLabelValues("down").Set(float64(down))
	m.hosts.WithLabelValues("pending").Set(float64(pending))
}

// Transition counts a host going "up" or "down".
func (m *Metrics) Transition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// TrafficError counts a failed traffic write.
func (m *Metrics) TrafficError() {
	if m == nil {
		return
	}
	m.trafficErrors.Inc()
}

// JobFinished implements schedule.Observer.
func (m *Metrics) JobFinished(name string, elapsed time.Duration, panicked bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if panicked {
		outcome = "panic"
	}
	m.jobRuns.WithLabelValues(name, outcome).Inc()
	m.jobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// WatchPoolSize exports size() as the session pool gauge.
func (m *Metrics) WatchPoolSize(size func() int) {
	if m == nil {
		return
	}
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ssh", Name: "pool_sessions",
		Help: "Live pooled SSH sessions.",
	}, func() float64 { return float64(size()) }))
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

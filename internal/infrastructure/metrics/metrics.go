// Package metrics holds the process Prometheus registry and the counters the
// handlers report to. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	submissions   *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	statusLookups *prometheus.CounterVec
	feedClients   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zro", Name: "http_requests_total", Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zro", Name: "http_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zro", Name: "application_submissions_total", Help: "Loan application submissions by outcome.",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zro", Name: "application_decisions_total", Help: "Admin actions by action and outcome.",
		}, []string{"action", "outcome"}),
		statusLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zro", Name: "status_lookups_total", Help: "Status gateway lookups by outcome.",
		}, []string{"outcome"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "zro", Name: "admin_feed_clients", Help: "Connected admin feed websockets.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.submissions, m.decisions, m.statusLookups, m.feedClients,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Decision(action, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) StatusLookup(outcome string) {
	if m == nil {
		return
	}
	m.statusLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FeedClients(delta float64) {
	if m == nil {
		return
	}
	m.feedClients.Add(delta)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Notification results.
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics holds the planner's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	notifications *prometheus.CounterVec
	scans         prometheus.Counter
	scanDuration  prometheus.Histogram
	completions   prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maintenance_notifications_total",
				Help: "Reminder and completion notifications by outcome",
			},
			[]string{"kind", "result"},
		),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maintenance_reminder_scans_total",
			Help: "Completed reminder scan ticks",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maintenance_reminder_scan_duration_seconds",
			Help:    "Duration of one reminder scan",
			Buckets: prometheus.DefBuckets,
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maintenance_completions_total",
			Help: "Schedules marked completed",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.notifications, m.scans, m.scanDuration, m.completions, m.httpRequests, m.httpDuration)
	}
	return m
}

// Notification counts one notification outcome of the given kind.
func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

// Scan records one finished reminder scan.
func (m *Metrics) Scan(d time.Duration) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.scanDuration.Observe(d.Seconds())
}

// Completion counts one completed schedule.
func (m *Metrics) Completion() {
	if m == nil {
		return
	}
	m.completions.Inc()
}

// Request records one served HTTP request.
func (m *Metrics) Request(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

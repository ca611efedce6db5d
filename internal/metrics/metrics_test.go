package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Notification("reminder", ResultSent)
	m.Notification("reminder", ResultSent)
	m.Notification("completion", ResultSkipped)
	m.Scan(150 * time.Millisecond)
	m.Completion()
	m.Request("GET", "/api/maintenance-plans", "200", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("reminder", ResultSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("completion", ResultSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "maintenance_notifications_total")
	assert.Contains(t, names, "maintenance_reminder_scan_duration_seconds")
	assert.Contains(t, names, "http_requests_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Notification("reminder", ResultFailed)
		m.Scan(time.Second)
		m.Completion()
		m.Request("GET", "/", "200", time.Second)
	})
}

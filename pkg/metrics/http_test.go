package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("POST", "/api/v1/engagements/{engagementId}/status", 200, 30*time.Millisecond)
	m.Observe("POST", "/api/v1/engagements/{engagementId}/status", 200, 10*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	settled, err := seriesMatching(mfs, "http_requests_total", map[string]string{
		"method": "POST", "route": "/api/v1/engagements/{engagementId}/status", "status": "200",
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, settled.GetCounter().GetValue())

	unmatched, err := seriesMatching(mfs, "http_requests_total", map[string]string{"route": "unmatched", "status": "404"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, unmatched.GetCounter().GetValue())

	latency, err := seriesMatching(mfs, "http_request_duration_seconds", map[string]string{"method": "POST"})
	require.NoError(t, err)
	assert.InDelta(t, 0.04, latency.GetHistogram().GetSampleSum(), 1e-9)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	require.NotPanics(t, func() { m.Observe("GET", "/", 200, time.Second) })
	require.NotPanics(t, func() { NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second) })
}

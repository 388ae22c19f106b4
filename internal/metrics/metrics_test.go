package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRefresh(t *testing.T) {
	r := NewRegistry()
	r.ObserveRefresh("success", 120*time.Millisecond)
	r.ObserveRefresh("error", time.Second)
	r.ObserveRefresh("success", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Refreshes.WithLabelValues("error")))
	assert.Greater(t, testutil.ToFloat64(r.LastSuccess), 0.0)

	var nilReg *Registry
	nilReg.ObserveRefresh("success", time.Second)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Sites.Set(3)
	r.Alerts.WithLabelValues("critical").Set(2)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "siteguard_sites 3")
	assert.Contains(t, body, `siteguard_alerts{severity="critical"} 2`)
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg             *prometheus.Registry
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Dropped         *prometheus.CounterVec
	Sites           prometheus.Gauge
	Alerts          *prometheus.GaugeVec
	LastSuccess     prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteguard_refresh_total",
		Help: "Refresh cycles by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "siteguard_refresh_duration_seconds",
		Help:    "Time spent fetching and deriving one snapshot.",
		Buckets: prometheus.DefBuckets,
	})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteguard_records_dropped_total",
		Help: "Records skipped during a refresh, by kind.",
	}, []string{"kind"})
	sites := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "siteguard_sites",
		Help: "Sites in the current snapshot.",
	})
	alerts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "siteguard_alerts",
		Help: "Alerts in the current snapshot, by severity.",
	}, []string{"severity"})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "siteguard_last_success_timestamp_seconds",
		Help: "Unix time of the last successful refresh.",
	})
	r.MustRegister(refreshes, duration, dropped, sites, alerts, lastSuccess)
	return &Registry{
		reg:             r,
		Refreshes:       refreshes,
		RefreshDuration: duration,
		Dropped:         dropped,
		Sites:           sites,
		Alerts:          alerts,
		LastSuccess:     lastSuccess,
	}
}

// ObserveRefresh records one refresh attempt. outcome is "success" or
// "error".
func (r *Registry) ObserveRefresh(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.Refreshes.WithLabelValues(outcome).Inc()
	r.RefreshDuration.Observe(d.Seconds())
	if outcome == "success" {
		r.LastSuccess.Set(float64(time.Now().Unix()))
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Package metrics holds Prometheus instrumentation for the monitoring
// pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	CyclesTotal       prometheus.Counter
	FetchErrorsTotal  prometheus.Counter
	PostsMatchedTotal *prometheus.CounterVec
	AlertsTotal       *prometheus.CounterVec
	FetchDuration     prometheus.Histogram
}

// New registers and returns pipeline metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threatmon_poll_cycles_total",
			Help: "Total completed poll cycles.",
		}),
		FetchErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "threatmon_fetch_errors_total",
			Help: "Total feed fetch failures.",
		}),
		PostsMatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threatmon_posts_matched_total",
			Help: "Total keyword-matching posts classified, by incident type.",
		}, []string{"incident_type"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threatmon_alerts_triggered_total",
			Help: "Total alerts triggered, by severity.",
		}, []string{"severity"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "threatmon_fetch_duration_seconds",
			Help:    "Duration of feed fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.FetchErrorsTotal,
		m.PostsMatchedTotal,
		m.AlertsTotal,
		m.FetchDuration,
	)
	return m
}

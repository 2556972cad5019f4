// Package metrics provides Prometheus metrics for the element-store server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors. Construct it once per
// process; promauto registers against the default registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ElementSavesTotal   *prometheus.CounterVec
	ElementDeletesTotal prometheus.Counter
	BackupFailuresTotal prometheus.Counter

	ShareAccessesTotal prometheus.Counter

	WebsocketClients prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{}

	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foliosync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foliosync_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.ElementSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foliosync_element_saves_total",
			Help: "Total number of element upserts",
		},
		[]string{"status"},
	)

	m.ElementDeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foliosync_element_deletes_total",
			Help: "Total number of element soft deletes",
		},
	)

	m.BackupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foliosync_backup_failures_total",
			Help: "Total number of failed pre-delete backups",
		},
	)

	m.ShareAccessesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foliosync_share_accesses_total",
			Help: "Total number of recorded share-link accesses",
		},
	)

	m.WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "foliosync_websocket_clients",
			Help: "Number of connected realtime clients",
		},
	)

	return m
}

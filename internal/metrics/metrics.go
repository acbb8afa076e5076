// Package metrics exposes Prometheus collectors for the watch service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roundsTotal          prometheus.Counter
	fetchesTotal         *prometheus.CounterVec
	fetchDurationSeconds prometheus.Histogram
	matchesTotal         prometheus.Counter
	notificationsTotal   *prometheus.CounterVec
	combinationsTotal    prometheus.Gauge
	combinationsFound    prometheus.Gauge

	once sync.Once
)

// Init registers the collectors with the default registry. Safe to call
// multiple times.
func Init() {
	once.Do(func() {
		roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_rounds_total",
			Help: "Total number of completed poll rounds.",
		})
		fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_fetches_total",
			Help: "Total number of page fetches, labeled by result.",
		}, []string{"result"})
		fetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitewatch_fetch_duration_seconds",
			Help:    "Latency of page fetches.",
			Buckets: prometheus.DefBuckets,
		})
		matchesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sitewatch_matches_total",
			Help: "Total number of newly found (url, phrase) combinations.",
		})
		notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_notifications_total",
			Help: "Total number of notification attempts, labeled by result.",
		}, []string{"result"})
		combinationsTotal = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sitewatch_combinations",
			Help: "Number of (url, phrase) combinations being watched.",
		})
		combinationsFound = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sitewatch_combinations_found",
			Help: "Number of combinations found so far.",
		})
	})
}

// RecordRound counts a completed round and updates progress gauges.
func RecordRound(found, total int) {
	if roundsTotal == nil {
		return
	}
	roundsTotal.Inc()
	combinationsFound.Set(float64(found))
	combinationsTotal.Set(float64(total))
}

// RecordFetch counts one fetch attempt with its result label and latency.
func RecordFetch(result string, dur time.Duration) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(result).Inc()
	fetchDurationSeconds.Observe(dur.Seconds())
}

// RecordMatch counts one newly found combination.
func RecordMatch() {
	if matchesTotal == nil {
		return
	}
	matchesTotal.Inc()
}

// RecordNotification counts one notification attempt with its result label.
func RecordNotification(result string) {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.WithLabelValues(result).Inc()
}

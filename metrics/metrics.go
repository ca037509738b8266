// Package metrics holds the prometheus collectors of the verification path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the collectors of an existence checker
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	checks       *prometheus.CounterVec
	fetchSeconds prometheus.Histogram
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkswap",
			Name:      "cache_lookups_total",
			Help:      "Existence cache lookups by result.",
		}, []string{"result"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkswap",
			Name:      "checks_total",
			Help:      "Network verifications by verdict and reason.",
		}, []string{"verdict", "reason"}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "linkswap",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of verification requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.cacheLookups, m.checks, m.fetchSeconds)

	return m
}

// CacheLookup records a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Check records the verdict of a network verification
func (m *Metrics) Check(exists bool, reason string) {
	if m == nil {
		return
	}
	verdict := "missing"
	if exists {
		verdict = "exists"
	}
	m.checks.WithLabelValues(verdict, reason).Inc()
}

// Fetch records the duration of a verification request
func (m *Metrics) Fetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchSeconds.Observe(d.Seconds())
}

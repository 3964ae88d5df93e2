package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters for location and weather outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	acquisitions  *prometheus.CounterVec
	naming        *prometheus.CounterVec
	weatherFetch  *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoweather",
			Name:      "location_acquisitions_total",
			Help:      "Location acquisition attempts by outcome.",
		}, []string{"outcome"}),
		naming: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoweather",
			Name:      "reverse_geocode_total",
			Help:      "Reverse geocoding attempts by outcome.",
		}, []string{"outcome"}),
		weatherFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoweather",
			Name:      "weather_fetches_total",
			Help:      "Weather fetches by payload kind and outcome.",
		}, []string{"kind", "outcome"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoweather",
			Name:      "store_write_failures_total",
			Help:      "Failed persistent store writes by key.",
		}, []string{"key"}),
	}
	reg.MustRegister(m.acquisitions, m.naming, m.weatherFetch, m.storeFailures)
	return m
}

// Acquisition records the outcome of one acquisition ("ok", "accuracy_rejected", "denied", ...).
func (m *Metrics) Acquisition(outcome string) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(outcome).Inc()
}

// Naming records the outcome of one reverse geocode ("ok", "fallback", "unresolved").
func (m *Metrics) Naming(outcome string) {
	if m == nil {
		return
	}
	m.naming.WithLabelValues(outcome).Inc()
}

// WeatherFetch records the outcome of a current or forecast fetch.
func (m *Metrics) WeatherFetch(kind, outcome string) {
	if m == nil {
		return
	}
	m.weatherFetch.WithLabelValues(kind, outcome).Inc()
}

// StoreFailure records a persistence failure that was logged and swallowed.
func (m *Metrics) StoreFailure(key string) {
	if m == nil {
		return
	}
	m.storeFailures.WithLabelValues(key).Inc()
}

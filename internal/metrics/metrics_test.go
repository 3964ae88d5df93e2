package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/neexbeast/geoweather/internal/metrics"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Acquisition("ok")
	m.Acquisition("ok")
	m.Acquisition("accuracy_rejected")
	m.Naming("fallback")
	m.WeatherFetch("current", "ok")
	m.StoreFailure("userLocation")

	count, err := testutil.GatherAndCount(reg, "geoweather_location_acquisitions_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome label")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.Acquisition("ok")
		m.Naming("ok")
		m.WeatherFetch("forecast", "error")
		m.StoreFailure("weatherData")
	})
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		HTTPRequestsTotal,
		HTTPRequestDuration,
		StaticNotFoundTotal,
		DBQueryDuration,
		DBErrorsTotal,
		DBPoolAcquireTimeouts,
		DBPoolConnections,
	}

	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecIncrements(t *testing.T) {
	counter := HTTPRequestsTotal.WithLabelValues("GET", "/db/read", "200")
	before := testutil.ToFloat64(counter)

	counter.Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestGaugeVecSet(t *testing.T) {
	DBPoolConnections.WithLabelValues("idle").Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(DBPoolConnections.WithLabelValues("idle")))
}

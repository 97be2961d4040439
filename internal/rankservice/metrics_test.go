package rankservice

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewMetrics().Register(reg))
	assert.Error(t, NewMetrics().Register(reg), "duplicate registration should fail")
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.observeRPC("Rank", "OK", 0.1)
	m.observeCache(CacheHit)
	m.addEntities(3)
}

func TestServerRecordsMetrics(t *testing.T) {
	m := NewMetrics()
	client := startServer(t, Options{Metrics: m})

	_, err := client.Rank(context.Background(), threeEntityRequest())
	require.NoError(t, err)
	_, err = client.Rank(context.Background(), threeEntityRequest())
	require.NoError(t, err)
	_, err = client.Compute(context.Background(), []float64{0.5}, 0)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("Rank", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("Compute", "InvalidArgument")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues(CacheMiss)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entities))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

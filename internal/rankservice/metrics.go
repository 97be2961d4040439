package rankservice

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRequestsTotal   = "atleastn_rpc_requests_total"
	MetricRequestDuration = "atleastn_rpc_duration_seconds"
	MetricCacheTotal      = "atleastn_rank_cache_total"
	MetricEntitiesRanked  = "atleastn_entities_ranked_total"
)

// Cache outcomes used as the "result" label.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// #region metrics
// Metrics holds the Prometheus collectors of a Server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
	entities prometheus.Counter
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestsTotal,
				Help: "Total number of Ranker RPCs by method and status code",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRequestDuration,
				Help:    "Histogram of Ranker RPC latency in seconds by method",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheTotal,
				Help: "Rank response cache lookups by result",
			},
			[]string{"result"},
		),
		entities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricEntitiesRanked,
				Help: "Total number of entities evaluated by Rank",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.duration, m.cache, m.entities}
}

func (m *Metrics) observeRPC(method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(seconds)
}

func (m *Metrics) observeCache(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) addEntities(n int) {
	if m == nil {
		return
	}
	m.entities.Add(float64(n))
}

// #endregion metrics

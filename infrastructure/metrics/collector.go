package metrics

import (
	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/pkg/fetchpool"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "azeight"

var (
	onlineDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "online"),
		"1 when the remote API is considered reachable.", nil, nil)
	consecutiveErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "consecutive_errors"),
		"Failures since the last success.", nil, nil)
	requestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "requests_total"),
		"Remote requests by result.", []string{"result"}, nil)
	successRateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "success_rate_percent"),
		"Lifetime request success rate.", nil, nil)
	responseTimeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "avg_response_seconds"),
		"Mean latency over the recent response window.", nil, nil)
	recoveryDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "connection", "recovery_attempts"),
		"Recovery attempts since the last successful fetch.", nil, nil)

	cacheRequestsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "requests_total"),
		"Cache lookups by result.", []string{"result"}, nil)
	cacheErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "errors_total"),
		"Cache persistence failures.", nil, nil)
	cacheEntriesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "entries"),
		"Entries currently cached.", nil, nil)
	cacheBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "bytes"),
		"Size of the cached payloads.", nil, nil)
	cacheValidDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "valid"),
		"1 while the cache is inside its TTL.", nil, nil)

	healthScoreDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "health", "score"),
		"Score of the last recorded health report.", []string{"component"}, nil)

	poolJobsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "fetch_pool", "jobs_total"),
		"Refresh jobs by outcome.", []string{"outcome"}, nil)
)

// Collector reads the live state on every scrape; it holds no metric state of its own.
type Collector struct {
	offline domainOffline.IOfflineUsecase
	health  domainHealth.IHealthUsecase
	pool    *fetchpool.Pool
}

// NewCollector builds a collector. health and pool are optional.
func NewCollector(offline domainOffline.IOfflineUsecase, health domainHealth.IHealthUsecase, pool *fetchpool.Pool) *Collector {
	return &Collector{offline: offline, health: health, pool: pool}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		onlineDesc, consecutiveErrorsDesc, requestsDesc, successRateDesc, responseTimeDesc, recoveryDesc,
		cacheRequestsDesc, cacheErrorsDesc, cacheEntriesDesc, cacheBytesDesc, cacheValidDesc,
		healthScoreDesc, poolJobsDesc,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.offline.HealthMetrics()
	conn := m.Connection

	ch <- prometheus.MustNewConstMetric(onlineDesc, prometheus.GaugeValue, boolToFloat(conn.IsOnline))
	ch <- prometheus.MustNewConstMetric(consecutiveErrorsDesc, prometheus.GaugeValue, float64(conn.ConsecutiveErrors))
	ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(conn.SuccessfulRequests), "success")
	ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(conn.FailedRequests), "failure")
	ch <- prometheus.MustNewConstMetric(successRateDesc, prometheus.GaugeValue, conn.SuccessRate)
	ch <- prometheus.MustNewConstMetric(responseTimeDesc, prometheus.GaugeValue, conn.AverageResponseTime)
	ch <- prometheus.MustNewConstMetric(recoveryDesc, prometheus.GaugeValue, float64(m.RecoveryAttempts))

	ch <- prometheus.MustNewConstMetric(cacheRequestsDesc, prometheus.CounterValue, float64(m.Cache.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(cacheRequestsDesc, prometheus.CounterValue, float64(m.Cache.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(cacheErrorsDesc, prometheus.CounterValue, float64(m.Cache.Errors))
	ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(m.Cache.Size))
	ch <- prometheus.MustNewConstMetric(cacheBytesDesc, prometheus.GaugeValue, float64(m.Cache.TotalBytes))
	ch <- prometheus.MustNewConstMetric(cacheValidDesc, prometheus.GaugeValue, boolToFloat(m.CacheValid))

	if c.health != nil {
		if r, ok := c.health.LastReport(); ok {
			ch <- prometheus.MustNewConstMetric(healthScoreDesc, prometheus.GaugeValue, float64(r.OverallScore), "overall")
			for name, comp := range map[string]*domainHealth.Component{
				"connection":  r.Connection,
				"cache":       r.Cache,
				"performance": r.Performance,
			} {
				if comp != nil {
					ch <- prometheus.MustNewConstMetric(healthScoreDesc, prometheus.GaugeValue, float64(comp.Score), name)
				}
			}
		}
	}

	if c.pool != nil {
		s := c.pool.GetStats()
		ch <- prometheus.MustNewConstMetric(poolJobsDesc, prometheus.CounterValue, float64(s.TotalProcessed), "processed")
		ch <- prometheus.MustNewConstMetric(poolJobsDesc, prometheus.CounterValue, float64(s.TotalDropped), "dropped")
		ch <- prometheus.MustNewConstMetric(poolJobsDesc, prometheus.CounterValue, float64(s.TotalErrors), "failed")
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

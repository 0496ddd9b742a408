package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// coordMetrics holds the coordinator's telemetry counters. They are plain
// collectors; callers that scrape can register them on their own registry.
type coordMetrics struct {
	opportunitiesProcessed prometheus.Counter
	batchCount             prometheus.Counter
	parallelExecutions     prometheus.Counter
	cacheHits              prometheus.Counter
	taskFailures           *prometheus.CounterVec
}

func newCoordMetrics() *coordMetrics {
	return &coordMetrics{
		opportunitiesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_opportunities_processed_total",
			Help: "Number of opportunities submitted for evaluation",
		}),
		batchCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_batches_total",
			Help: "Number of batches processed in batch mode",
		}),
		parallelExecutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_parallel_executions_total",
			Help: "Number of parallel fan-out passes",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_cache_hits_total",
			Help: "Number of evaluations served from the result cache",
		}),
		taskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coordinator_task_failures_total",
			Help: "Number of dropped evaluation tasks by failure type",
		}, []string{"failure_type"}),
	}
}

// Collectors returns every counter for registration on a caller's registry.
func (m *coordMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.opportunitiesProcessed,
		m.batchCount,
		m.parallelExecutions,
		m.cacheHits,
		m.taskFailures,
	}
}

// counterValue reads a counter's current value through the metric protocol.
func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil || metric.Counter == nil {
		return 0
	}
	return metric.Counter.GetValue()
}

// Metrics is a read-only snapshot of the coordinator's counters.
type Metrics struct {
	Mode                   Mode
	OpportunitiesProcessed uint64
	BatchCount             uint64
	ParallelExecutions     uint64
	CacheHits              uint64
	TotalTime              time.Duration
	SpeedupFactor          float64
	CacheHitRate           float64
}

// Metrics snapshots the coordinator's counters.
func (c *Coordinator) Metrics() Metrics {
	c.mu.Lock()
	metrics := c.metrics
	totalTime := c.totalTime
	speedup := c.speedup
	c.mu.Unlock()

	return Metrics{
		Mode:                   c.mode,
		OpportunitiesProcessed: uint64(counterValue(metrics.opportunitiesProcessed)),
		BatchCount:             uint64(counterValue(metrics.batchCount)),
		ParallelExecutions:     uint64(counterValue(metrics.parallelExecutions)),
		CacheHits:              uint64(counterValue(metrics.cacheHits)),
		TotalTime:              totalTime,
		SpeedupFactor:          speedup,
		CacheHitRate:           c.cache.HitRate(),
	}
}

// counters returns the current counter set under the lock so increments
// never race with ResetMetrics swapping the set out.
func (c *Coordinator) counters() *coordMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Collectors returns the coordinator's prometheus collectors for scraping.
func (c *Coordinator) Collectors() []prometheus.Collector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics.Collectors()
}

// ResetMetrics zeroes every counter, including the cache's hit/miss stats.
// Collectors handed out before the reset keep reporting the old series.
func (c *Coordinator) ResetMetrics() {
	c.mu.Lock()
	c.metrics = newCoordMetrics()
	c.totalTime = 0
	c.speedup = 0
	c.mu.Unlock()
	c.cache.ResetStats()
}

// Package coordinator fans an opportunity batch out to an evaluator under
// one of four interchangeable strategies: sequential, batched, parallel
// worker pool, or cache-accelerated "ultra". Individual task failures are
// logged and dropped; Coordinate always returns a result list, never an
// error.
package coordinator

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Omni-Defi-Production-System1/execution-lane/config"
	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

// Mode selects the coordination strategy.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeBatch      Mode = "batch"
	ModeParallel   Mode = "parallel"
	ModeUltra      Mode = "ultra"
)

// Defaults for scheduler sizing.
const (
	DefaultMaxWorkers      = 8
	DefaultBatchSize       = 100
	DefaultTaskTimeout     = 5 * time.Second
	DefaultBaselinePerItem = 100 * time.Millisecond
)

// EvalFunc scores one opportunity. The coordinator treats it as an opaque,
// potentially blocking unit of work.
type EvalFunc func(*types.Opportunity) (*types.EvaluationResult, error)

// Options sizes a Coordinator. Zero values select the defaults.
type Options struct {
	Mode            Mode
	MaxWorkers      int
	BatchSize       int
	TaskTimeout     time.Duration
	CacheTTL        time.Duration
	BaselinePerItem time.Duration
	// RequestsPerSecond throttles parallel task starts; zero disables.
	RequestsPerSecond float64
	Burst             int
	// Seed feeds the prioritization jitter, making ultra-mode ordering
	// reproducible under test. Zero seeds from the clock.
	Seed int64
}

// FromConfig maps the kernel configuration onto coordinator options.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Mode:              Mode(cfg.Mode),
		MaxWorkers:        cfg.MaxWorkers,
		BatchSize:         cfg.BatchSize,
		TaskTimeout:       cfg.TaskTimeout,
		CacheTTL:          cfg.CacheTTL,
		BaselinePerItem:   cfg.BaselinePerItem,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.BurstSize,
	}
}

// Coordinator schedules opportunity evaluation. Safe for concurrent use.
type Coordinator struct {
	mode            Mode
	maxWorkers      int
	batchSize       int
	taskTimeout     time.Duration
	baselinePerItem time.Duration

	cache   *ResultCache
	limiter *rate.Limiter
	logger  *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.Mutex
	metrics   *coordMetrics
	totalTime time.Duration
	speedup   float64
}

// New creates a coordinator. A nil logger is replaced with a no-op one.
func New(opts Options, logger *zap.Logger) *Coordinator {
	if opts.Mode == "" {
		opts.Mode = ModeParallel
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}
	if opts.BaselinePerItem <= 0 {
		opts.BaselinePerItem = DefaultBaselinePerItem
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Coordinator{
		mode:            opts.Mode,
		maxWorkers:      opts.MaxWorkers,
		batchSize:       opts.BatchSize,
		taskTimeout:     opts.TaskTimeout,
		baselinePerItem: opts.BaselinePerItem,
		cache:           NewResultCache(opts.CacheTTL),
		limiter:         limiter,
		logger:          logger,
		rng:             rand.New(rand.NewSource(opts.Seed)),
		metrics:         newCoordMetrics(),
	}
}

// Cache exposes the coordinator's result cache.
func (c *Coordinator) Cache() *ResultCache {
	return c.cache
}

// Coordinate evaluates every opportunity under the configured strategy and
// returns the profitable results. Task failures never surface as errors;
// callers always receive a (possibly empty) list.
func (c *Coordinator) Coordinate(ctx context.Context, opportunities []*types.Opportunity, eval EvalFunc) []*types.EvaluationResult {
	start := time.Now()

	var results []*types.EvaluationResult
	switch c.mode {
	case ModeBatch:
		results = c.runBatched(opportunities, eval)
	case ModeParallel:
		results = c.runParallel(ctx, opportunities, eval)
	case ModeUltra:
		results = c.runUltra(ctx, opportunities, eval)
	default:
		results = c.runSequential(opportunities, eval)
	}

	elapsed := time.Since(start)
	c.counters().opportunitiesProcessed.Add(float64(len(opportunities)))

	c.mu.Lock()
	c.totalTime += elapsed
	baseline := time.Duration(len(opportunities)) * c.baselinePerItem
	if elapsed > 0 {
		c.speedup = float64(baseline) / float64(elapsed)
	} else {
		c.speedup = 1
	}
	speedup := c.speedup
	c.mu.Unlock()

	c.logger.Info("Coordination pass complete",
		zap.String("mode", string(c.mode)),
		zap.Int("opportunities", len(opportunities)),
		zap.Int("profitable", len(results)),
		zap.Duration("elapsed", elapsed),
		zap.Float64("speedup", speedup))

	return results
}

// runSequential is the 1x baseline: one evaluation at a time on the calling
// goroutine.
func (c *Coordinator) runSequential(opportunities []*types.Opportunity, eval EvalFunc) []*types.EvaluationResult {
	var results []*types.EvaluationResult
	for _, opp := range opportunities {
		result, ok := c.evalOne(opp, eval)
		if ok && result.Profitable() {
			results = append(results, result)
		}
	}
	return results
}

// runBatched partitions the batch into fixed-size chunks. Chunking affects
// overhead accounting only; member evaluation is independent.
func (c *Coordinator) runBatched(opportunities []*types.Opportunity, eval EvalFunc) []*types.EvaluationResult {
	var results []*types.EvaluationResult
	for start := 0; start < len(opportunities); start += c.batchSize {
		end := start + c.batchSize
		if end > len(opportunities) {
			end = len(opportunities)
		}
		c.counters().batchCount.Inc()
		for _, opp := range opportunities[start:end] {
			result, ok := c.evalOne(opp, eval)
			if ok && result.Profitable() {
				results = append(results, result)
			}
		}
	}
	return results
}

func (c *Coordinator) runParallel(ctx context.Context, opportunities []*types.Opportunity, eval EvalFunc) []*types.EvaluationResult {
	var results []*types.EvaluationResult
	for _, task := range c.evaluateParallel(ctx, opportunities, eval) {
		if task.result.Profitable() {
			results = append(results, task.result)
		}
	}
	return results
}

// runUltra layers prioritization and the TTL cache over the worker pool:
// cache hits skip the evaluator entirely, misses fall back to parallel
// evaluation and populate the cache.
func (c *Coordinator) runUltra(ctx context.Context, opportunities []*types.Opportunity, eval EvalFunc) []*types.EvaluationResult {
	prioritized := c.prioritize(opportunities)

	var results []*types.EvaluationResult
	uncached := make([]*types.Opportunity, 0, len(prioritized))
	for _, opp := range prioritized {
		if cached, ok := c.cache.Get(c.cache.Key(opp)); ok {
			c.counters().cacheHits.Inc()
			if cached.Profitable() {
				results = append(results, cached)
			}
			continue
		}
		uncached = append(uncached, opp)
	}

	for _, task := range c.evaluateParallel(ctx, uncached, eval) {
		c.cache.Set(c.cache.Key(task.opp), task.result)
		if task.result.Profitable() {
			results = append(results, task.result)
		}
	}
	return results
}

type taskResult struct {
	opp    *types.Opportunity
	result *types.EvaluationResult
}

// evaluateParallel fans the batch out to a bounded worker pool. Each task
// carries an independent timeout; timed-out and failing tasks are dropped.
// Result order is unspecified.
func (c *Coordinator) evaluateParallel(ctx context.Context, opportunities []*types.Opportunity, eval EvalFunc) []taskResult {
	if len(opportunities) == 0 {
		return nil
	}
	c.counters().parallelExecutions.Inc()

	sem := make(chan struct{}, c.maxWorkers)
	out := make(chan taskResult, len(opportunities))
	var wg sync.WaitGroup

	for _, opp := range opportunities {
		wg.Add(1)
		go func(opp *types.Opportunity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					c.counters().taskFailures.WithLabelValues("rate_limit").Inc()
					return
				}
			}
			if result, ok := c.runTask(ctx, opp, eval); ok {
				out <- taskResult{opp: opp, result: result}
			}
		}(opp)
	}

	wg.Wait()
	close(out)

	collected := make([]taskResult, 0, len(opportunities))
	for task := range out {
		collected = append(collected, task)
	}
	return collected
}

// runTask executes one evaluation under the task timeout. On timeout the
// evaluator goroutine is abandoned (fire and forget); its buffered channel
// keeps it from leaking a blocked send.
func (c *Coordinator) runTask(ctx context.Context, opp *types.Opportunity, eval EvalFunc) (*types.EvaluationResult, bool) {
	done := make(chan *types.EvaluationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Warn("Evaluation panicked", zap.Any("panic", r))
				c.counters().taskFailures.WithLabelValues("panic").Inc()
				done <- nil
			}
		}()
		result, err := eval(opp)
		if err != nil {
			c.logger.Debug("Evaluation failed", zap.Error(err))
			c.counters().taskFailures.WithLabelValues("error").Inc()
			done <- nil
			return
		}
		done <- result
	}()

	select {
	case result := <-done:
		return result, result != nil
	case <-time.After(c.taskTimeout):
		c.logger.Debug("Evaluation timed out", zap.Duration("timeout", c.taskTimeout))
		c.counters().taskFailures.WithLabelValues("timeout").Inc()
		return nil, false
	case <-ctx.Done():
		c.counters().taskFailures.WithLabelValues("canceled").Inc()
		return nil, false
	}
}

// prioritize orders opportunities by loan amount, largest first, with
// bounded random jitter so smaller opportunities are not starved
// deterministically. The input slice is not modified.
func (c *Coordinator) prioritize(opportunities []*types.Opportunity) []*types.Opportunity {
	scored := make([]struct {
		opp   *types.Opportunity
		score float64
	}, len(opportunities))

	c.rngMu.Lock()
	for i, opp := range opportunities {
		amount, _ := opp.LoanAmount.Float64()
		jitter := 1 + (c.rng.Float64()*0.2 - 0.1)
		scored[i].opp = opp
		scored[i].score = amount * jitter
	}
	c.rngMu.Unlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ordered := make([]*types.Opportunity, len(scored))
	for i := range scored {
		ordered[i] = scored[i].opp
	}
	return ordered
}

// evalOne runs the evaluator inline, isolating errors and panics.
func (c *Coordinator) evalOne(opp *types.Opportunity, eval EvalFunc) (result *types.EvaluationResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Evaluation panicked", zap.Any("panic", r))
			c.counters().taskFailures.WithLabelValues("panic").Inc()
			result, ok = nil, false
		}
	}()

	result, err := eval(opp)
	if err != nil {
		c.logger.Debug("Evaluation failed", zap.Error(err))
		c.counters().taskFailures.WithLabelValues("error").Inc()
		return nil, false
	}
	return result, result != nil
}

package coordinator

import (
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

// DefaultCacheTTL is the validity window of a cached evaluation.
const DefaultCacheTTL = 5 * time.Second

// ResultCache memoizes evaluation results under a TTL. The backing store is
// an expirable LRU; the hit/miss counters live for the cache's lifetime and
// reset only via ResetStats. All methods are safe for concurrent use from
// parallel worker tasks.
type ResultCache struct {
	entries *expirable.LRU[uint64, *types.EvaluationResult]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewResultCache creates a cache whose entries expire after ttl. ttl <= 0
// selects DefaultCacheTTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		entries: expirable.NewLRU[uint64, *types.EvaluationResult](0, nil, ttl),
	}
}

// Key derives the cache key from the opportunity's normalized signature:
// token sequence, loan amount and provider.
func (c *ResultCache) Key(opp *types.Opportunity) uint64 {
	var sb strings.Builder
	for i, tok := range opp.Tokens {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(tok.Hex())
	}
	sb.WriteByte(':')
	sb.WriteString(opp.LoanAmount.String())
	sb.WriteByte(':')
	sb.WriteString(opp.Provider)
	return xxhash.Sum64String(sb.String())
}

// Get returns the cached result if it was inserted within the TTL window.
func (c *ResultCache) Get(key uint64) (*types.EvaluationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries.Get(key)
	if ok {
		c.hits++
		return result, true
	}
	c.misses++
	return nil, false
}

// Set stores a result, overwriting any previous entry for the key.
func (c *ResultCache) Set(key uint64, result *types.EvaluationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, result)
}

// Stats returns the hit and miss counts.
func (c *ResultCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// HitRate returns the hit percentage over all lookups.
func (c *ResultCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// ResetStats zeroes the hit/miss counters.
func (c *ResultCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
}

// Purge drops every cached entry.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

package coordinator

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

func cacheOpp(provider, amount string) *types.Opportunity {
	return &types.Opportunity{
		Tokens: []common.Address{
			common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
			common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		},
		LoanAmount: decimal.RequireFromString(amount),
		Provider:   provider,
	}
}

func TestResultCacheGetSet(t *testing.T) {
	cache := NewResultCache(time.Minute)

	opp := cacheOpp("aave", "50000")
	key := cache.Key(opp)

	_, ok := cache.Get(key)
	assert.False(t, ok)

	want := &types.EvaluationResult{
		LoanAmount: opp.LoanAmount,
		Provider:   opp.Provider,
		Profit:     decimal.RequireFromString("949"),
	}
	cache.Set(key, want)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestResultCacheKeyDiscriminates(t *testing.T) {
	cache := NewResultCache(time.Minute)

	base := cacheOpp("aave", "50000")
	assert.Equal(t, cache.Key(base), cache.Key(cacheOpp("aave", "50000")))
	assert.NotEqual(t, cache.Key(base), cache.Key(cacheOpp("balancer", "50000")))
	assert.NotEqual(t, cache.Key(base), cache.Key(cacheOpp("aave", "50001")))

	reversed := cacheOpp("aave", "50000")
	reversed.Tokens[0], reversed.Tokens[1] = reversed.Tokens[1], reversed.Tokens[0]
	assert.NotEqual(t, cache.Key(base), cache.Key(reversed))
}

func TestResultCacheTTLExpiry(t *testing.T) {
	cache := NewResultCache(40 * time.Millisecond)

	key := cache.Key(cacheOpp("dydx", "1000"))
	cache.Set(key, &types.EvaluationResult{Profit: decimal.NewFromInt(1)})

	_, ok := cache.Get(key)
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)

	_, ok = cache.Get(key)
	assert.False(t, ok, "entry should expire after the TTL")
}

func TestResultCacheStats(t *testing.T) {
	cache := NewResultCache(time.Minute)
	key := cache.Key(cacheOpp("aave", "100"))

	cache.Get(key) // miss
	cache.Set(key, &types.EvaluationResult{})
	cache.Get(key) // hit
	cache.Get(key) // hit

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 66.6, cache.HitRate(), 0.1)

	cache.ResetStats()
	hits, misses = cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.Zero(t, cache.HitRate())

	// Entries survive a stats reset.
	_, ok := cache.Get(key)
	assert.True(t, ok)

	cache.Purge()
	_, ok = cache.Get(key)
	assert.False(t, ok)
}

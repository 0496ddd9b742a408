// Package types defines the data model shared by the arbitrage decision
// kernel: liquidity pools, candidate routes, opportunities and evaluation
// results. All quantities are arbitrary-precision decimals; token and pool
// identifiers are EVM addresses.
package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrMalformed marks validation failures on pools, routes and opportunities.
// Callers should test with errors.Is.
var ErrMalformed = errors.New("malformed input")

// PoolType tags the pricing model a pool follows.
type PoolType string

const (
	PoolConstantProduct       PoolType = "constant_product"
	PoolStableSwap            PoolType = "stable_swap"
	PoolConcentratedLiquidity PoolType = "concentrated_liquidity"
)

// Well-known DEX tags. The gas schedule dispatches on these; unknown tags
// fall back to V2-style swap costs.
const (
	DEXQuickswap = "quickswap"
	DEXSushiswap = "sushiswap"
	DEXUniswapV3 = "uniswap_v3"
	DEXCurve     = "curve"
	DEXBalancer  = "balancer"
)

// Pool is a snapshot of one AMM pool's state. Pools are value objects
// supplied by an external registry; the kernel never mutates them.
type Pool struct {
	Address     common.Address  `json:"address"`
	DEX         string          `json:"dex"`
	Token0      common.Address  `json:"token0"`
	Token1      common.Address  `json:"token1"`
	Reserve0    decimal.Decimal `json:"reserve0"`
	Reserve1    decimal.Decimal `json:"reserve1"`
	Fee         decimal.Decimal `json:"fee"`
	Type        PoolType        `json:"type"`
	AmpFactor   decimal.Decimal `json:"amp_factor,omitempty"`
	TickSpacing int32           `json:"tick_spacing,omitempty"`
}

// Validate checks structural invariants. A pool with non-positive reserves is
// still valid; it is merely untradable and prices to zero output.
func (p *Pool) Validate() error {
	if p.Token0 == p.Token1 {
		return fmt.Errorf("%w: pool %s has identical tokens", ErrMalformed, p.Address.Hex())
	}
	if p.Fee.IsNegative() || p.Fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: pool %s fee %s outside [0,1)", ErrMalformed, p.Address.Hex(), p.Fee)
	}
	switch p.Type {
	case PoolConstantProduct, PoolConcentratedLiquidity:
	case PoolStableSwap:
		if !p.AmpFactor.IsPositive() {
			return fmt.Errorf("%w: stable-swap pool %s needs a positive amplification factor", ErrMalformed, p.Address.Hex())
		}
	default:
		return fmt.Errorf("%w: pool %s has unknown type %q", ErrMalformed, p.Address.Hex(), p.Type)
	}
	return nil
}

// Tradable reports whether both reserves are positive.
func (p *Pool) Tradable() bool {
	return p.Reserve0.IsPositive() && p.Reserve1.IsPositive()
}

// ReservesFor returns the (in, out) reserves for a trade entering the pool
// with tokenIn. tokenIn must be one of the pool's tokens.
func (p *Pool) ReservesFor(tokenIn common.Address) (decimal.Decimal, decimal.Decimal) {
	if tokenIn == p.Token0 {
		return p.Reserve0, p.Reserve1
	}
	return p.Reserve1, p.Reserve0
}

// TokenOutFor returns the token received when entering with tokenIn.
func (p *Pool) TokenOutFor(tokenIn common.Address) common.Address {
	if tokenIn == p.Token0 {
		return p.Token1
	}
	return p.Token0
}

// SwapStep is one hop of a route. A step is either pool-backed (priced
// through the AMM model) or quoted (carries a pre-computed slippage and a
// signed price impact from an external quoter, applied multiplicatively).
type SwapStep struct {
	Pool    *Pool          `json:"pool,omitempty"`
	TokenIn common.Address `json:"token_in"`

	Quoted      bool            `json:"quoted,omitempty"`
	Slippage    decimal.Decimal `json:"slippage,omitempty"`
	PriceImpact decimal.Decimal `json:"price_impact,omitempty"`
}

// Validate checks the step references a pool or carries a quote.
func (s *SwapStep) Validate() error {
	if s.Quoted {
		return nil
	}
	if s.Pool == nil {
		return fmt.Errorf("%w: swap step has neither pool nor quote", ErrMalformed)
	}
	if err := s.Pool.Validate(); err != nil {
		return err
	}
	if s.TokenIn != s.Pool.Token0 && s.TokenIn != s.Pool.Token1 {
		return fmt.Errorf("%w: token %s not in pool %s", ErrMalformed, s.TokenIn.Hex(), s.Pool.Address.Hex())
	}
	return nil
}

// Route is a cyclic token path: the token sequence starts and ends at the
// same token and Pools[i] carries the hop Tokens[i] -> Tokens[i+1].
type Route struct {
	Tokens []common.Address `json:"tokens"`
	Pools  []*Pool          `json:"pools"`
}

// Hops returns the number of swaps in the route.
func (r *Route) Hops() int {
	return len(r.Pools)
}

// Validate enforces the cycle invariants: at least two hops, closed cycle,
// hop count matching the token sequence, hop count within maxHops, and no
// repeated token other than the start token.
func (r *Route) Validate(maxHops int) error {
	if len(r.Tokens) < 3 {
		return fmt.Errorf("%w: route has %d tokens, need at least 3", ErrMalformed, len(r.Tokens))
	}
	if r.Tokens[0] != r.Tokens[len(r.Tokens)-1] {
		return fmt.Errorf("%w: route does not return to its start token", ErrMalformed)
	}
	if len(r.Pools) != len(r.Tokens)-1 {
		return fmt.Errorf("%w: route has %d pools for %d tokens", ErrMalformed, len(r.Pools), len(r.Tokens))
	}
	if maxHops > 0 && r.Hops() > maxHops {
		return fmt.Errorf("%w: route has %d hops, max is %d", ErrMalformed, r.Hops(), maxHops)
	}
	seen := make(map[common.Address]struct{}, len(r.Tokens))
	for _, tok := range r.Tokens[1 : len(r.Tokens)-1] {
		if tok == r.Tokens[0] {
			return fmt.Errorf("%w: start token repeats mid-route", ErrMalformed)
		}
		if _, dup := seen[tok]; dup {
			return fmt.Errorf("%w: token %s repeats in route", ErrMalformed, tok.Hex())
		}
		seen[tok] = struct{}{}
	}
	return nil
}

// Steps expands the route into the swap steps the evaluator consumes.
func (r *Route) Steps() []SwapStep {
	steps := make([]SwapStep, 0, len(r.Pools))
	for i, pool := range r.Pools {
		steps = append(steps, SwapStep{Pool: pool, TokenIn: r.Tokens[i]})
	}
	return steps
}

// Opportunity is a candidate flash-loan trade: borrow LoanAmount from
// Provider and walk Steps back to the loan token. Opportunities are value
// objects; the evaluator never retains them.
type Opportunity struct {
	Tokens     []common.Address `json:"tokens"`
	LoanAmount decimal.Decimal  `json:"loan_amount"`
	Provider   string           `json:"provider"`
	Steps      []SwapStep       `json:"steps"`
}

// EvaluationResult is the evaluator's verdict on one opportunity. It is
// never mutated after evaluation completes.
type EvaluationResult struct {
	LoanAmount        decimal.Decimal `json:"loan_amount"`
	Provider          string          `json:"provider"`
	FlashFee          decimal.Decimal `json:"flash_fee"`
	MinOutputRequired decimal.Decimal `json:"min_output_required"`
	TotalDEXFees      decimal.Decimal `json:"total_dex_fees"`
	TotalPriceImpact  decimal.Decimal `json:"total_price_impact"`
	GasUnits          uint64          `json:"gas_units"`
	TotalGasCost      decimal.Decimal `json:"total_gas_cost"`
	FinalAmount       decimal.Decimal `json:"final_amount"`
	Profit            decimal.Decimal `json:"profit"`
	ROIPercent        decimal.Decimal `json:"roi_percent"`

	WillRevert         bool    `json:"will_revert"`
	RevertReason       string  `json:"revert_reason,omitempty"`
	SuccessProbability float64 `json:"success_probability"`
}

// Profitable reports whether the route is executable with positive profit.
func (r *EvaluationResult) Profitable() bool {
	return !r.WillRevert && r.Profit.IsPositive()
}

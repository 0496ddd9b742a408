// Package evaluator decides whether a flash-loan-funded route is worth
// executing. It chains AMM outputs hop by hop, nets out the flash fee, DEX
// fees, gas and cumulative price impact, classifies revert risk and attaches
// a success-probability estimate.
package evaluator

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Omni-Defi-Production-System1/execution-lane/amm"
	"github.com/Omni-Defi-Production-System1/execution-lane/flashloan"
	"github.com/Omni-Defi-Production-System1/execution-lane/gas"
	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

// Revert reasons, checked in order; the first match wins.
const (
	RevertInsufficientOutput = "insufficient output to repay flash loan"
	RevertNegativeProfit     = "negative profit after gas costs"
	RevertExcessiveImpact    = "excessive price impact"
)

// DefaultPriceImpactThreshold is the cumulative-impact ceiling above which a
// route is classified as revert-bound.
var DefaultPriceImpactThreshold = decimal.RequireFromString("0.03")

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	defaultAmpFactor = decimal.NewFromInt(100)
)

// Evaluator scores flash-loan routes. It is pure and safe for concurrent
// use; all state is read-only after construction.
type Evaluator struct {
	fees            flashloan.FeeSchedule
	gas             *gas.Estimator
	impactThreshold decimal.Decimal
	logger          *zap.Logger
}

// New creates an evaluator. Nil or zero arguments select the defaults:
// the well-known fee schedule, the default gas schedule and a 3% impact
// threshold.
func New(fees flashloan.FeeSchedule, gasSchedule gas.Schedule, impactThreshold decimal.Decimal, logger *zap.Logger) *Evaluator {
	if fees == nil {
		fees = flashloan.DefaultFees()
	}
	if gasSchedule == (gas.Schedule{}) {
		gasSchedule = gas.DefaultSchedule()
	}
	if impactThreshold.IsZero() {
		impactThreshold = DefaultPriceImpactThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		fees:            fees,
		gas:             gas.NewEstimator(gasSchedule),
		impactThreshold: impactThreshold,
		logger:          logger,
	}
}

// Evaluate scores one route funded by a flash loan of loanAmount from
// provider. gasPriceGwei and nativePrice convert the gas budget to quote
// currency. An unknown provider or malformed step is a hard validation
// error; degenerate pool math is absorbed into the numbers instead.
func (e *Evaluator) Evaluate(
	loanAmount decimal.Decimal,
	provider string,
	steps []types.SwapStep,
	gasPriceGwei, nativePrice decimal.Decimal,
) (*types.EvaluationResult, error) {
	if !loanAmount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount %s must be positive", types.ErrMalformed, loanAmount)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: route has no swap steps", types.ErrMalformed)
	}
	for i := range steps {
		if err := steps[i].Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	flashFee, err := e.fees.Fee(provider, loanAmount)
	if err != nil {
		return nil, err
	}

	result := &types.EvaluationResult{
		LoanAmount:        loanAmount,
		Provider:          provider,
		FlashFee:          flashFee,
		MinOutputRequired: loanAmount.Add(flashFee),
	}

	currentAmount := loanAmount
	cumulativeImpact := decimal.Zero
	gasUnits := e.gas.BaseGas()

	for i := range steps {
		step := &steps[i]
		amountOut, impact := e.priceStep(step, currentAmount)

		if step.Pool != nil {
			result.TotalDEXFees = result.TotalDEXFees.Add(currentAmount.Mul(step.Pool.Fee))
		}
		cumulativeImpact = cumulativeImpact.Add(impact)
		gasUnits += e.gas.SwapGas(*step)
		currentAmount = amountOut
	}

	result.FinalAmount = currentAmount
	result.TotalPriceImpact = cumulativeImpact
	result.GasUnits = gasUnits
	result.TotalGasCost = e.gas.QuoteCost(gasUnits, gasPriceGwei, nativePrice)

	result.Profit = result.FinalAmount.Sub(result.MinOutputRequired).Sub(result.TotalGasCost)
	result.ROIPercent = result.Profit.Div(loanAmount).Mul(hundred)

	switch {
	case result.FinalAmount.LessThan(result.MinOutputRequired):
		result.WillRevert = true
		result.RevertReason = RevertInsufficientOutput
	case result.Profit.IsNegative():
		result.WillRevert = true
		result.RevertReason = RevertNegativeProfit
	case cumulativeImpact.GreaterThan(e.impactThreshold):
		result.WillRevert = true
		result.RevertReason = RevertExcessiveImpact
	}

	result.SuccessProbability = successProbability(result)

	if result.WillRevert {
		e.logger.Debug("Route classified as revert-bound",
			zap.String("provider", provider),
			zap.String("reason", result.RevertReason),
			zap.String("profit", result.Profit.String()))
	}

	return result, nil
}

// EvaluateOpportunity scores a pre-assembled opportunity.
func (e *Evaluator) EvaluateOpportunity(opp *types.Opportunity, gasPriceGwei, nativePrice decimal.Decimal) (*types.EvaluationResult, error) {
	if opp == nil {
		return nil, fmt.Errorf("%w: nil opportunity", types.ErrMalformed)
	}
	return e.Evaluate(opp.LoanAmount, opp.Provider, opp.Steps, gasPriceGwei, nativePrice)
}

// priceStep prices one hop. Pool-backed steps dispatch on the pool type;
// concentrated-liquidity and unknown types fall back to the constant-product
// formula over the raw reserves, a deliberate approximation. Quoted steps
// apply their externally supplied slippage and signed impact.
func (e *Evaluator) priceStep(step *types.SwapStep, amountIn decimal.Decimal) (amountOut, impact decimal.Decimal) {
	if step.Quoted {
		amountOut = amountIn.Mul(one.Sub(step.Slippage)).Mul(one.Sub(step.PriceImpact))
		return amountOut, step.PriceImpact
	}

	pool := step.Pool
	switch pool.Type {
	case types.PoolConstantProduct:
		reserveIn, reserveOut := pool.ReservesFor(step.TokenIn)
		return amm.ConstantProductOutput(amountIn, reserveIn, reserveOut, pool.Fee)
	case types.PoolStableSwap:
		reserveIn, reserveOut := pool.ReservesFor(step.TokenIn)
		ampFactor := pool.AmpFactor
		if !ampFactor.IsPositive() {
			ampFactor = defaultAmpFactor
		}
		return amm.StableSwapOutput(amountIn, reserveIn, reserveOut, pool.Fee, ampFactor)
	default:
		return amm.ConstantProductOutput(amountIn, pool.Reserve0, pool.Reserve1, pool.Fee)
	}
}

// successProbability implements the fixed scoring heuristic. The thresholds
// and multiplicative composition are load-bearing for behavioral parity with
// downstream consumers; do not retune them casually.
func successProbability(result *types.EvaluationResult) float64 {
	if result.WillRevert {
		return 0
	}

	probability := 1.0

	if result.ROIPercent.LessThan(decimal.RequireFromString("0.1")) {
		probability *= 0.5
	} else if result.ROIPercent.LessThan(decimal.RequireFromString("0.5")) {
		probability *= 0.8
	}

	if result.TotalPriceImpact.GreaterThan(decimal.RequireFromString("0.02")) {
		probability *= 0.7
	} else if result.TotalPriceImpact.GreaterThan(decimal.RequireFromString("0.01")) {
		probability *= 0.9
	}

	if result.TotalGasCost.GreaterThan(result.Profit.Mul(decimal.RequireFromString("0.3"))) {
		probability *= 0.8
	}

	return probability
}

package evaluator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Omni-Defi-Production-System1/execution-lane/flashloan"
	"github.com/Omni-Defi-Production-System1/execution-lane/gas"
	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEvaluator() *Evaluator {
	return New(nil, gas.Schedule{}, decimal.Zero, zap.NewNop())
}

func quotedStep(slippage, impact string) types.SwapStep {
	return types.SwapStep{
		Quoted:      true,
		Slippage:    dec(slippage),
		PriceImpact: dec(impact),
	}
}

func stablePool() *types.Pool {
	return &types.Pool{
		Address:   common.HexToAddress("0x11"),
		DEX:       types.DEXCurve,
		Token0:    common.HexToAddress("0xA0"),
		Token1:    common.HexToAddress("0xB0"),
		Reserve0:  decimal.NewFromInt(1000000),
		Reserve1:  decimal.NewFromInt(1000000),
		Fee:       dec("0.0004"),
		Type:      types.PoolStableSwap,
		AmpFactor: decimal.NewFromInt(100),
	}
}

func TestEvaluateProfitableTwoHopQuote(t *testing.T) {
	e := newTestEvaluator()

	// 50k from balancer (no fee), two quoted hops: 0.03% slippage each,
	// impacts +0.02% and -1.98%.
	steps := []types.SwapStep{
		quotedStep("0.0003", "0.0002"),
		quotedStep("0.0003", "-0.0198"),
	}

	result, err := e.Evaluate(dec("50000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(25), dec("0.8"))
	require.NoError(t, err)

	assert.False(t, result.WillRevert, "reason: %s", result.RevertReason)
	assert.True(t, result.Profit.IsPositive(), "profit %s", result.Profit)
	assert.True(t, result.Profitable())
	assert.Greater(t, result.SuccessProbability, 0.0)
}

func TestEvaluateSmallLoanEatenByGas(t *testing.T) {
	e := newTestEvaluator()

	// 100 from aave (0.09% fee) through one stable pool at 100 gwei: the
	// flash fee plus gas dwarf any stable-swap edge.
	steps := []types.SwapStep{{Pool: stablePool(), TokenIn: stablePool().Token0}}

	result, err := e.Evaluate(dec("100"), flashloan.ProviderAave, steps,
		decimal.NewFromInt(100), decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.True(t, result.WillRevert || result.Profit.IsNegative(),
		"profit %s, will_revert %v", result.Profit, result.WillRevert)
	assert.Equal(t, 0.0, result.SuccessProbability)
}

func TestEvaluateUnknownProvider(t *testing.T) {
	e := newTestEvaluator()

	_, err := e.Evaluate(dec("1000"), "invalid_provider",
		[]types.SwapStep{quotedStep("0.0003", "0.0002")},
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, flashloan.ErrUnknownProvider)
}

func TestEvaluateMalformedInput(t *testing.T) {
	e := newTestEvaluator()

	_, err := e.Evaluate(decimal.Zero, flashloan.ProviderAave,
		[]types.SwapStep{quotedStep("0", "0")}, decimal.NewFromInt(25), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, types.ErrMalformed)

	_, err = e.Evaluate(dec("1000"), flashloan.ProviderAave, nil,
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, types.ErrMalformed)

	_, err = e.Evaluate(dec("1000"), flashloan.ProviderAave,
		[]types.SwapStep{{}}, decimal.NewFromInt(25), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, types.ErrMalformed)
}

func TestEvaluateRevertRuleOrder(t *testing.T) {
	e := newTestEvaluator()

	// Output below the repay floor must win over the later rules even when
	// impact is also excessive.
	steps := []types.SwapStep{quotedStep("0.5", "0.5")}
	result, err := e.Evaluate(dec("10000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, result.WillRevert)
	assert.Equal(t, RevertInsufficientOutput, result.RevertReason)
}

func TestEvaluateExcessiveImpact(t *testing.T) {
	e := newTestEvaluator()

	// A favorable quote keeps the output above the repay floor while the
	// recorded impact exceeds 3%: the impact rule fires after the profit
	// rules pass.
	steps := []types.SwapStep{quotedStep("-0.10", "0.04")}
	result, err := e.Evaluate(dec("100000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(1), dec("0.0001"))
	require.NoError(t, err)

	require.False(t, result.Profit.IsNegative(), "profit %s", result.Profit)
	assert.True(t, result.WillRevert)
	assert.Equal(t, RevertExcessiveImpact, result.RevertReason)
	assert.Equal(t, 0.0, result.SuccessProbability)
}

func TestEvaluateDegeneratePoolAbsorbed(t *testing.T) {
	e := newTestEvaluator()

	drained := &types.Pool{
		Address:  common.HexToAddress("0x12"),
		DEX:      types.DEXQuickswap,
		Token0:   common.HexToAddress("0xA0"),
		Token1:   common.HexToAddress("0xB0"),
		Reserve0: decimal.Zero,
		Reserve1: decimal.NewFromInt(1000),
		Fee:      dec("0.003"),
		Type:     types.PoolConstantProduct,
	}
	steps := []types.SwapStep{{Pool: drained, TokenIn: drained.Token0}}

	result, err := e.Evaluate(dec("1000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	require.NoError(t, err, "a drained pool must be scored, not raised")

	assert.True(t, result.FinalAmount.IsZero())
	assert.True(t, result.WillRevert)
	assert.Equal(t, RevertInsufficientOutput, result.RevertReason)
}

func TestEvaluateConcentratedLiquidityFallback(t *testing.T) {
	e := newTestEvaluator()

	clPool := &types.Pool{
		Address:     common.HexToAddress("0x13"),
		DEX:         types.DEXUniswapV3,
		Token0:      common.HexToAddress("0xA0"),
		Token1:      common.HexToAddress("0xB0"),
		Reserve0:    decimal.NewFromInt(1000000),
		Reserve1:    decimal.NewFromInt(1000000),
		Fee:         dec("0.0005"),
		Type:        types.PoolConcentratedLiquidity,
		TickSpacing: 60,
	}
	steps := []types.SwapStep{{Pool: clPool, TokenIn: clPool.Token1}}

	result, err := e.Evaluate(dec("1000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	require.NoError(t, err)

	// The fallback prices over raw reserves with the constant-product
	// formula, so output must be positive and below the input on a
	// balanced pool.
	assert.True(t, result.FinalAmount.IsPositive())
	assert.True(t, result.FinalAmount.LessThan(dec("1000")))
}

func TestEvaluateGasAccounting(t *testing.T) {
	e := newTestEvaluator()

	steps := []types.SwapStep{{Pool: stablePool(), TokenIn: stablePool().Token0}}
	result, err := e.Evaluate(dec("100000"), flashloan.ProviderBalancer, steps,
		decimal.NewFromInt(25), decimal.NewFromInt(1))
	require.NoError(t, err)

	// 150000 flash-loan init + 200000 curve swap.
	assert.Equal(t, uint64(350000), result.GasUnits)
	// 350000 * 25 / 1e9 = 0.00875 native at $1.
	assert.True(t, result.TotalGasCost.Equal(dec("0.00875")), "got %s", result.TotalGasCost)
}

func TestSuccessProbabilityTiers(t *testing.T) {
	base := func() *types.EvaluationResult {
		return &types.EvaluationResult{
			LoanAmount:       dec("100000"),
			Profit:           dec("1000"),
			ROIPercent:       dec("1"),
			TotalPriceImpact: dec("0.005"),
			TotalGasCost:     dec("10"),
		}
	}

	r := base()
	assert.Equal(t, 1.0, successProbability(r))

	r = base()
	r.ROIPercent = dec("0.05")
	assert.InDelta(t, 0.5, successProbability(r), 1e-9)

	r = base()
	r.ROIPercent = dec("0.3")
	assert.InDelta(t, 0.8, successProbability(r), 1e-9)

	r = base()
	r.TotalPriceImpact = dec("0.025")
	assert.InDelta(t, 0.7, successProbability(r), 1e-9)

	r = base()
	r.TotalPriceImpact = dec("0.015")
	assert.InDelta(t, 0.9, successProbability(r), 1e-9)

	r = base()
	r.TotalGasCost = dec("400")
	assert.InDelta(t, 0.8, successProbability(r), 1e-9)

	r = base()
	r.WillRevert = true
	assert.Equal(t, 0.0, successProbability(r))

	// Multipliers compose.
	r = base()
	r.ROIPercent = dec("0.05")
	r.TotalPriceImpact = dec("0.025")
	r.TotalGasCost = dec("400")
	assert.InDelta(t, 0.5*0.7*0.8, successProbability(r), 1e-9)
}

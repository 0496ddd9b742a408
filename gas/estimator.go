// Package gas estimates the gas budget of a flash-loan route and converts it
// to quote-currency cost. The per-operation unit counts are fixed estimates;
// actual consumption is settled on-chain by the execution layer.
package gas

import (
	"github.com/shopspring/decimal"

	"github.com/Omni-Defi-Production-System1/execution-lane/types"
)

var gwei = decimal.New(1, 9) // 1e9

// Schedule holds per-operation gas-unit estimates.
type Schedule struct {
	FlashLoanInit    uint64 `json:"flash_loan_init" yaml:"flash_loan_init"`
	ERC20Transfer    uint64 `json:"erc20_transfer" yaml:"erc20_transfer"`
	SwapV2           uint64 `json:"swap_v2" yaml:"swap_v2"`
	SwapV3           uint64 `json:"swap_v3" yaml:"swap_v3"`
	SwapCurve        uint64 `json:"swap_curve" yaml:"swap_curve"`
	SwapBalancer     uint64 `json:"swap_balancer" yaml:"swap_balancer"`
	CallbackOverhead uint64 `json:"callback_overhead" yaml:"callback_overhead"`
}

// DefaultSchedule returns mainnet-calibrated unit estimates.
func DefaultSchedule() Schedule {
	return Schedule{
		FlashLoanInit:    150000,
		ERC20Transfer:    65000,
		SwapV2:           120000,
		SwapV3:           150000,
		SwapCurve:        200000,
		SwapBalancer:     180000,
		CallbackOverhead: 50000,
	}
}

// Estimator prices route gas against a unit schedule.
type Estimator struct {
	schedule Schedule
}

// NewEstimator creates an estimator over the given schedule.
func NewEstimator(schedule Schedule) *Estimator {
	return &Estimator{schedule: schedule}
}

// BaseGas returns the flash-loan initiation cost paid once per route.
func (e *Estimator) BaseGas() uint64 {
	return e.schedule.FlashLoanInit
}

// SwapGas returns the unit estimate for one hop of a route. Pool-backed
// steps dispatch on the pool's DEX tag; quoted steps have no pool and are
// charged a V3-style swap.
func (e *Estimator) SwapGas(step types.SwapStep) uint64 {
	if step.Pool == nil {
		return e.schedule.SwapV3
	}
	switch step.Pool.DEX {
	case types.DEXUniswapV3:
		return e.schedule.SwapV3
	case types.DEXCurve:
		return e.schedule.SwapCurve
	case types.DEXBalancer:
		return e.schedule.SwapBalancer
	default:
		return e.schedule.SwapV2
	}
}

// RouteGas totals the gas budget for a full route.
func (e *Estimator) RouteGas(steps []types.SwapStep) uint64 {
	total := e.BaseGas()
	for _, step := range steps {
		total += e.SwapGas(step)
	}
	return total
}

// QuoteCost converts a gas budget to quote currency:
// units * gasPriceGwei / 1e9 native tokens, priced at nativePrice.
func (e *Estimator) QuoteCost(gasUnits uint64, gasPriceGwei, nativePrice decimal.Decimal) decimal.Decimal {
	native := decimal.NewFromUint64(gasUnits).Mul(gasPriceGwei).Div(gwei)
	return native.Mul(nativePrice)
}

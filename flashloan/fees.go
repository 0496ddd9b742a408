// Package flashloan holds the flash-loan provider fee schedule consumed by
// the profitability evaluator. Executing loans on-chain is the job of an
// external collaborator; the kernel only needs each provider's fee rate.
package flashloan

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Known flash-loan providers.
const (
	ProviderAave      = "aave"
	ProviderBalancer  = "balancer"
	ProviderDyDx      = "dydx"
	ProviderUniswapV3 = "uniswap_v3"
	ProviderCream     = "cream"
)

// ErrUnknownProvider is returned when a fee lookup names a provider absent
// from the schedule. Callers should test with errors.Is.
var ErrUnknownProvider = errors.New("unknown flash loan provider")

// FeeSchedule maps provider name to fee rate (fraction of the loan).
type FeeSchedule map[string]decimal.Decimal

// DefaultFees returns the well-known provider rates.
func DefaultFees() FeeSchedule {
	return FeeSchedule{
		ProviderAave:      decimal.RequireFromString("0.0009"),
		ProviderBalancer:  decimal.Zero,
		ProviderDyDx:      decimal.Zero,
		ProviderUniswapV3: decimal.Zero,
		ProviderCream:     decimal.RequireFromString("0.0003"),
	}
}

// FeeRate looks up the fee rate for a provider.
func (s FeeSchedule) FeeRate(provider string) (decimal.Decimal, error) {
	rate, ok := s[provider]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return rate, nil
}

// Fee computes the flash fee owed on a loan amount.
func (s FeeSchedule) Fee(provider string, loanAmount decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.FeeRate(provider)
	if err != nil {
		return decimal.Zero, err
	}
	return loanAmount.Mul(rate), nil
}

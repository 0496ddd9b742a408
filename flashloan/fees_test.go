package flashloan

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeRates(t *testing.T) {
	fees := DefaultFees()

	aave, err := fees.FeeRate(ProviderAave)
	require.NoError(t, err)
	assert.True(t, aave.Equal(decimal.RequireFromString("0.0009")))

	balancer, err := fees.FeeRate(ProviderBalancer)
	require.NoError(t, err)
	assert.True(t, balancer.IsZero())
}

func TestFeeComputation(t *testing.T) {
	fees := DefaultFees()

	fee, err := fees.Fee(ProviderAave, decimal.NewFromInt(100000))
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.NewFromInt(90)), "0.09%% of 100k should be 90, got %s", fee)
}

func TestUnknownProvider(t *testing.T) {
	fees := DefaultFees()

	_, err := fees.FeeRate("invalid_provider")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

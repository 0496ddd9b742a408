// Package amm prices swaps against pool reserves. Both pricing functions are
// pure: pool state in, (output, price impact) out. Degenerate inputs price to
// zero output with maximal impact instead of failing, so a broken pool is
// scored as unattractive rather than crashing a batch.
package amm

import "github.com/shopspring/decimal"

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)

	// stableSwapTolerance is the convergence threshold for the StableSwap
	// Newton iteration.
	stableSwapTolerance = decimal.RequireFromString("0.0001")
)

// stableSwapMaxIterations bounds the Newton solver.
const stableSwapMaxIterations = 10

// ConstantProductOutput prices a fee-inclusive swap against an x*y=k pool.
// Returns the output amount and the relative spot-price impact. Fails closed:
// a pool with a non-positive reserve yields (0, 1).
func ConstantProductOutput(amountIn, reserveIn, reserveOut, fee decimal.Decimal) (amountOut, priceImpact decimal.Decimal) {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, one
	}
	if !amountIn.IsPositive() {
		return decimal.Zero, decimal.Zero
	}

	amountInWithFee := amountIn.Mul(one.Sub(fee))
	amountOut = amountInWithFee.Mul(reserveOut).Div(reserveIn.Add(amountInWithFee))

	spotBefore := reserveOut.Div(reserveIn)
	spotAfter := reserveOut.Sub(amountOut).Div(reserveIn.Add(amountIn))
	priceImpact = spotAfter.Sub(spotBefore).Abs().Div(spotBefore)

	return amountOut, priceImpact
}

// StableSwapOutput prices a swap against a Curve-style stable pool with
// amplification factor amp. The invariant is solved by Newton iteration; if
// the solver does not converge within its iteration budget the last iterate
// is used, trading precision for availability. Price impact is approximated
// as |amountOut/amountIn - 1|.
func StableSwapOutput(amountIn, reserveIn, reserveOut, fee, amp decimal.Decimal) (amountOut, priceImpact decimal.Decimal) {
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return decimal.Zero, one
	}
	if !amountIn.IsPositive() {
		return decimal.Zero, decimal.Zero
	}

	y, _ := solveStableSwapY(amountIn, reserveIn, reserveOut, amp)

	amountOut = reserveOut.Sub(y).Mul(one.Sub(fee))
	if amountOut.IsNegative() {
		amountOut = decimal.Zero
	}
	priceImpact = amountOut.Div(amountIn).Sub(one).Abs()

	return amountOut, priceImpact
}

// solveStableSwapY iterates the output-reserve estimate y for a trade adding
// amountIn to reserveIn. Returns the final iterate and whether the solver
// converged within the iteration budget.
func solveStableSwapY(amountIn, reserveIn, reserveOut, amp decimal.Decimal) (decimal.Decimal, bool) {
	s := reserveIn.Add(reserveOut)
	d := s // initial invariant estimate
	newReserveIn := reserveIn.Add(amountIn)

	y := reserveOut
	for i := 0; i < stableSwapMaxIterations; i++ {
		prev := y
		k := amp.Mul(s).Mul(d).Div(amp.Mul(s).Add(d))
		denom := two.Mul(y).Add(newReserveIn).Sub(d)
		if denom.IsZero() {
			return y, false
		}
		y = y.Mul(y).Add(k).Div(denom)
		if y.Sub(prev).Abs().LessThan(stableSwapTolerance) {
			return y, true
		}
	}
	return y, false
}

package fund

import (
	"math"

	"github.com/shopspring/decimal"
)

// feeDenominator fixes the precision of the fee fraction. A withdrawal fee
// is always representable as numerator/feeDenominator.
const feeDenominator = 1_000_000

// Fee is a fraction in [0, 1] expressed as numerator/denominator.
type Fee struct {
	Numerator   uint64
	Denominator uint64
}

// FeeParts converts a fractional fee rate into fixed-point parts. Rates
// outside [0, 1] are clamped; the ledger validates the stored rate, this
// only guards against NaN and drift.
func FeeParts(rate float64) Fee {
	if math.IsNaN(rate) || rate <= 0 {
		return Fee{Numerator: 0, Denominator: feeDenominator}
	}
	if rate >= 1 {
		return Fee{Numerator: feeDenominator, Denominator: feeDenominator}
	}
	return Fee{
		Numerator:   uint64(math.Round(rate * feeDenominator)),
		Denominator: feeDenominator,
	}
}

// SplitFee computes the fee portion of tokensToRemove and the remainder to
// transfer. The multiply-then-divide runs at arbitrary precision and the
// result is range-checked back into uint64 rather than silently truncated.
// fee <= tokensToRemove holds by construction since the rate is <= 1.
func SplitFee(tokensToRemove uint64, fee Fee) (feeTokens, tokensToTransfer uint64, err error) {
	if fee.Denominator == 0 {
		return 0, 0, ErrFeeOverflow.WithDetail("zero fee denominator")
	}

	raw := decimal.NewFromUint64(tokensToRemove).
		Mul(decimal.NewFromUint64(fee.Numerator)).
		Div(decimal.NewFromUint64(fee.Denominator)).
		Floor()

	bi := raw.BigInt()
	if !bi.IsUint64() {
		return 0, 0, ErrFeeOverflow.WithDetail("fee of %d tokens exceeds range", tokensToRemove)
	}

	feeTokens = bi.Uint64()
	if feeTokens > tokensToRemove {
		return 0, 0, ErrFeeOverflow.WithDetail("fee %d exceeds gross amount %d", feeTokens, tokensToRemove)
	}

	tokensToTransfer = tokensToRemove - feeTokens
	if tokensToTransfer == 0 {
		return 0, 0, ErrAmountTooSmall
	}

	return feeTokens, tokensToTransfer, nil
}

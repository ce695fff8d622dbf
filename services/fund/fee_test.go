package fund

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeeParts(t *testing.T) {
	require.Equal(t, Fee{0, feeDenominator}, FeeParts(0))
	require.Equal(t, Fee{feeDenominator, feeDenominator}, FeeParts(1))
	require.Equal(t, Fee{10_000, feeDenominator}, FeeParts(0.01))
	require.Equal(t, Fee{500_000, feeDenominator}, FeeParts(0.5))

	// out-of-range and NaN rates clamp instead of producing garbage parts
	require.Equal(t, Fee{0, feeDenominator}, FeeParts(-0.3))
	require.Equal(t, Fee{feeDenominator, feeDenominator}, FeeParts(2.5))
	require.Equal(t, Fee{0, feeDenominator}, FeeParts(math.NaN()))
}

func TestSplitFeeOnePercent(t *testing.T) {
	feeTokens, transfer, err := SplitFee(1_000, FeeParts(0.01))
	require.NoError(t, err)
	require.Equal(t, uint64(10), feeTokens)
	require.Equal(t, uint64(990), transfer)
}

func TestSplitFeeZeroRate(t *testing.T) {
	feeTokens, transfer, err := SplitFee(1_000, FeeParts(0))
	require.NoError(t, err)
	require.Equal(t, uint64(0), feeTokens)
	require.Equal(t, uint64(1_000), transfer)
}

func TestSplitFeeRoundsDown(t *testing.T) {
	// 1% of 150 is 1.5; the fee floors to 1
	feeTokens, transfer, err := SplitFee(150, FeeParts(0.01))
	require.NoError(t, err)
	require.Equal(t, uint64(1), feeTokens)
	require.Equal(t, uint64(149), transfer)
}

func TestSplitFeeFullRateLeavesNothing(t *testing.T) {
	_, _, err := SplitFee(1_000, FeeParts(1))
	require.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestSplitFeeZeroGross(t *testing.T) {
	_, _, err := SplitFee(0, FeeParts(0.01))
	require.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestSplitFeeZeroDenominator(t *testing.T) {
	_, _, err := SplitFee(1_000, Fee{Numerator: 1, Denominator: 0})
	require.ErrorIs(t, err, ErrFeeOverflow)
}

func TestSplitFeeInvariant(t *testing.T) {
	rates := []float64{0.001, 0.01, 0.025, 0.1, 0.333, 0.999999}
	amounts := []uint64{1, 7, 999, 1_000_000, math.MaxUint64 / 2, math.MaxUint64}

	for _, rate := range rates {
		for _, amount := range amounts {
			feeTokens, transfer, err := SplitFee(amount, FeeParts(rate))
			if err != nil {
				require.ErrorIs(t, err, ErrAmountTooSmall)
				continue
			}
			require.Equal(t, amount, feeTokens+transfer, "rate=%f amount=%d", rate, amount)
			require.LessOrEqual(t, feeTokens, amount)
		}
	}
}

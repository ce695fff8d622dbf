package fund

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fundcustody/services/oracle"
)

type fakeReader struct {
	obs oracle.Observation
	err error
}

func (f *fakeReader) Read(ctx context.Context, oracleID string) (oracle.Observation, error) {
	if f.err != nil {
		return oracle.Observation{}, f.err
	}
	return f.obs, nil
}

var usdcToken = CustodyToken{
	Mint:       "usdc-mint",
	Decimals:   6,
	OracleType: oracle.OracleTypePyth,
}

func freshObs(now time.Time, price, confidence float64) oracle.Observation {
	return oracle.Observation{
		OracleID:   "oracle-usdc",
		OracleType: oracle.OracleTypePyth,
		Price:      price,
		Confidence: confidence,
		ObservedAt: now.Unix(),
	}
}

func TestTokensForValue(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{obs: freshObs(now, 2.0, 0.001)})

	// $500 at $2/token with 6 decimals
	qty, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.NoError(t, err)
	require.Equal(t, uint64(250_000_000), qty)
}

func TestTokensForValueFloorsFraction(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{obs: freshObs(now, 3.0, 0)})

	// 1/3 USD is not representable exactly; result floors
	qty, err := c.TokensForValue(context.Background(), 1, CustodyToken{Decimals: 0, OracleType: oracle.OracleTypePyth}, "oracle-usdc", 0.05, 300, now)
	require.NoError(t, err)
	require.Equal(t, uint64(0), qty)
}

func TestTokensForValueZero(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{obs: freshObs(now, 2.0, 0)})

	qty, err := c.TokensForValue(context.Background(), 0, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.NoError(t, err)
	require.Equal(t, uint64(0), qty)
}

func TestTokensForValueStaleObservation(t *testing.T) {
	now := time.Now()
	obs := freshObs(now.Add(-10*time.Minute), 2.0, 0)
	c := NewConverter(&fakeReader{obs: obs})

	_, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.ErrorIs(t, err, ErrStaleOraclePrice)
}

func TestTokensForValueConfidenceTooWide(t *testing.T) {
	now := time.Now()
	// confidence band is 10% of price, tolerance is 5%
	c := NewConverter(&fakeReader{obs: freshObs(now, 2.0, 0.2)})

	_, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.ErrorIs(t, err, ErrOraclePriceError)
}

func TestTokensForValueOracleTypeMismatch(t *testing.T) {
	now := time.Now()
	obs := freshObs(now, 2.0, 0)
	obs.OracleType = oracle.OracleTypeChainlink
	c := NewConverter(&fakeReader{obs: obs})

	_, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.ErrorIs(t, err, ErrOraclePriceError)
}

func TestTokensForValueNonPositivePrice(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{obs: freshObs(now, 0, 0)})

	_, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.ErrorIs(t, err, ErrOraclePriceError)
}

func TestTokensForValueMissingObservation(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{err: oracle.ErrNotFound})

	_, err := c.TokensForValue(context.Background(), 500, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.ErrorIs(t, err, ErrOraclePriceError)
}

func TestValueOfTokens(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{obs: freshObs(now, 2.0, 0)})

	// 1,000 whole tokens at $2
	value, err := c.ValueOfTokens(context.Background(), 1_000_000_000, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.NoError(t, err)
	require.InDelta(t, 2_000, value, 1e-9)
}

func TestValueOfTokensZeroQuantity(t *testing.T) {
	now := time.Now()
	c := NewConverter(&fakeReader{err: oracle.ErrNotFound})

	// zero quantity never consults the oracle
	value, err := c.ValueOfTokens(context.Background(), 0, usdcToken, "oracle-usdc", 0.05, 300, now)
	require.NoError(t, err)
	require.Zero(t, value)
}

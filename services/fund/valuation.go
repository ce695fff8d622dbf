package fund

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fundcustody/services/oracle"
)

// Converter turns a USD nominal value into a custody-token quantity using
// the freshest oracle observation, bounded by the fund's staleness and
// error tolerances. A stale or low-confidence price would let a user
// extract more real value than their shares represent, so both bounds are
// hard failures.
type Converter struct {
	reader oracle.Reader
}

func NewConverter(reader oracle.Reader) *Converter {
	return &Converter{reader: reader}
}

// TokensForValue returns the integer token quantity, at the token's native
// precision, worth valueUsd at the oracle price.
func (c *Converter) TokensForValue(
	ctx context.Context,
	valueUsd float64,
	token CustodyToken,
	oracleID string,
	maxPriceError float64,
	maxPriceAgeSec int64,
	now time.Time,
) (uint64, error) {
	if valueUsd < 0 || math.IsNaN(valueUsd) || math.IsInf(valueUsd, 0) {
		return 0, ErrZeroAmount.WithDetail("invalid usd value %f", valueUsd)
	}
	if valueUsd == 0 {
		return 0, nil
	}

	obs, err := c.checkedObservation(ctx, token, oracleID, maxPriceError, maxPriceAgeSec, now)
	if err != nil {
		return 0, err
	}

	quantity := decimal.NewFromFloat(valueUsd).
		Div(decimal.NewFromFloat(obs.Price)).
		Mul(decimal.New(1, int32(token.Decimals))).
		Floor()

	bi := quantity.BigInt()
	if bi.Sign() < 0 || !bi.IsUint64() {
		return 0, ErrFeeOverflow.WithDetail("token quantity for %f USD exceeds range", valueUsd)
	}

	return bi.Uint64(), nil
}

// ValueOfTokens is the reverse conversion: the USD value of a token
// quantity at the oracle price, under the same tolerance bounds.
func (c *Converter) ValueOfTokens(
	ctx context.Context,
	quantity uint64,
	token CustodyToken,
	oracleID string,
	maxPriceError float64,
	maxPriceAgeSec int64,
	now time.Time,
) (float64, error) {
	if quantity == 0 {
		return 0, nil
	}

	obs, err := c.checkedObservation(ctx, token, oracleID, maxPriceError, maxPriceAgeSec, now)
	if err != nil {
		return 0, err
	}

	value, _ := decimal.NewFromUint64(quantity).
		Div(decimal.New(1, int32(token.Decimals))).
		Mul(decimal.NewFromFloat(obs.Price)).
		Float64()

	return value, nil
}

func (c *Converter) checkedObservation(
	ctx context.Context,
	token CustodyToken,
	oracleID string,
	maxPriceError float64,
	maxPriceAgeSec int64,
	now time.Time,
) (oracle.Observation, error) {
	obs, err := c.reader.Read(ctx, oracleID)
	if err != nil {
		if errors.Is(err, oracle.ErrNotFound) {
			return obs, ErrOraclePriceError.WithDetail("no observation for oracle %s", oracleID)
		}
		return obs, err
	}

	if obs.OracleType != token.OracleType {
		return obs, ErrOraclePriceError.WithDetail("oracle type %s, expected %s", obs.OracleType, token.OracleType)
	}

	if age := now.Unix() - obs.ObservedAt; age > maxPriceAgeSec {
		return obs, ErrStaleOraclePrice.WithDetail("observation is %ds old, limit %ds", age, maxPriceAgeSec)
	}

	if obs.Price <= 0 {
		return obs, ErrOraclePriceError.WithDetail("non-positive price %f", obs.Price)
	}

	// Confidence is an absolute band; compare it to the price as a ratio.
	if obs.Confidence/obs.Price > maxPriceError {
		return obs, ErrOraclePriceError.WithDetail("relative error %f above limit %f", obs.Confidence/obs.Price, maxPriceError)
	}

	return obs, nil
}

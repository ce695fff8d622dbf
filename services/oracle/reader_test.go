package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fundcustody/services/testutil"
)

func TestStoreReadMissing(t *testing.T) {
	db := testutil.NewTestDB(t, &PriceRecord{})
	store := NewStore(db, nil)

	_, err := store.Read(context.Background(), "no-such-oracle")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStorePublishAndRead(t *testing.T) {
	db := testutil.NewTestDB(t, &PriceRecord{})
	store := NewStore(db, nil)
	ctx := context.Background()

	obs := Observation{
		OracleID:   "oracle-sol",
		OracleType: OracleTypePyth,
		Price:      142.5,
		Confidence: 0.12,
		ObservedAt: 1_700_000_000,
	}
	require.NoError(t, store.Publish(ctx, obs))

	got, err := store.Read(ctx, "oracle-sol")
	require.NoError(t, err)
	require.Equal(t, obs, got)
}

func TestStorePublishUpserts(t *testing.T) {
	db := testutil.NewTestDB(t, &PriceRecord{})
	store := NewStore(db, nil)
	ctx := context.Background()

	first := Observation{
		OracleID:   "oracle-sol",
		OracleType: OracleTypePyth,
		Price:      140,
		Confidence: 0.1,
		ObservedAt: 1_700_000_000,
	}
	require.NoError(t, store.Publish(ctx, first))

	second := first
	second.Price = 145
	second.ObservedAt = 1_700_000_060
	require.NoError(t, store.Publish(ctx, second))

	got, err := store.Read(ctx, "oracle-sol")
	require.NoError(t, err)
	require.Equal(t, second, got)

	var count int64
	require.NoError(t, db.Model(&PriceRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestObservationAge(t *testing.T) {
	obs := Observation{ObservedAt: 1_700_000_000}
	now := time.Unix(1_700_000_045, 0)
	require.Equal(t, 45*time.Second, obs.Age(now))
}

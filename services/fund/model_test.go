package fund

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveAuthority(t *testing.T) {
	a := DeriveAuthority("prog", "alpha", 7)
	require.Len(t, a, 64)
	require.Equal(t, a, DeriveAuthority("prog", "alpha", 7))
	require.NotEqual(t, a, DeriveAuthority("prog", "alpha", 8))
	require.NotEqual(t, a, DeriveAuthority("prog", "beta", 7))
}

func TestLedgerAssetsFresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := &Ledger{AssetsUpdateTime: now.Unix() - 600, AssetsMaxUpdateAgeSec: 600}
	require.True(t, l.AssetsFresh(now))

	l.AssetsUpdateTime--
	require.False(t, l.AssetsFresh(now))
}

func TestLedgerApplyWithdrawalClampsAtZero(t *testing.T) {
	l := &Ledger{CurrentAssetsUsd: 100}

	l.ApplyWithdrawal(40)
	require.InDelta(t, 60, l.CurrentAssetsUsd, 1e-9)
	require.InDelta(t, 40, l.AmountRemovedUsd, 1e-9)

	// rounding drift can push the removal past the tracked NAV
	l.ApplyWithdrawal(75)
	require.Zero(t, l.CurrentAssetsUsd)
	require.InDelta(t, 115, l.AmountRemovedUsd, 1e-9)
}

func TestUserLedgerSettleRequest(t *testing.T) {
	u := &UserLedger{
		WithdrawalRequestAmount: 1_000,
		WithdrawalRequestTime:   42,
		DenyReason:              "stale kyc",
	}

	u.SettleRequest(400)

	require.Zero(t, u.WithdrawalRequestAmount)
	require.Zero(t, u.WithdrawalRequestTime)
	require.Equal(t, uint64(400), u.LastWithdrawalAmount)
	require.EqualValues(t, 42, u.LastWithdrawalTime)
	require.Empty(t, u.DenyReason)
}

package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fundcustody/services/testutil"
)

func seedRegistry(t *testing.T) (*gorm.DB, *Registry) {
	t.Helper()

	db := testutil.NewTestDB(t, &Mint{}, &Account{})

	require.NoError(t, db.Create(&Mint{
		Address:   "mint-a",
		Decimals:  6,
		Supply:    1_000_000,
		Authority: "mint-a-authority",
	}).Error)
	require.NoError(t, db.Create(&Mint{
		Address:   "mint-b",
		Decimals:  9,
		Supply:    500,
		Authority: "mint-b-authority",
	}).Error)

	for _, acc := range []Account{
		{Address: "alice-a", Mint: "mint-a", Owner: "alice", Balance: 1_000},
		{Address: "bob-a", Mint: "mint-a", Owner: "bob", Balance: 50},
		{Address: "alice-b", Mint: "mint-b", Owner: "alice", Balance: 500},
	} {
		require.NoError(t, db.Create(&acc).Error)
	}

	return db, NewRegistry(db)
}

func TestRegistryReads(t *testing.T) {
	_, reg := seedRegistry(t)
	ctx := context.Background()

	supply, err := reg.SupplyOf(ctx, "mint-a")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), supply)

	_, err = reg.SupplyOf(ctx, "missing")
	require.ErrorIs(t, err, ErrMintNotFound)

	balance, err := reg.BalanceOf(ctx, "alice-a")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance)

	_, err = reg.BalanceOf(ctx, "missing")
	require.ErrorIs(t, err, ErrAccountNotFound)

	mint, err := reg.MintOf(ctx, "bob-a")
	require.NoError(t, err)
	require.Equal(t, "mint-a", mint)

	owned, err := reg.IsOwnedBy(ctx, "alice-a", "alice")
	require.NoError(t, err)
	require.True(t, owned)

	owned, err = reg.IsOwnedBy(ctx, "alice-a", "bob")
	require.NoError(t, err)
	require.False(t, owned)
}

func TestTransfer(t *testing.T) {
	_, reg := seedRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Transfer(ctx, "alice", "alice-a", "bob-a", 300))

	balance, err := reg.BalanceOf(ctx, "alice-a")
	require.NoError(t, err)
	require.Equal(t, uint64(700), balance)

	balance, err = reg.BalanceOf(ctx, "bob-a")
	require.NoError(t, err)
	require.Equal(t, uint64(350), balance)
}

func TestTransferRejectsWrongSigner(t *testing.T) {
	_, reg := seedRegistry(t)

	err := reg.Transfer(context.Background(), "bob", "alice-a", "bob-a", 1)
	require.ErrorIs(t, err, ErrUnauthorizedSigner)
}

func TestTransferRejectsOverdraw(t *testing.T) {
	_, reg := seedRegistry(t)
	ctx := context.Background()

	err := reg.Transfer(ctx, "alice", "alice-a", "bob-a", 1_001)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// nothing moved
	balance, err := reg.BalanceOf(ctx, "alice-a")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance)
}

func TestTransferRejectsCrossMint(t *testing.T) {
	_, reg := seedRegistry(t)

	err := reg.Transfer(context.Background(), "alice", "alice-a", "alice-b", 10)
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestBurn(t *testing.T) {
	_, reg := seedRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.Burn(ctx, "mint-a-authority", "alice-a", "mint-a", 400))

	balance, err := reg.BalanceOf(ctx, "alice-a")
	require.NoError(t, err)
	require.Equal(t, uint64(600), balance)

	supply, err := reg.SupplyOf(ctx, "mint-a")
	require.NoError(t, err)
	require.Equal(t, uint64(999_600), supply)
}

func TestBurnRejectsWrongAuthority(t *testing.T) {
	_, reg := seedRegistry(t)

	err := reg.Burn(context.Background(), "alice", "alice-a", "mint-a", 1)
	require.ErrorIs(t, err, ErrUnauthorizedSigner)
}

func TestBurnRejectsMintMismatch(t *testing.T) {
	_, reg := seedRegistry(t)

	err := reg.Burn(context.Background(), "mint-b-authority", "alice-a", "mint-b", 1)
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestBurnRejectsOverdraw(t *testing.T) {
	_, reg := seedRegistry(t)

	err := reg.Burn(context.Background(), "mint-a-authority", "bob-a", "mint-a", 51)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRegistryWithTx(t *testing.T) {
	db, reg := seedRegistry(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		scoped := reg.WithTx(tx)
		if err := scoped.Transfer(ctx, "alice", "alice-a", "bob-a", 100); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	// rollback restored the balance
	balance, err := reg.BalanceOf(ctx, "alice-a")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance)
}

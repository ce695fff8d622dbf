package token

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound     = errors.New("token: account not found")
	ErrMintNotFound        = errors.New("token: mint not found")
	ErrMintMismatch        = errors.New("token: account mint mismatch")
	ErrUnauthorizedSigner  = errors.New("token: signer not authorized")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// Registry reads and mutates token supply and balances. Mutations must run
// inside the caller's transaction so they commit or roll back together with
// the ledger writes; use WithTx to scope the registry to that transaction.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{db: tx}
}

// locked applies a FOR UPDATE row lock on dialects that support it; sqlite
// serializes writers on the connection instead.
func (r *Registry) locked(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *Registry) getMint(ctx context.Context, address string, lock bool) (*Mint, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = r.locked(q)
	}

	var mint Mint
	if err := q.Where("address = ?", address).First(&mint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMintNotFound
		}
		return nil, err
	}
	return &mint, nil
}

func (r *Registry) getAccount(ctx context.Context, address string, lock bool) (*Account, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = r.locked(q)
	}

	var acc Account
	if err := q.Where("address = ?", address).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// SupplyOf returns the total supply of a mint.
func (r *Registry) SupplyOf(ctx context.Context, mint string) (uint64, error) {
	m, err := r.getMint(ctx, mint, false)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

// BalanceOf returns the balance of a token account.
func (r *Registry) BalanceOf(ctx context.Context, account string) (uint64, error) {
	acc, err := r.getAccount(ctx, account, false)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// MintOf returns the mint a token account holds.
func (r *Registry) MintOf(ctx context.Context, account string) (string, error) {
	acc, err := r.getAccount(ctx, account, false)
	if err != nil {
		return "", err
	}
	return acc.Mint, nil
}

// IsOwnedBy reports whether the token account belongs to the expected owner.
func (r *Registry) IsOwnedBy(ctx context.Context, account, owner string) (bool, error) {
	acc, err := r.getAccount(ctx, account, false)
	if err != nil {
		return false, err
	}
	return acc.Owner == owner, nil
}

// Transfer moves amount between two accounts of the same mint, authorized
// by the owner of the source account.
func (r *Registry) Transfer(ctx context.Context, signer, from, to string, amount uint64) error {
	src, err := r.getAccount(ctx, from, true)
	if err != nil {
		return err
	}
	if src.Owner != signer {
		return ErrUnauthorizedSigner
	}
	if src.Balance < amount {
		return ErrInsufficientBalance
	}

	dst, err := r.getAccount(ctx, to, true)
	if err != nil {
		return err
	}
	if dst.Mint != src.Mint {
		return ErrMintMismatch
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&Account{}).
		Where("address = ?", src.Address).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": now,
		}).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&Account{}).
		Where("address = ?", dst.Address).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": now,
		}).Error
}

// Burn destroys amount held by the account and shrinks the mint supply,
// authorized by the mint's burn authority.
func (r *Registry) Burn(ctx context.Context, signer, account, mint string, amount uint64) error {
	acc, err := r.getAccount(ctx, account, true)
	if err != nil {
		return err
	}
	if acc.Mint != mint {
		return ErrMintMismatch
	}
	if acc.Balance < amount {
		return ErrInsufficientBalance
	}

	m, err := r.getMint(ctx, mint, true)
	if err != nil {
		return err
	}
	if m.Authority != signer {
		return ErrUnauthorizedSigner
	}
	if m.Supply < amount {
		return ErrInsufficientBalance
	}

	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&Account{}).
		Where("address = ?", acc.Address).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": now,
		}).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).Model(&Mint{}).
		Where("address = ?", m.Address).
		Updates(map[string]any{
			"supply":     gorm.Expr("supply - ?", amount),
			"updated_at": now,
		}).Error
}

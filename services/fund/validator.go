package fund

import (
	"context"

	"fundcustody/services/token"
)

// Account set layout for withdrawal approval. The caller presents accounts
// as an ordered list; position defines role.
const (
	idxAdmin = iota
	idxFundAuthority
	idxShareMint
	idxUser
	idxWithdrawalAccount
	idxUserShareAccount
	idxCustodyAccount
	idxCustodyFeesAccount
	idxOracleAccount

	// AccountCount is the exact cardinality the validator accepts.
	AccountCount
)

// AccountSet is the resolved account layout for one approval call.
type AccountSet struct {
	Admin              string
	FundAuthority      string
	ShareMint          string
	User               string
	WithdrawalAccount  string
	UserShareAccount   string
	CustodyAccount     string
	CustodyFeesAccount string
	OracleAccount      string
}

// AccountSetFromSlice destructures an ordered account list, failing when
// the cardinality is off.
func AccountSetFromSlice(accounts []string) (*AccountSet, error) {
	if len(accounts) != AccountCount {
		return nil, ErrAccountCountMismatch.WithDetail("got %d accounts, want %d", len(accounts), AccountCount)
	}

	return &AccountSet{
		Admin:              accounts[idxAdmin],
		FundAuthority:      accounts[idxFundAuthority],
		ShareMint:          accounts[idxShareMint],
		User:               accounts[idxUser],
		WithdrawalAccount:  accounts[idxWithdrawalAccount],
		UserShareAccount:   accounts[idxUserShareAccount],
		CustodyAccount:     accounts[idxCustodyAccount],
		CustodyFeesAccount: accounts[idxCustodyFeesAccount],
		OracleAccount:      accounts[idxOracleAccount],
	}, nil
}

// Validator confirms the shape and ownership of the account set presented
// for a settlement. All checks are read-only; the first mismatch aborts the
// call with its distinct error kind and no state is touched.
type Validator struct {
	registry *token.Registry
}

func NewValidator(registry *token.Registry) *Validator {
	return &Validator{registry: registry}
}

// WithRegistry returns a validator bound to a transaction-scoped registry.
func (v *Validator) WithRegistry(registry *token.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate gates a withdrawal approval: fund not liquidating, authority
// derived correctly, destination owned by the requesting user, share mint
// and custody set matching the fund's registration.
func (v *Validator) Validate(
	ctx context.Context,
	fund *Fund,
	ledger *Ledger,
	custody *Custody,
	set *AccountSet,
) error {
	if ledger.IsLiquidating() {
		return ErrLiquidationActive
	}

	if set.FundAuthority != fund.Authority {
		return ErrInvalidAuthority
	}

	owned, err := v.registry.IsOwnedBy(ctx, set.WithdrawalAccount, set.User)
	if err != nil {
		return err
	}
	if !owned {
		return ErrIllegalOwner
	}

	if set.ShareMint != fund.ShareMint {
		return ErrInvalidMint.WithDetail("share mint %s not registered for fund %s", set.ShareMint, fund.ID)
	}

	if set.CustodyAccount != custody.TokenAccount ||
		set.CustodyFeesAccount != custody.FeesAccount ||
		set.OracleAccount != custody.OracleID {
		return ErrInvalidMint.WithDetail("custody account set does not match registration for mint %s", custody.TokenMint)
	}

	// The destination must hold the custody token, not some other mint.
	destMint, err := v.registry.MintOf(ctx, set.WithdrawalAccount)
	if err != nil {
		return err
	}
	if destMint != custody.TokenMint {
		return ErrInvalidMint.WithDetail("withdrawal destination holds mint %s, custody token is %s", destMint, custody.TokenMint)
	}

	return nil
}

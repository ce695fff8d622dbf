package fund

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"fundcustody/services/oracle"
)

// Fund is the per-call context describing a fund: its identity, derived
// signing authority and share-token mint. Read-only to the settlement core.
type Fund struct {
	ID            string    `gorm:"column:id;primaryKey"`
	Name          string    `gorm:"column:name"`
	ProgramID     string    `gorm:"column:program_id"`
	AuthorityBump uint8     `gorm:"column:authority_bump"`
	Authority     string    `gorm:"column:authority"`
	ShareMint     string    `gorm:"column:share_mint"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (Fund) TableName() string {
	return "funds"
}

// DeriveAuthority computes the fund's deterministic signer address from its
// program id, name and bump. No private key exists for this address; the
// registry honors it only through the settlement path.
func DeriveAuthority(programID, name string, bump uint8) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|fund_authority|%s|%d", programID, name, bump))
	return hex.EncodeToString(sum[:])
}

// Custody is the fund's registered account set for one custody token:
// where assets are held, where fees accumulate, and which oracle prices
// the token.
type Custody struct {
	FundID       string    `gorm:"column:fund_id;primaryKey"`
	TokenMint    string    `gorm:"column:token_mint;primaryKey"`
	Decimals     uint8     `gorm:"column:decimals"`
	OracleType   string    `gorm:"column:oracle_type"`
	OracleID     string    `gorm:"column:oracle_id"`
	TokenAccount string    `gorm:"column:token_account"`
	FeesAccount  string    `gorm:"column:fees_account"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (Custody) TableName() string {
	return "fund_custodies"
}

// Ledger holds the fund-wide aggregate metrics. One row per fund; mutated
// only inside the settlement transaction.
type Ledger struct {
	FundID                string    `gorm:"column:fund_id;primaryKey"`
	LiquidationStartTime  int64     `gorm:"column:liquidation_start_time"`
	CurrentAssetsUsd      float64   `gorm:"column:current_assets_usd"`
	AmountRemovedUsd      float64   `gorm:"column:amount_removed_usd"`
	AssetsUpdateTime      int64     `gorm:"column:assets_update_time"`
	AssetsMaxUpdateAgeSec int64     `gorm:"column:assets_max_update_age_sec"`
	AssetsMaxPriceError   float64   `gorm:"column:assets_max_price_error"`
	AssetsMaxPriceAgeSec  int64     `gorm:"column:assets_max_price_age_sec"`
	WithdrawalFee         float64   `gorm:"column:withdrawal_fee"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (Ledger) TableName() string {
	return "fund_ledgers"
}

// IsLiquidating reports whether liquidation has started. Zero means the
// fund operates normally.
func (l *Ledger) IsLiquidating() bool {
	return l.LiquidationStartTime > 0
}

// AssetsFresh reports whether the NAV was updated within the configured
// staleness bound.
func (l *Ledger) AssetsFresh(now time.Time) bool {
	return now.Unix()-l.AssetsUpdateTime <= l.AssetsMaxUpdateAgeSec
}

// ApplyWithdrawal stages the aggregate effect of a settled withdrawal.
// NAV never goes negative; rounding drift is clamped at zero.
func (l *Ledger) ApplyWithdrawal(valueUsd float64) {
	l.AmountRemovedUsd += valueUsd
	if l.CurrentAssetsUsd > valueUsd {
		l.CurrentAssetsUsd -= valueUsd
	} else {
		l.CurrentAssetsUsd = 0
	}
}

// UserLedger tracks one user's pending withdrawal request and the audit
// record of their last settled withdrawal. A zero request amount means no
// request is pending.
type UserLedger struct {
	FundID                  string    `gorm:"column:fund_id;primaryKey"`
	UserID                  string    `gorm:"column:user_id;primaryKey"`
	WithdrawalRequestAmount uint64    `gorm:"column:withdrawal_request_amount"`
	WithdrawalRequestTime   int64     `gorm:"column:withdrawal_request_time"`
	LastWithdrawalAmount    uint64    `gorm:"column:last_withdrawal_amount"`
	LastWithdrawalTime      int64     `gorm:"column:last_withdrawal_time"`
	DenyReason              string    `gorm:"column:deny_reason"`
	UpdatedAt               time.Time `gorm:"column:updated_at"`
}

func (UserLedger) TableName() string {
	return "fund_user_ledgers"
}

func (u *UserLedger) HasPendingRequest() bool {
	return u.WithdrawalRequestAmount > 0
}

// SettleRequest stages the user-side effect of an approved withdrawal:
// the settled quantity becomes the last-withdrawal audit record, stamped
// with the original request time, and the request is cleared in full.
// A partial approval drops the unsettled remainder; see DESIGN.md.
func (u *UserLedger) SettleRequest(amount uint64) {
	u.LastWithdrawalTime = u.WithdrawalRequestTime
	u.LastWithdrawalAmount = amount
	u.WithdrawalRequestTime = 0
	u.WithdrawalRequestAmount = 0
	u.DenyReason = ""
}

// SettlementEntry is an append-only journal row recording one settled
// withdrawal, written in the same transaction as the ledger updates.
type SettlementEntry struct {
	ID                string         `gorm:"column:id;primaryKey"`
	FundID            string         `gorm:"column:fund_id"`
	UserID            string         `gorm:"column:user_id"`
	SharesBurned      uint64         `gorm:"column:shares_burned"`
	TokensTransferred uint64         `gorm:"column:tokens_transferred"`
	FeeTokens         uint64         `gorm:"column:fee_tokens"`
	ValueUsd          float64        `gorm:"column:value_usd"`
	Metadata          datatypes.JSON `gorm:"column:metadata"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
}

func (SettlementEntry) TableName() string {
	return "fund_settlements"
}

// Settlement is the ephemeral outcome of one approval; never persisted
// beyond the journal entry.
type Settlement struct {
	SharesBurned      uint64  `json:"shares_burned"`
	TokensRemoved     uint64  `json:"tokens_removed"`
	TokensTransferred uint64  `json:"tokens_transferred"`
	FeeTokens         uint64  `json:"fee_tokens"`
	ValueUsd          float64 `json:"value_usd"`
}

// CustodyToken is the immutable reference data the valuation converter
// needs about the asset held in custody.
type CustodyToken struct {
	Mint       string
	Decimals   uint8
	OracleType oracle.OracleType
}

func (c *Custody) Token() CustodyToken {
	return CustodyToken{
		Mint:       c.TokenMint,
		Decimals:   c.Decimals,
		OracleType: oracle.OracleType(c.OracleType),
	}
}

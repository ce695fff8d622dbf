package fund

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fundcustody/services/oracle"
	"fundcustody/services/token"
)

// Service owns the withdrawal lifecycle of a fund: recording requests,
// denying them, and settling approved withdrawals against custody.
type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	repo      Repository
	registry  *token.Registry
	converter *Converter
	validator *Validator
	prices    oracle.Reader

	// now is swappable in tests; settlement staleness gates key off it.
	now func() time.Time
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Registry *token.Registry
	Prices   oracle.Reader
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		repo:      NewRepository(p.DB),
		registry:  p.Registry,
		converter: NewConverter(p.Prices),
		validator: NewValidator(p.Registry),
		prices:    p.Prices,
		now:       time.Now,
	}
}

// ApproveWithdrawalRequest carries the operator's approval call: which
// fund and user, the share quantity to settle (0 settles the full pending
// request), and the ordered account set for layout validation.
type ApproveWithdrawalRequest struct {
	FundID   string   `json:"fund_id"`
	UserID   string   `json:"user_id"`
	Amount   uint64   `json:"amount"`
	Accounts []string `json:"accounts"`
}

// ApproveWithdrawal settles a user's pending withdrawal request: it burns
// share tokens and pays out the proportional NAV share in custody tokens,
// minus the withdrawal fee. The whole sequence runs in one transaction;
// either every ledger write and asset movement commits, or none do.
func (s *Service) ApproveWithdrawal(ctx context.Context, req ApproveWithdrawalRequest) (*Settlement, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("fund_id", req.FundID),
		zap.String("user_id", req.UserID),
	)

	var settlement *Settlement

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		registry := s.registry.WithTx(tx)
		validator := s.validator.WithRegistry(registry)
		now := s.now()

		set, err := AccountSetFromSlice(req.Accounts)
		if err != nil {
			return err
		}

		fund, err := repo.GetFund(ctx, req.FundID)
		if err != nil {
			return err
		}
		custody, err := repo.GetCustody(ctx, req.FundID)
		if err != nil {
			return err
		}
		ledger, err := repo.GetLedger(ctx, req.FundID, true)
		if err != nil {
			return err
		}

		zapLog.Info("validate state and accounts")
		if err := validator.Validate(ctx, fund, ledger, custody, set); err != nil {
			return err
		}

		user, err := repo.GetUserLedger(ctx, req.FundID, req.UserID, true)
		if err != nil {
			return err
		}
		if user == nil || !user.HasPendingRequest() {
			return ErrNoPendingRequest
		}

		// Resolve the settlement quantity. A zero argument settles the full
		// pending request; otherwise the operator partially approves.
		amountWithFee := user.WithdrawalRequestAmount
		if req.Amount != 0 && req.Amount < amountWithFee {
			amountWithFee = req.Amount
		}
		if amountWithFee == 0 {
			return ErrZeroAmount
		}

		// A stale NAV would price shares against an outdated valuation.
		if !ledger.AssetsFresh(now) {
			return ErrStaleValuation.WithDetail("last update %d, max age %ds", ledger.AssetsUpdateTime, ledger.AssetsMaxUpdateAgeSec)
		}

		supply, err := registry.SupplyOf(ctx, set.ShareMint)
		if err != nil {
			return err
		}
		if amountWithFee > supply {
			return ErrSupplyExceeded
		}

		// supply > 0 here
		withdrawalValueUsd := ledger.CurrentAssetsUsd * float64(amountWithFee) / float64(supply)
		zapLog.Info("compute withdrawal amount",
			zap.Uint64("amount_with_fee", amountWithFee),
			zap.Float64("withdrawal_value_usd", withdrawalValueUsd),
		)

		tokensToRemove, err := s.converter.TokensForValue(
			ctx,
			withdrawalValueUsd,
			custody.Token(),
			custody.OracleID,
			ledger.AssetsMaxPriceError,
			ledger.AssetsMaxPriceAgeSec,
			now,
		)
		if err != nil {
			return err
		}

		feeTokens, tokensToTransfer, err := SplitFee(tokensToRemove, FeeParts(ledger.WithdrawalFee))
		if err != nil {
			return err
		}

		custodyBalance, err := registry.BalanceOf(ctx, set.CustodyAccount)
		if err != nil {
			return err
		}
		if tokensToRemove > custodyBalance {
			return ErrCustodyUnderfunded.WithDetail("need %d tokens, custody holds %d", tokensToRemove, custodyBalance)
		}

		zapLog.Info("transfer tokens to user wallet",
			zap.Uint64("tokens_to_transfer", tokensToTransfer),
			zap.Uint64("fee_tokens", feeTokens),
		)
		if err := registry.Transfer(ctx, fund.Authority, set.CustodyAccount, set.WithdrawalAccount, tokensToTransfer); err != nil {
			return err
		}
		if feeTokens > 0 {
			if err := registry.Transfer(ctx, fund.Authority, set.CustodyAccount, set.CustodyFeesAccount, feeTokens); err != nil {
				return err
			}
		}

		zapLog.Info("burn share tokens from user", zap.Uint64("amount_with_fee", amountWithFee))
		if err := registry.Burn(ctx, fund.Authority, set.UserShareAccount, set.ShareMint, amountWithFee); err != nil {
			return err
		}

		ledger.ApplyWithdrawal(withdrawalValueUsd)
		ledger.UpdatedAt = now
		if err := repo.SaveLedger(ctx, ledger); err != nil {
			return err
		}

		user.SettleRequest(amountWithFee)
		user.UpdatedAt = now
		if err := repo.SaveUserLedger(ctx, user); err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]any{
			"share_mint":      set.ShareMint,
			"custody_account": set.CustodyAccount,
			"oracle_id":       custody.OracleID,
		})
		if err := repo.CreateSettlement(ctx, &SettlementEntry{
			ID:                s.node.Generate().String(),
			FundID:            req.FundID,
			UserID:            req.UserID,
			SharesBurned:      amountWithFee,
			TokensTransferred: tokensToTransfer,
			FeeTokens:         feeTokens,
			ValueUsd:          withdrawalValueUsd,
			Metadata:          datatypes.JSON(meta),
			CreatedAt:         now,
		}); err != nil {
			return err
		}

		settlement = &Settlement{
			SharesBurned:      amountWithFee,
			TokensRemoved:     tokensToRemove,
			TokensTransferred: tokensToTransfer,
			FeeTokens:         feeTokens,
			ValueUsd:          withdrawalValueUsd,
		}

		return nil
	})
	if err != nil {
		zapLog.Warn("withdrawal approval failed", zap.Error(err))
		return nil, err
	}

	return settlement, nil
}

// RequestWithdrawal records a user's pending withdrawal request in share
// units. A new request replaces any previous one and clears a standing
// deny reason.
func (s *Service) RequestWithdrawal(ctx context.Context, fundID, userID string, amount uint64) (*UserLedger, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	var result *UserLedger

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		ledger, err := repo.GetLedger(ctx, fundID, false)
		if err != nil {
			return err
		}
		if ledger.IsLiquidating() {
			return ErrLiquidationActive
		}

		user, err := repo.GetUserLedger(ctx, fundID, userID, true)
		if err != nil {
			return err
		}

		if user == nil {
			user = &UserLedger{FundID: fundID, UserID: userID}
			user.WithdrawalRequestAmount = amount
			user.WithdrawalRequestTime = now.Unix()
			user.UpdatedAt = now
			result = user
			return repo.CreateUserLedger(ctx, user)
		}

		user.WithdrawalRequestAmount = amount
		user.WithdrawalRequestTime = now.Unix()
		user.DenyReason = ""
		user.UpdatedAt = now
		result = user
		return repo.SaveUserLedger(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DenyWithdrawal clears a pending request without moving assets and records
// the operator's reason for the user to read back.
func (s *Service) DenyWithdrawal(ctx context.Context, fundID, userID, reason string) (*UserLedger, error) {
	var result *UserLedger

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.GetUserLedger(ctx, fundID, userID, true)
		if err != nil {
			return err
		}
		if user == nil || !user.HasPendingRequest() {
			return ErrNoPendingRequest
		}

		user.WithdrawalRequestAmount = 0
		user.WithdrawalRequestTime = 0
		user.DenyReason = reason
		user.UpdatedAt = s.now()
		result = user
		return repo.SaveUserLedger(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RefreshAssets revalues the fund's aggregate NAV from the custody balance
// at the current oracle price and stamps the valuation time. Settlements
// refuse to run once this stamp ages past the fund's staleness bound.
func (s *Service) RefreshAssets(ctx context.Context, fundID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		registry := s.registry.WithTx(tx)
		now := s.now()

		custody, err := repo.GetCustody(ctx, fundID)
		if err != nil {
			return err
		}
		ledger, err := repo.GetLedger(ctx, fundID, true)
		if err != nil {
			return err
		}

		balance, err := registry.BalanceOf(ctx, custody.TokenAccount)
		if err != nil {
			return err
		}

		valueUsd, err := s.converter.ValueOfTokens(
			ctx,
			balance,
			custody.Token(),
			custody.OracleID,
			ledger.AssetsMaxPriceError,
			ledger.AssetsMaxPriceAgeSec,
			now,
		)
		if err != nil {
			return err
		}

		ledger.CurrentAssetsUsd = valueUsd
		ledger.AssetsUpdateTime = now.Unix()
		ledger.UpdatedAt = now

		zap.L().Info("fund assets refreshed",
			zap.String("fund_id", fundID),
			zap.Float64("current_assets_usd", valueUsd),
		)

		return repo.SaveLedger(ctx, ledger)
	})
}

// GetLedger returns the fund's aggregate ledger.
func (s *Service) GetLedger(ctx context.Context, fundID string) (*Ledger, error) {
	return s.repo.GetLedger(ctx, fundID, false)
}

// GetUserLedger returns one user's request ledger, or nil when the user has
// never interacted with the fund.
func (s *Service) GetUserLedger(ctx context.Context, fundID, userID string) (*UserLedger, error) {
	return s.repo.GetUserLedger(ctx, fundID, userID, false)
}

package fund

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrFundNotFound signals an unknown fund or custody registration. Distinct
// from the program errors: it means the caller addressed something that was
// never configured, not that a precondition failed.
var ErrFundNotFound = errors.New("fund: not found")

// Repository describes database operations over the fund tables. Ledger
// reads taken with lock=true hold a row lock until the surrounding
// transaction commits, which is what serializes concurrent settlements of
// the same request.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetFund(ctx context.Context, fundID string) (*Fund, error)
	GetCustody(ctx context.Context, fundID string) (*Custody, error)
	GetLedger(ctx context.Context, fundID string, lock bool) (*Ledger, error)
	SaveLedger(ctx context.Context, ledger *Ledger) error
	GetUserLedger(ctx context.Context, fundID, userID string, lock bool) (*UserLedger, error)
	CreateUserLedger(ctx context.Context, ledger *UserLedger) error
	SaveUserLedger(ctx context.Context, ledger *UserLedger) error
	CreateSettlement(ctx context.Context, entry *SettlementEntry) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a gorm backed Repository implementation.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

// locked applies a FOR UPDATE row lock. sqlite has no row locks and
// serializes writers on the connection instead, so the clause is skipped.
func (r *gormRepository) locked(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *gormRepository) GetFund(ctx context.Context, fundID string) (*Fund, error) {
	var fund Fund
	err := r.db.WithContext(ctx).
		Where("id = ?", fundID).
		First(&fund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return &fund, nil
}

func (r *gormRepository) GetCustody(ctx context.Context, fundID string) (*Custody, error) {
	var custody Custody
	err := r.db.WithContext(ctx).
		Where("fund_id = ?", fundID).
		First(&custody).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return &custody, nil
}

func (r *gormRepository) GetLedger(ctx context.Context, fundID string, lock bool) (*Ledger, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = r.locked(q)
	}

	var ledger Ledger
	err := q.Where("fund_id = ?", fundID).First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return &ledger, nil
}

func (r *gormRepository) SaveLedger(ctx context.Context, ledger *Ledger) error {
	return r.db.WithContext(ctx).Save(ledger).Error
}

func (r *gormRepository) GetUserLedger(ctx context.Context, fundID, userID string, lock bool) (*UserLedger, error) {
	q := r.db.WithContext(ctx)
	if lock {
		q = r.locked(q)
	}

	var ledger UserLedger
	err := q.Where("fund_id = ? AND user_id = ?", fundID, userID).First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ledger, nil
}

func (r *gormRepository) CreateUserLedger(ctx context.Context, ledger *UserLedger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *gormRepository) SaveUserLedger(ctx context.Context, ledger *UserLedger) error {
	return r.db.WithContext(ctx).Save(ledger).Error
}

func (r *gormRepository) CreateSettlement(ctx context.Context, entry *SettlementEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

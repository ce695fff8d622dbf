package token

import "time"

// Mint describes a token kind: its total supply, precision and the
// authority allowed to burn from holder accounts.
type Mint struct {
	Address   string    `gorm:"column:address;primaryKey"`
	Decimals  uint8     `gorm:"column:decimals"`
	Supply    uint64    `gorm:"column:supply"`
	Authority string    `gorm:"column:authority"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Mint) TableName() string {
	return "token_mints"
}

// Account is a holder account for a single mint.
type Account struct {
	Address   string    `gorm:"column:address;primaryKey"`
	Mint      string    `gorm:"column:mint"`
	Owner     string    `gorm:"column:owner"`
	Balance   uint64    `gorm:"column:balance"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Account) TableName() string {
	return "token_accounts"
}

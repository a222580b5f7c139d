package models

import (
	"time"

	"amm-market/internal/fixedpoint"
)

// ShareBalance is an account's holdings in one market. A missing row means
// every balance is zero.
type ShareBalance struct {
	MarketID        string          `gorm:"type:varchar(36);primaryKey" json:"market_id"`
	Account         string          `gorm:"size:64;primaryKey" json:"account"`
	YesShares       fixedpoint.U128 `gorm:"not null" json:"yes_shares"`
	NoShares        fixedpoint.U128 `gorm:"not null" json:"no_shares"`
	LiquidityShares fixedpoint.U128 `gorm:"not null" json:"liquidity_shares"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for ShareBalance
func (ShareBalance) TableName() string {
	return "share_balances"
}

// Shares returns a pointer to the outcome balance of o
func (b *ShareBalance) Shares(o Outcome) *fixedpoint.U128 {
	if o == OutcomeYes {
		return &b.YesShares
	}
	return &b.NoShares
}

// MarketAndBalance is the combined read of a market and one account's holdings
type MarketAndBalance struct {
	Market  Market       `json:"market"`
	Balance ShareBalance `json:"balance"`
}

package models

import (
	"amm-market/internal/fixedpoint"
)

// MarketOrder is one point of the append-only price history. OrderIndex runs
// 1..Market.TotalOrders with no gaps.
type MarketOrder struct {
	MarketID   string          `gorm:"type:varchar(36);primaryKey" json:"-"`
	OrderIndex uint64          `gorm:"primaryKey;autoIncrement:false" json:"index"`
	Timestamp  int64           `gorm:"not null;index" json:"timestamp"`
	YesPrice   fixedpoint.U128 `gorm:"not null" json:"price"`
}

// TableName specifies the table name for MarketOrder model
func (MarketOrder) TableName() string {
	return "market_orders"
}

// OrderPage is one page of the price history, newest first
type OrderPage struct {
	AsOf   int64         `json:"as_of"`
	Orders []MarketOrder `json:"orders"`
}

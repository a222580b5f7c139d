package models

import (
	"time"

	"gorm.io/datatypes"

	"amm-market/internal/fixedpoint"
)

// RegistryAdmin is an account allowed to create markets and manage admins.
// Removal keeps the row with Active=false.
type RegistryAdmin struct {
	Address   string    `gorm:"size:64;primaryKey" json:"address"`
	Active    bool      `gorm:"not null" json:"active"`
	AddedBy   string    `gorm:"size:64" json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RegistryAdmin) TableName() string {
	return "registry_admins"
}

// RegistryMarket is the registry's view of a market it created
type RegistryMarket struct {
	MarketID  string                      `gorm:"type:varchar(36);primaryKey" json:"market_id"`
	Creator   string                      `gorm:"size:64;not null;index" json:"creator"`
	Media     datatypes.JSONSlice[string] `json:"media"`
	Volume    fixedpoint.U128             `gorm:"not null" json:"volume"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

func (RegistryMarket) TableName() string {
	return "registry_markets"
}

// MarketSet names one of the registry's indexed market lists
type MarketSet string

const (
	MarketSetAll       MarketSet = "all"
	MarketSetActive    MarketSet = "active"
	MarketSetCompleted MarketSet = "completed"
)

// MarketSetFromKind maps the list selector used by clients (0 all, 1 active,
// anything else completed).
func MarketSetFromKind(kind uint8) MarketSet {
	switch kind {
	case 0:
		return MarketSetAll
	case 1:
		return MarketSetActive
	}
	return MarketSetCompleted
}

// RegistrySlot places a market at a 1-based position of a set. Positions are
// dense: a set of n markets occupies 1..n.
type RegistrySlot struct {
	Set      MarketSet `gorm:"column:set_name;size:16;primaryKey" json:"set"`
	Position uint64    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	MarketID string    `gorm:"type:varchar(36);not null;index" json:"market_id"`
}

func (RegistrySlot) TableName() string {
	return "registry_slots"
}

// RegistryStats is the registry-wide counter row. There is exactly one, ID 1.
type RegistryStats struct {
	ID              uint            `gorm:"primaryKey" json:"-"`
	Volume          fixedpoint.U128 `gorm:"not null" json:"volume"`
	TotalPools      uint64          `gorm:"not null;default:0" json:"total_pools"`
	UniqueWallets   uint64          `gorm:"not null;default:0" json:"unique_wallets"`
	ActiveEvents    uint64          `gorm:"not null;default:0" json:"active_events"`
	CompletedEvents uint64          `gorm:"not null;default:0" json:"completed_events"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (RegistryStats) TableName() string {
	return "registry_stats"
}

// Count returns the size of set s
func (s *RegistryStats) Count(set MarketSet) uint64 {
	switch set {
	case MarketSetAll:
		return s.TotalPools
	case MarketSetActive:
		return s.ActiveEvents
	}
	return s.CompletedEvents
}

// RegistryWallet marks an account that has traded at least once
type RegistryWallet struct {
	Address   string    `gorm:"size:64;primaryKey" json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (RegistryWallet) TableName() string {
	return "registry_wallets"
}

// RegistryIncentive accumulates points per account for placing orders
type RegistryIncentive struct {
	Account   string    `gorm:"size:64;primaryKey" json:"account"`
	Points    uint64    `gorm:"not null;default:0" json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RegistryIncentive) TableName() string {
	return "registry_incentives"
}

// MarketList is one page of a registry set, newest position first
type MarketList struct {
	Markets []MarketResponse `json:"markets"`
	Indexes []uint64         `json:"indexes"`
	Page    uint64           `json:"page"`
	Pages   uint64           `json:"pages"`
}

// AdminRequest names an account to add or remove as admin
type AdminRequest struct {
	Address string `json:"address" binding:"required"`
}

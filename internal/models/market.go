package models

import (
	"time"

	"gorm.io/datatypes"

	"amm-market/internal/fixedpoint"
)

// Outcome is the side of a binary market a share pays out on
type Outcome uint8

const (
	OutcomeNo  Outcome = 0
	OutcomeYes Outcome = 1
)

// Valid reports whether o is Yes or No
func (o Outcome) Valid() bool { return o <= OutcomeYes }

// Other returns the opposite outcome
func (o Outcome) Other() Outcome { return 1 - o }

func (o Outcome) String() string {
	switch o {
	case OutcomeYes:
		return "YES"
	case OutcomeNo:
		return "NO"
	}
	return "INVALID"
}

// Side is the direction of a trade against the pool
type Side uint8

const (
	SideSell Side = 0
	SideBuy  Side = 1
)

func (s Side) Valid() bool { return s <= SideBuy }

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return "INVALID"
}

// Engine constants. Prices are fractions of ScaleUnits; amounts are in
// settlement-currency base units (6 decimals).
const (
	ScaleUnits        = 100_000_000
	ScaleBPUnits      = 10_000
	MinLiquidityUnits = 10_000_000
	MaxImpactBPUnits  = 500
	FeePercent        = 2
	ResolutionWindow  = 180 * time.Second
	PriceDecimals     = 8
)

var (
	Scale        = fixedpoint.New(ScaleUnits)
	ScaleBP      = fixedpoint.New(ScaleBPUnits)
	MinLiquidity = fixedpoint.New(MinLiquidityUnits)
	MaxImpactBP  = fixedpoint.New(MaxImpactBPUnits)
	MinBootstrap = fixedpoint.New(ScaleUnits / 10)
	MaxBootstrap = fixedpoint.New(9 * (ScaleUnits / 10))
)

// Market is the pricing and settlement state of one binary market
type Market struct {
	ID              string                      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title           string                      `gorm:"size:500;not null" json:"title"`
	Description     string                      `gorm:"type:text" json:"description"`
	Categories      datatypes.JSONSlice[string] `json:"categories"`
	SettlementDenom string                      `gorm:"size:64;not null" json:"settlement_denom"`
	Owner           string                      `gorm:"size:64;not null;index" json:"owner"`
	Registry        string                      `gorm:"size:64;not null" json:"registry"`
	YesPrice        fixedpoint.U128             `gorm:"not null" json:"yes_price"`
	NoPrice         fixedpoint.U128             `gorm:"not null" json:"no_price"`
	YesLiquidity    fixedpoint.U128             `gorm:"not null" json:"yes_liquidity"`
	NoLiquidity     fixedpoint.U128             `gorm:"not null" json:"no_liquidity"`
	YesShares       fixedpoint.U128             `gorm:"not null" json:"yes_shares"`
	NoShares        fixedpoint.U128             `gorm:"not null" json:"no_shares"`
	LiquidityShares fixedpoint.U128             `gorm:"not null" json:"liquidity_shares"`
	MarketCreated   int64                       `gorm:"not null" json:"market_created"`
	MarketEnd       int64                       `gorm:"not null;index" json:"market_end"`
	Resolved        bool                        `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedTo      Outcome                     `gorm:"not null;default:0" json:"resolved_to"`
	TotalOrders     uint64                      `gorm:"not null;default:0" json:"total_orders"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// Initialized reports whether liquidity has been bootstrapped
func (m *Market) Initialized() bool {
	return !m.YesPrice.IsZero()
}

// Price returns a pointer to the price field of o
func (m *Market) Price(o Outcome) *fixedpoint.U128 {
	if o == OutcomeYes {
		return &m.YesPrice
	}
	return &m.NoPrice
}

// Liquidity returns a pointer to the reserve of o
func (m *Market) Liquidity(o Outcome) *fixedpoint.U128 {
	if o == OutcomeYes {
		return &m.YesLiquidity
	}
	return &m.NoLiquidity
}

// Shares returns a pointer to the outstanding share total of o
func (m *Market) Shares(o Outcome) *fixedpoint.U128 {
	if o == OutcomeYes {
		return &m.YesShares
	}
	return &m.NoShares
}

// InResolutionWindow reports whether now falls in the quiet period
// [market_end, market_end + ResolutionWindow) during which trading is frozen.
func (m *Market) InResolutionWindow(now time.Time) bool {
	ts := now.Unix()
	return ts >= m.MarketEnd && ts < m.MarketEnd+int64(ResolutionWindow/time.Second)
}

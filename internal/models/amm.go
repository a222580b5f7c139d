package models

import (
	"time"

	"github.com/shopspring/decimal"

	"amm-market/internal/fixedpoint"
)

// QuoteResult is the modeled outcome of a trade against current reserves
type QuoteResult struct {
	AmountOut   fixedpoint.U128 `json:"amount_out"`
	PriceImpact fixedpoint.U128 `json:"price_impact"` // basis points
	Price       fixedpoint.U128 `json:"price"`        // post-trade price of the traded outcome
	Fee         fixedpoint.U128 `json:"fee"`
}

// PriceCandle is an OHLC bucket of the Yes price built from the order ledger
type PriceCandle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Orders    int             `json:"orders"`
}

// ---- Request/Response DTOs ----

// CreateMarketRequest is the request body for creating a new market
type CreateMarketRequest struct {
	Title       string    `json:"title" binding:"required,max=500"`
	Description string    `json:"description"`
	EndDate     int64     `json:"end_date" binding:"required,min=1"`
	Categories  []string  `json:"categories"`
	Media       [2]string `json:"media"`
}

// BootstrapLiquidityRequest seeds a market's pool
type BootstrapLiquidityRequest struct {
	YesPrice  fixedpoint.U128 `json:"yes_price"`
	Liquidity fixedpoint.U128 `json:"liquidity"`
}

// AddLiquidityRequest deposits settlement currency into an initialized pool
type AddLiquidityRequest struct {
	Amount fixedpoint.U128 `json:"amount"`
}

// RemoveLiquidityRequest burns liquidity shares
type RemoveLiquidityRequest struct {
	Shares fixedpoint.U128 `json:"shares"`
}

// PlaceOrderRequest buys or sells outcome shares
type PlaceOrderRequest struct {
	Outcome *uint8          `json:"outcome" binding:"required"`
	Side    *uint8          `json:"side" binding:"required"`
	Amount  fixedpoint.U128 `json:"amount"`
}

// ResolveMarketRequest settles a market. MarketIndex is the market's position
// in the registry's active set as returned by the market list.
type ResolveMarketRequest struct {
	Outcome     *uint8 `json:"outcome" binding:"required"`
	MarketIndex uint64 `json:"market_index" binding:"required,min=1"`
}

// ClaimRequest redeems winning shares
type ClaimRequest struct {
	Outcome *uint8 `json:"outcome" binding:"required"`
}

// QuoteRequest is the query params for getting a trade quote
type QuoteRequest struct {
	Outcome uint8  `form:"outcome" binding:"max=1"`
	Side    uint8  `form:"side" binding:"max=1"`
	Amount  string `form:"amount" binding:"required"`
}

// QuoteResponse adds display prices to a quote
type QuoteResponse struct {
	QuoteResult
	DisplayPrice decimal.Decimal `json:"display_price"`
	ImpactPct    decimal.Decimal `json:"impact_pct"`
}

// MarketResponse is the API response for a market
type MarketResponse struct {
	Market
	Index      uint64          `json:"index,omitempty"`
	Volume     fixedpoint.U128 `json:"volume"`
	Media      []string        `json:"media"`
	YesDisplay decimal.Decimal `json:"yes_display_price"`
	NoDisplay  decimal.Decimal `json:"no_display_price"`
	Balance    *ShareBalance   `json:"balance,omitempty"`
	Closed     bool            `json:"closed"`
}

// NewMarketResponse fills the display fields of m
func NewMarketResponse(m Market, now time.Time) MarketResponse {
	return MarketResponse{
		Market:     m,
		YesDisplay: m.YesPrice.Decimal(PriceDecimals),
		NoDisplay:  m.NoPrice.Decimal(PriceDecimals),
		Closed:     m.Resolved || now.Unix() >= m.MarketEnd,
	}
}

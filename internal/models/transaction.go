package models

import (
	"time"

	"amm-market/internal/fixedpoint"
)

// TransferKind names why settlement currency leaves a market
type TransferKind string

const (
	TransferLiquidityWithdrawal TransferKind = "liquidity_withdrawal"
	TransferSaleProceeds        TransferKind = "sale_proceeds"
	TransferSaleFee             TransferKind = "sale_fee"
	TransferClaimPayout         TransferKind = "claim_payout"
)

// TransferStatus tracks an instruction through the dispatcher
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferDispatched TransferStatus = "dispatched"
	TransferFailed     TransferStatus = "failed"
)

// TransferInstruction is an outbound payment recorded in the same transaction
// as the state change that produced it.
type TransferInstruction struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	MarketID     string          `gorm:"type:varchar(36);not null;index" json:"market_id"`
	Recipient    string          `gorm:"size:64;not null;index" json:"recipient"`
	Denom        string          `gorm:"size:64;not null" json:"denom"`
	Amount       fixedpoint.U128 `gorm:"not null" json:"amount"`
	Kind         TransferKind    `gorm:"size:32;not null" json:"kind"`
	Status       TransferStatus  `gorm:"size:16;not null;default:pending;index" json:"status"`
	Attempts     int             `gorm:"not null;default:0" json:"attempts"`
	LastError    string          `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
}

// TableName specifies the table name for TransferInstruction model
func (TransferInstruction) TableName() string {
	return "transfer_instructions"
}

// EscrowAccount mirrors the settlement-currency balance a market holds
type EscrowAccount struct {
	MarketID  string          `gorm:"type:varchar(36);primaryKey" json:"market_id"`
	Denom     string          `gorm:"size:64;not null" json:"denom"`
	Balance   fixedpoint.U128 `gorm:"not null" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for EscrowAccount model
func (EscrowAccount) TableName() string {
	return "escrow_accounts"
}

package services

import (
	"context"
	"fmt"

	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
	"amm-market/internal/repository"
)

// EscrowLedger mirrors the settlement currency each market holds. Deposits
// credit it; every transfer instruction debits it and is written to the
// outbox in the same transaction.
type EscrowLedger struct {
	repo *repository.Repository
}

func NewEscrowLedger(repo *repository.Repository) *EscrowLedger {
	return &EscrowLedger{repo: repo}
}

// SettlementBalance implements BalanceQuerier
func (l *EscrowLedger) SettlementBalance(ctx context.Context, market *models.Market) (fixedpoint.U128, error) {
	escrow, err := l.repo.GetEscrow(ctx, market.ID)
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("load escrow: %w", err)
	}
	return escrow.Balance, nil
}

// Credit adds a deposit to the market's escrow
func (l *EscrowLedger) Credit(ctx context.Context, market *models.Market, amount fixedpoint.U128) error {
	escrow, err := l.repo.GetEscrow(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("load escrow: %w", err)
	}
	escrow.Denom = market.SettlementDenom
	escrow.Balance = escrow.Balance.Add(amount)
	if err := l.repo.SaveEscrow(ctx, escrow); err != nil {
		return fmt.Errorf("save escrow: %w", err)
	}
	return nil
}

// Disburse debits the escrow by the sum of transfers and records them as
// pending instructions. It fails when the escrow cannot cover them.
func (l *EscrowLedger) Disburse(ctx context.Context, market *models.Market, transfers []models.TransferInstruction) error {
	if len(transfers) == 0 {
		return nil
	}
	escrow, err := l.repo.GetEscrow(ctx, market.ID)
	if err != nil {
		return fmt.Errorf("load escrow: %w", err)
	}

	total := fixedpoint.Zero()
	for _, t := range transfers {
		total = total.Add(t.Amount)
	}
	remaining, ok := escrow.Balance.CheckedSub(total)
	if !ok {
		return economic(fmt.Sprintf("market escrow holds %s, transfers need %s", escrow.Balance, total))
	}

	escrow.Denom = market.SettlementDenom
	escrow.Balance = remaining
	if err := l.repo.SaveEscrow(ctx, escrow); err != nil {
		return fmt.Errorf("save escrow: %w", err)
	}
	if err := l.repo.CreateTransfers(ctx, transfers); err != nil {
		return fmt.Errorf("record transfers: %w", err)
	}
	return nil
}

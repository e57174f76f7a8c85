package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	ledgerRepo "github.com/fadedpez/numberledger/pkg/repositories/ledger"
)

func notAvailable(unitID int64) error {
	return types.NewLedgerError(types.ErrNotAvailable, fmt.Sprintf("unit %d is no longer available", unitID))
}

// Purchase sells a unit to a user. The balance check, debit, sold flag, purchase
// record and journal entry commit together or not at all.
func (c *Coordinator) Purchase(ctx context.Context, userID, unitID int64) (*PurchaseResult, error) {
	var result *PurchaseResult
	var accountType entities.AccountType

	err := c.repo.RunInTx(ctx, func(tx ledgerRepo.Tx) error {
		unit, err := tx.GetUnit(ctx, unitID)
		if types.IsLedgerError(err, types.ErrNotFound) {
			return notAvailable(unitID)
		}
		if err != nil {
			return err
		}
		accountType = unit.Type
		if !unit.IsAvailable() {
			return notAvailable(unitID)
		}

		wallets, err := tx.GetWallets(ctx, userID)
		if err != nil {
			return err
		}

		walletName, err := c.allocator.Choose(unit.Type, wallets, unit.Price)
		if err != nil {
			return err
		}

		sold, err := tx.MarkSold(ctx, unit.ID)
		if err != nil {
			return err
		}
		if !sold {
			return notAvailable(unitID)
		}

		balance, err := tx.AdjustWallet(ctx, userID, walletName, unit.Price.Neg())
		if err != nil {
			return err
		}

		now := c.now()
		purchase := entities.NewPurchase(userID, unit, walletName, now)
		purchaseID, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}

		if err := tx.AppendJournal(ctx, &entities.JournalEntry{
			UserID:       userID,
			Wallet:       walletName,
			Amount:       unit.Price.Neg(),
			Type:         entities.JournalTypePurchase,
			ReferenceID:  purchaseID,
			Description:  fmt.Sprintf("%s %s (%s)", unit.Type, unit.Number, unit.Country),
			BalanceAfter: balance,
			Timestamp:    now,
		}); err != nil {
			return err
		}

		unit.Status = entities.UnitSold
		result = &PurchaseResult{
			PurchaseID:   purchaseID,
			Wallet:       walletName,
			Unit:         *unit,
			BalanceAfter: balance,
		}
		return nil
	})

	if err != nil {
		c.metrics.Purchase(typeLabel(accountType), purchaseOutcome(err), 0)
		var funds *types.InsufficientFundsError
		switch {
		case errors.As(err, &funds):
			c.log.Info().Int64("user_id", userID).Int64("unit_id", unitID).Stringer("price", funds.Price).Msg("purchase refused: insufficient funds")
		case types.IsLedgerError(err, types.ErrNotAvailable):
			c.log.Info().Int64("user_id", userID).Int64("unit_id", unitID).Msg("purchase refused: not available")
		default:
			c.log.Error().Err(err).Int64("user_id", userID).Int64("unit_id", unitID).Msg("purchase failed")
		}
		return nil, err
	}

	c.metrics.Purchase(string(result.Unit.Type), "ok", result.Unit.Price.InexactFloat64())
	c.log.Info().
		Int64("user_id", userID).
		Int64("unit_id", unitID).
		Int64("purchase_id", result.PurchaseID).
		Str("wallet", string(result.Wallet)).
		Stringer("price", result.Unit.Price).
		Stringer("balance", result.BalanceAfter).
		Msg("purchase completed")

	return result, nil
}

func typeLabel(accountType entities.AccountType) string {
	if accountType == "" {
		return "unknown"
	}
	return string(accountType)
}

func purchaseOutcome(err error) string {
	switch types.CodeOf(err) {
	case types.ErrNotAvailable:
		return "not_available"
	case types.ErrInsufficientFunds:
		return "insufficient_funds"
	default:
		return "error"
	}
}

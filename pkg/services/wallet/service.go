package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/repositories/ledger"
)

// Service handles admin balance operations
type Service struct {
	store Store
	rules Rules
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a new wallet service
func NewService(store Store, rules Rules, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		rules: rules,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Balances returns every configured wallet for a user, zero when never funded
func (s *Service) Balances(ctx context.Context, userID int64) (entities.Wallets, error) {
	wallets, err := s.store.GetWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := wallets.Clone()
	for _, name := range s.rules.Wallets() {
		if _, ok := out[name]; !ok {
			out[name] = decimal.Zero
		}
	}
	return out, nil
}

func (s *Service) checkWallet(name entities.WalletName) error {
	if !s.rules.HasWallet(name) {
		return types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown wallet %q", name))
	}
	return nil
}

// AdminCredit adds a positive amount to a user's wallet and journals it
func (s *Service) AdminCredit(ctx context.Context, adminID, userID int64, name entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, types.NewLedgerError(types.ErrInvalidAmount, "amount must be positive")
	}
	if err := s.checkWallet(name); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.store.RunInTx(ctx, func(tx ledger.Tx) error {
		var err error
		balance, err = tx.AdjustWallet(ctx, userID, name, amount)
		if err != nil {
			return err
		}

		return tx.AppendJournal(ctx, &entities.JournalEntry{
			UserID:       userID,
			Wallet:       name,
			Amount:       amount,
			Type:         entities.JournalTypeAdminCredit,
			Description:  fmt.Sprintf("admin credit by %d", adminID),
			BalanceAfter: balance,
			Timestamp:    s.now(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Str("wallet", string(name)).
		Stringer("amount", amount).
		Stringer("balance", balance).
		Msg("admin credit")

	return balance, nil
}

// AdminSetBalance overwrites a user's wallet and journals the difference
func (s *Service) AdminSetBalance(ctx context.Context, adminID, userID int64, name entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, types.NewLedgerError(types.ErrInvalidAmount, "balance cannot be negative")
	}
	if err := s.checkWallet(name); err != nil {
		return decimal.Zero, err
	}

	var previous decimal.Decimal
	err := s.store.RunInTx(ctx, func(tx ledger.Tx) error {
		var err error
		previous, err = tx.SetWallet(ctx, userID, name, amount)
		if err != nil {
			return err
		}

		return tx.AppendJournal(ctx, &entities.JournalEntry{
			UserID:       userID,
			Wallet:       name,
			Amount:       amount.Sub(previous),
			Type:         entities.JournalTypeAdminSet,
			Description:  fmt.Sprintf("balance set by %d", adminID),
			BalanceAfter: amount,
			Timestamp:    s.now(),
		})
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info().
		Int64("admin_id", adminID).
		Int64("user_id", userID).
		Str("wallet", string(name)).
		Stringer("previous", previous).
		Stringer("balance", amount).
		Msg("admin set balance")

	return previous, nil
}

// Package ledger coordinates the operations that move money and stock.
package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/metrics"
	ledgerRepo "github.com/fadedpez/numberledger/pkg/repositories/ledger"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
)

// ProfileHistoryLimit is how many purchases a profile shows
const ProfileHistoryLimit = 10

// PurchaseResult describes a completed sale
type PurchaseResult struct {
	PurchaseID   int64
	Wallet       entities.WalletName
	Unit         entities.InventoryUnit
	BalanceAfter decimal.Decimal
}

// CreditResult describes a deposit credit. AlreadyCredited is not an error.
type CreditResult struct {
	RequestID       int64
	AlreadyCredited bool
	UserID          int64
	Wallet          entities.WalletName
	Amount          decimal.Decimal
	BalanceAfter    decimal.Decimal
}

// Profile is a user's balances and recent purchases
type Profile struct {
	UserID    int64
	Wallets   entities.Wallets
	Purchases []*entities.Purchase
}

// Coordinator runs the ledger operations that must be atomic
type Coordinator struct {
	repo      ledgerRepo.Repository
	allocator *wallet.Allocator
	log       zerolog.Logger
	metrics   *metrics.Ledger
	now       func() time.Time
}

// NewCoordinator creates a new coordinator. m may be nil.
func NewCoordinator(repo ledgerRepo.Repository, allocator *wallet.Allocator, log zerolog.Logger, m *metrics.Ledger) *Coordinator {
	return &Coordinator{
		repo:      repo,
		allocator: allocator,
		log:       log,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Profile returns every configured wallet and the latest purchases of a user
func (c *Coordinator) Profile(ctx context.Context, userID int64) (*Profile, error) {
	wallets, err := c.repo.GetWallets(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, name := range c.allocator.Rules().Wallets() {
		if _, ok := wallets[name]; !ok {
			wallets[name] = decimal.Zero
		}
	}

	purchases, err := c.repo.PurchaseHistory(ctx, userID, ProfileHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &Profile{UserID: userID, Wallets: wallets, Purchases: purchases}, nil
}

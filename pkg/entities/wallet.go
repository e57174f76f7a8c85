package entities

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WalletName identifies one of a user's balances
type WalletName string

const (
	Wallet1 WalletName = "wallet_1"
	Wallet2 WalletName = "wallet_2"
)

// Wallets holds a user's named balances. Missing names read as zero.
type Wallets map[WalletName]decimal.Decimal

// Balance returns the balance of the named wallet, zero when absent
func (w Wallets) Balance(name WalletName) decimal.Decimal {
	if w == nil {
		return decimal.Zero
	}
	if amount, ok := w[name]; ok {
		return amount
	}
	return decimal.Zero
}

// Names returns the wallet names in ascending order
func (w Wallets) Names() []WalletName {
	names := make([]WalletName, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Clone returns an independent copy
func (w Wallets) Clone() Wallets {
	out := make(Wallets, len(w))
	for name, amount := range w {
		out[name] = amount
	}
	return out
}

// AsStrings converts the wallets to a plain map keyed by name
func (w Wallets) AsStrings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(w))
	for name, amount := range w {
		out[string(name)] = amount
	}
	return out
}

// JournalType represents the type of balance movement
type JournalType string

const (
	JournalTypePurchase      JournalType = "PURCHASE"
	JournalTypeDepositCredit JournalType = "DEPOSIT_CREDIT"
	JournalTypeAdminCredit   JournalType = "ADMIN_CREDIT"
	JournalTypeAdminSet      JournalType = "ADMIN_SET"
)

// JournalEntry represents a single balance movement
type JournalEntry struct {
	ID           string          // Unique identifier
	UserID       int64           // User whose wallet moved
	Wallet       WalletName      // Wallet that moved
	Amount       decimal.Decimal // Signed delta
	Type         JournalType     // Type of movement
	ReferenceID  int64           // Purchase or deposit request id, zero for admin movements
	Description  string          // Human-readable description
	BalanceAfter decimal.Decimal // Balance after this movement
	Timestamp    time.Time       // When the movement occurred
	Exported     bool            // Whether the entry reached the archive
}

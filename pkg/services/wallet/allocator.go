package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

// Allocator decides which wallet pays for a unit
type Allocator struct {
	rules Rules
}

// NewAllocator creates an allocator over a rule table
func NewAllocator(rules Rules) *Allocator {
	return &Allocator{rules: rules}
}

// Rules returns the table the allocator was built with
func (a *Allocator) Rules() Rules {
	return a.rules
}

// Choose returns the first eligible wallet whose balance covers price
func (a *Allocator) Choose(accountType entities.AccountType, wallets entities.Wallets, price decimal.Decimal) (entities.WalletName, error) {
	eligible, ok := a.rules[accountType]
	if !ok {
		return "", types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("no wallet rule for type %q", accountType))
	}

	for _, name := range eligible {
		if wallets.Balance(name).GreaterThanOrEqual(price) {
			return name, nil
		}
	}

	// Report only the wallets that could have paid
	balances := make(map[string]decimal.Decimal, len(eligible))
	for _, name := range eligible {
		balances[string(name)] = wallets.Balance(name)
	}
	return "", types.NewInsufficientFundsError(price, balances)
}

package wallet

import (
	"context"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/repositories/ledger"
)

// Store is the slice of the ledger repository the wallet service needs
type Store interface {
	RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error
	GetWallets(ctx context.Context, userID int64) (entities.Wallets, error)
}

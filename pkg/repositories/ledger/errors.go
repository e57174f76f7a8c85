package ledger

import (
	"fmt"

	"github.com/fadedpez/numberledger/internal/types"
)

// storageErr wraps a driver error so callers see STORAGE_UNAVAILABLE
func storageErr(op string, err error) error {
	return types.WrapError(types.ErrStorageUnavailable, op, err)
}

func notFound(what string, id int64) error {
	return types.NewLedgerError(types.ErrNotFound, fmt.Sprintf("%s %d not found", what, id))
}

// Package review encodes the legal status moves of deposit requests and purchases.
package review

import (
	"fmt"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

// Decision is an admin's verdict on a pending deposit
type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

// Target returns the status a decision moves a pending request to
func (d Decision) Target() (entities.DepositStatus, error) {
	switch d {
	case Approve:
		return entities.DepositApproved, nil
	case Deny:
		return entities.DepositDenied, nil
	default:
		return "", types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown decision %q", d))
	}
}

var depositMoves = map[entities.DepositStatus][]entities.DepositStatus{
	entities.DepositPending:  {entities.DepositApproved, entities.DepositDenied, entities.DepositCredited},
	entities.DepositApproved: {entities.DepositCredited},
	entities.DepositDenied:   {entities.DepositCredited},
}

var purchaseMoves = map[entities.PurchaseStatus][]entities.PurchaseStatus{
	entities.PurchasePendingOTP: {entities.PurchaseOTPSent},
	entities.PurchaseOTPSent:    {entities.PurchaseOTPSent},
}

// DepositTransition reports whether a deposit request may move from one status to another.
// Credit is reachable from every non-credited status; credited is terminal.
func DepositTransition(from, to entities.DepositStatus) error {
	for _, allowed := range depositMoves[from] {
		if allowed == to {
			return nil
		}
	}

	if from == entities.DepositCredited && to == entities.DepositCredited {
		return types.NewLedgerError(types.ErrAlreadyCredited, "deposit request already credited")
	}
	return types.NewLedgerError(types.ErrAlreadyReviewed, fmt.Sprintf("deposit request cannot move from %s to %s", from, to))
}

// PurchaseTransition reports whether a purchase may move from one status to another
func PurchaseTransition(from, to entities.PurchaseStatus) error {
	for _, allowed := range purchaseMoves[from] {
		if allowed == to {
			return nil
		}
	}
	return types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("purchase cannot move from %s to %s", from, to))
}

// IsTerminal reports whether no further decision can be taken on a deposit request
func IsTerminal(status entities.DepositStatus) bool {
	return len(depositMoves[status]) == 0
}

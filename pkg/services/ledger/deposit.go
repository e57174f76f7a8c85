package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/review"
)

// SubmitDeposit records a user's payment claim against an explicit wallet
func (c *Coordinator) SubmitDeposit(ctx context.Context, userID int64, walletName entities.WalletName, details, proofRef string) (*entities.DepositRequest, error) {
	if !c.allocator.Rules().HasWallet(walletName) {
		return nil, types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown wallet %q", walletName))
	}

	details = strings.TrimSpace(details)
	if details == "" {
		details = entities.DefaultDepositDetails
	}

	req := &entities.DepositRequest{
		UserID:    userID,
		ProofRef:  proofRef,
		Details:   details,
		Wallet:    walletName,
		Status:    entities.DepositPending,
		CreatedAt: c.now(),
	}

	id, err := c.repo.InsertDepositRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = id

	c.log.Info().
		Int64("deposit_id", id).
		Int64("user_id", userID).
		Str("wallet", string(walletName)).
		Bool("has_proof", proofRef != "").
		Msg("deposit submitted")

	return req, nil
}

// GetDeposit retrieves a deposit request
func (c *Coordinator) GetDeposit(ctx context.Context, requestID int64) (*entities.DepositRequest, error) {
	return c.repo.GetDepositRequest(ctx, requestID)
}

// ApproveOrDeny records a reviewer's decision on a pending request. It reports
// false when the request is missing or was already reviewed. No money moves.
func (c *Coordinator) ApproveOrDeny(ctx context.Context, requestID, reviewerID int64, decision review.Decision) (bool, error) {
	target, err := decision.Target()
	if err != nil {
		return false, err
	}

	applied, err := c.repo.TransitionDepositStatus(ctx, requestID, entities.DepositPending, target, reviewerID)
	if err != nil {
		c.metrics.DepositReview(string(decision), "error")
		return false, err
	}

	if !applied {
		c.metrics.DepositReview(string(decision), "skipped")
		event := c.log.Info().Int64("deposit_id", requestID).Str("decision", string(decision))
		if req, err := c.repo.GetDepositRequest(ctx, requestID); err == nil {
			event = event.AnErr("reason", review.DepositTransition(req.Status, target))
		}
		event.Msg("deposit decision not applied")
		return false, nil
	}

	c.metrics.DepositReview(string(decision), "applied")
	c.log.Info().
		Int64("deposit_id", requestID).
		Int64("reviewer_id", reviewerID).
		Str("status", string(target)).
		Msg("deposit reviewed")

	return true, nil
}

// DepositCredit credits a request's wallet exactly once. Repeating the call
// returns AlreadyCredited without moving money.
func (c *Coordinator) DepositCredit(ctx context.Context, requestID, reviewerID int64, amount decimal.Decimal) (*CreditResult, error) {
	if !amount.IsPositive() {
		c.metrics.DepositCredit("invalid_amount")
		return nil, types.NewLedgerError(types.ErrInvalidAmount, "amount must be positive")
	}

	outcome, err := c.repo.CreditDepositIfNotAlready(ctx, requestID, reviewerID, amount)
	if err != nil {
		c.metrics.DepositCredit("error")
		return nil, err
	}

	result := &CreditResult{
		RequestID:       requestID,
		AlreadyCredited: outcome.AlreadyCredited,
		UserID:          outcome.UserID,
		Wallet:          outcome.Wallet,
		Amount:          outcome.Amount,
		BalanceAfter:    outcome.BalanceAfter,
	}

	if result.AlreadyCredited {
		c.metrics.DepositCredit("already_credited")
		c.log.Info().Int64("deposit_id", requestID).Int64("reviewer_id", reviewerID).Msg("deposit already credited")
		return result, nil
	}

	c.metrics.DepositCredit("credited")
	c.log.Info().
		Int64("deposit_id", requestID).
		Int64("reviewer_id", reviewerID).
		Int64("user_id", result.UserID).
		Str("wallet", string(result.Wallet)).
		Stringer("amount", amount).
		Stringer("balance", result.BalanceAfter).
		Msg("deposit credited")

	return result, nil
}

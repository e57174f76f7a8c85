package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

// OtpDelivery attaches an OTP to the newest purchase of a number. Repeating it overwrites.
func (c *Coordinator) OtpDelivery(ctx context.Context, number, otp string) (*entities.Purchase, error) {
	number = strings.TrimSpace(number)
	otp = strings.TrimSpace(otp)
	if number == "" || otp == "" {
		return nil, types.NewLedgerError(types.ErrInvalidArgument, "number and otp are required")
	}

	purchase, err := c.repo.SetOTPForLatestPurchase(ctx, number, otp)
	if err != nil {
		c.metrics.OTPDelivery("error")
		return nil, err
	}
	if purchase == nil {
		c.metrics.OTPDelivery("no_purchase")
		return nil, types.NewLedgerError(types.ErrNoPurchaseFound, fmt.Sprintf("no purchase found for %s", number))
	}

	c.metrics.OTPDelivery("delivered")
	c.log.Info().
		Int64("purchase_id", purchase.ID).
		Int64("user_id", purchase.UserID).
		Str("number", number).
		Msg("otp delivered")

	return purchase, nil
}

// ReportProblem stores a user's complaint
func (c *Coordinator) ReportProblem(ctx context.Context, userID int64, message string) (*entities.ProblemReport, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, types.NewLedgerError(types.ErrInvalidArgument, "problem description is required")
	}

	report := &entities.ProblemReport{
		UserID:    userID,
		Message:   message,
		Status:    entities.ProblemOpen,
		CreatedAt: c.now(),
	}
	id, err := c.repo.InsertProblem(ctx, report)
	if err != nil {
		return nil, err
	}
	report.ID = id

	c.log.Info().Int64("problem_id", id).Int64("user_id", userID).Msg("problem reported")
	return report, nil
}

// CloseProblem marks a report solved, false when it was not open
func (c *Coordinator) CloseProblem(ctx context.Context, problemID int64) (bool, error) {
	return c.repo.CloseProblem(ctx, problemID)
}

// OpenProblems lists unsolved reports, oldest first
func (c *Coordinator) OpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error) {
	return c.repo.ListOpenProblems(ctx, limit)
}

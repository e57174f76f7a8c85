package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/review"
)

const depositColumns = `id, user_id, proof_ref, details, wallet, status, reviewed_by, credited_amount, created_at, reviewed_at`

func scanDeposit(row rowScanner) (*entities.DepositRequest, error) {
	var req entities.DepositRequest
	var proofRef, reviewedAt sql.NullString
	var reviewedBy sql.NullInt64
	var createdAt string

	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&proofRef,
		&req.Details,
		&req.Wallet,
		&req.Status,
		&reviewedBy,
		&req.CreditedAmount,
		&createdAt,
		&reviewedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if req.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		t, err := parseTime(reviewedAt.String)
		if err != nil {
			return nil, err
		}
		req.ReviewedAt = &t
	}
	req.ProofRef = proofRef.String
	req.ReviewedBy = reviewedBy.Int64
	return &req, nil
}

// InsertDepositRequest stores a pending deposit request
func (r *SQLiteRepository) InsertDepositRequest(ctx context.Context, req *entities.DepositRequest) (int64, error) {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO deposit_requests (user_id, proof_ref, details, wallet, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		req.UserID,
		nullString(req.ProofRef),
		req.Details,
		string(req.Wallet),
		string(entities.DepositPending),
		formatTime(createdAt),
	)
	if err != nil {
		return 0, storageErr("insert deposit request", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("insert deposit request id", err)
	}
	return id, nil
}

// GetDepositRequest retrieves a deposit request
func (r *SQLiteRepository) GetDepositRequest(ctx context.Context, id int64) (*entities.DepositRequest, error) {
	return r.direct().getDeposit(ctx, id)
}

func (t *sqliteTx) getDeposit(ctx context.Context, id int64) (*entities.DepositRequest, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+depositColumns+` FROM deposit_requests WHERE id = ?`, id)

	req, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("deposit request", id)
	}
	if err != nil {
		return nil, storageErr("get deposit request", err)
	}
	return req, nil
}

// TransitionDepositStatus moves a request from one status to another as one conditional write
func (r *SQLiteRepository) TransitionDepositStatus(ctx context.Context, id int64, from, to entities.DepositStatus, reviewerID int64) (bool, error) {
	if err := review.DepositTransition(from, to); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE deposit_requests
		SET status = ?, reviewed_by = ?, reviewed_at = ?
		WHERE id = ? AND status = ?
	`, string(to), reviewerID, formatTime(r.now()), id, string(from))
	if err != nil {
		return false, storageErr("transition deposit request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("transition rows affected", err)
	}
	return rowsAffected == 1, nil
}

// CreditDepositIfNotAlready credits a request's wallet exactly once
func (r *SQLiteRepository) CreditDepositIfNotAlready(ctx context.Context, id, reviewerID int64, amount decimal.Decimal) (*entities.CreditOutcome, error) {
	var outcome *entities.CreditOutcome

	err := r.inTx(ctx, func(tx *sqliteTx) error {
		req, err := tx.getDeposit(ctx, id)
		if err != nil {
			return err
		}

		outcome = &entities.CreditOutcome{UserID: req.UserID, Wallet: req.Wallet, Amount: amount}
		if review.IsTerminal(req.Status) {
			outcome.AlreadyCredited = true
			outcome.Amount = req.CreditedAmount.Decimal
			outcome.BalanceAfter, err = tx.balance(ctx, req.UserID, req.Wallet)
			return err
		}
		if err := review.DepositTransition(req.Status, entities.DepositCredited); err != nil {
			return err
		}

		balance, err := tx.AdjustWallet(ctx, req.UserID, req.Wallet, amount)
		if err != nil {
			return err
		}

		now := tx.now()
		result, err := tx.q.ExecContext(ctx, `
			UPDATE deposit_requests
			SET status = ?, reviewed_by = ?, credited_amount = ?, reviewed_at = ?
			WHERE id = ? AND status != ?
		`, string(entities.DepositCredited), reviewerID, amount.String(), formatTime(now), id, string(entities.DepositCredited))
		if err != nil {
			return storageErr("mark deposit credited", err)
		}
		if rowsAffected, err := result.RowsAffected(); err != nil || rowsAffected != 1 {
			return storageErr("mark deposit credited", fmt.Errorf("deposit request %d changed during credit", id))
		}

		req.ID = id
		if err := tx.AppendJournal(ctx, depositJournalEntry(req, amount, balance, now)); err != nil {
			return err
		}

		outcome.BalanceAfter = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// InsertProblem stores an open problem report
func (r *SQLiteRepository) InsertProblem(ctx context.Context, report *entities.ProblemReport) (int64, error) {
	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO problem_reports (user_id, message, status, created_at) VALUES (?, ?, ?, ?)
	`, report.UserID, report.Message, string(entities.ProblemOpen), formatTime(createdAt))
	if err != nil {
		return 0, storageErr("insert problem", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("insert problem id", err)
	}
	return id, nil
}

// CloseProblem closes an open report
func (r *SQLiteRepository) CloseProblem(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE problem_reports SET status = ? WHERE id = ? AND status = ?`,
		string(entities.ProblemClosed), id, string(entities.ProblemOpen),
	)
	if err != nil {
		return false, storageErr("close problem", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("close problem rows affected", err)
	}
	return rowsAffected == 1, nil
}

// ListOpenProblems returns open reports, oldest first
func (r *SQLiteRepository) ListOpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, message, status, created_at FROM problem_reports
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`, string(entities.ProblemOpen), limit)
	if err != nil {
		return nil, storageErr("list problems", err)
	}
	defer rows.Close()

	var reports []*entities.ProblemReport
	for rows.Next() {
		var report entities.ProblemReport
		var createdAt string
		if err := rows.Scan(&report.ID, &report.UserID, &report.Message, &report.Status, &createdAt); err != nil {
			return nil, storageErr("scan problem", err)
		}
		if report.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, storageErr("scan problem", err)
		}
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate problems", err)
	}
	return reports, nil
}

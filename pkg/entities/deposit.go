package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDepositDetails is stored when a user submits proof without text
const DefaultDepositDetails = "No details provided"

// DepositStatus represents the review state of a deposit request
type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositApproved DepositStatus = "approved"
	DepositDenied   DepositStatus = "denied"
	DepositCredited DepositStatus = "credited"
)

// DepositRequest is a user's claim that they paid into a wallet
type DepositRequest struct {
	ID             int64
	UserID         int64
	ProofRef       string
	Details        string
	Wallet         WalletName
	Status         DepositStatus
	ReviewedBy     int64
	CreditedAmount decimal.NullDecimal
	CreatedAt      time.Time
	ReviewedAt     *time.Time
}

// CreditOutcome reports what CreditDepositIfNotAlready did
type CreditOutcome struct {
	AlreadyCredited bool
	UserID          int64
	Wallet          WalletName
	Amount          decimal.Decimal
	BalanceAfter    decimal.Decimal
}

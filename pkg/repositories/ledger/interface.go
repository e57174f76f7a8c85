package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// Tx is the set of operations available inside RunInTx. Every call made
// through a Tx commits or rolls back together.
type Tx interface {
	// GetUnit retrieves a unit by id, NOT_FOUND when absent
	GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error)

	// GetWallets reads a user's balances, empty for unknown users
	GetWallets(ctx context.Context, userID int64) (entities.Wallets, error)

	// AdjustWallet applies a signed delta, creating user and wallet rows if absent
	AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error)

	// SetWallet overwrites a balance and returns the previous one
	SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error)

	// MarkSold flips an available unit to sold and reports whether it did
	MarkSold(ctx context.Context, unitID int64) (bool, error)

	// InsertPurchase stores a purchase and returns its id
	InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error)

	// AppendJournal records a balance movement
	AppendJournal(ctx context.Context, entry *entities.JournalEntry) error
}

// Repository defines the durable ledger state
type Repository interface {
	// RunInTx runs fn in one storage transaction, rolling back if fn returns an error
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// UpsertUser inserts a user or refreshes its display metadata. Never touches balances.
	UpsertUser(ctx context.Context, user *entities.User) error

	// ListUserIDs returns every known user id in ascending order
	ListUserIDs(ctx context.Context) ([]int64, error)

	// GetWallets reads a user's balances without creating rows
	GetWallets(ctx context.Context, userID int64) (entities.Wallets, error)

	// AdjustWallet applies a signed delta in its own transaction
	AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error)

	// SetWallet overwrites a balance and returns the previous one
	SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error)

	// ListAvailableByTypeGroupedByCountry summarizes available stock of a type, country ascending
	ListAvailableByTypeGroupedByCountry(ctx context.Context, accountType entities.AccountType) ([]entities.CountryStock, error)

	// CountAvailableByType counts available units per type
	CountAvailableByType(ctx context.Context) (map[entities.AccountType]int, error)

	// FirstAvailable returns the lowest-id available unit for a type and country, nil when none
	FirstAvailable(ctx context.Context, accountType entities.AccountType, country string) (*entities.InventoryUnit, error)

	// GetUnit retrieves a unit by id, NOT_FOUND when absent
	GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error)

	// AddUnit stores a new available unit and returns its id
	AddUnit(ctx context.Context, unit *entities.InventoryUnit) (int64, error)

	// MarkSold flips an available unit to sold in its own statement
	MarkSold(ctx context.Context, unitID int64) (bool, error)

	// InsertPurchase stores a purchase outside of a transaction
	InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error)

	// PurchaseHistory returns a user's latest purchases, newest first
	PurchaseHistory(ctx context.Context, userID int64, limit int) ([]*entities.Purchase, error)

	// SetOTPForLatestPurchase stores an otp on the newest purchase of a number, nil when none
	SetOTPForLatestPurchase(ctx context.Context, number, otp string) (*entities.Purchase, error)

	// SalesByType aggregates purchases per type, type ascending
	SalesByType(ctx context.Context) ([]entities.TypeSales, error)

	// InsertDepositRequest stores a pending deposit request and returns its id
	InsertDepositRequest(ctx context.Context, req *entities.DepositRequest) (int64, error)

	// GetDepositRequest retrieves a deposit request, NOT_FOUND when absent
	GetDepositRequest(ctx context.Context, id int64) (*entities.DepositRequest, error)

	// TransitionDepositStatus moves a request from one status to another and reports whether it did.
	// A move the review machine forbids returns ALREADY_REVIEWED without touching storage.
	TransitionDepositStatus(ctx context.Context, id int64, from, to entities.DepositStatus, reviewerID int64) (bool, error)

	// CreditDepositIfNotAlready credits a request's wallet exactly once
	CreditDepositIfNotAlready(ctx context.Context, id, reviewerID int64, amount decimal.Decimal) (*entities.CreditOutcome, error)

	// InsertProblem stores an open problem report and returns its id
	InsertProblem(ctx context.Context, report *entities.ProblemReport) (int64, error)

	// CloseProblem closes an open report and reports whether it did
	CloseProblem(ctx context.Context, id int64) (bool, error)

	// ListOpenProblems returns open reports, oldest first
	ListOpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error)

	// AppendJournal records a balance movement outside of a transaction
	AppendJournal(ctx context.Context, entry *entities.JournalEntry) error

	// UnexportedJournal returns entries not yet archived, oldest first
	UnexportedJournal(ctx context.Context, limit int) ([]*entities.JournalEntry, error)

	// MarkJournalExported flags entries as archived
	MarkJournalExported(ctx context.Context, ids []string) error

	// Close releases the underlying storage
	Close() error
}

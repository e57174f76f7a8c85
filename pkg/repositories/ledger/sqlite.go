package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/db/migrations"
	"github.com/fadedpez/numberledger/pkg/entities"
)

// Writers take the database lock at BEGIN so read-modify-write sequences inside
// RunInTx never interleave. WAL lets readers proceed meanwhile.
const sqliteDSNParams = "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens the database at dbPath and applies pending migrations
func NewSQLiteRepository(ctx context.Context, dbPath string, log zerolog.Logger) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", dbPath, sqliteDSNParams))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := migrations.NewMigrator(db, migrations.Embedded(), log).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &SQLiteRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// RunInTx runs fn inside one immediate transaction. The transaction is not tied
// to ctx cancellation, so a commit is never abandoned half way.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.inTx(ctx, func(tx *sqliteTx) error {
		return fn(tx)
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(tx *sqliteTx) error) error {
	sqlTx, err := r.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&sqliteTx{q: sqlTx, now: r.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// direct returns statement-level access outside of a transaction
func (r *SQLiteRepository) direct() *sqliteTx {
	return &sqliteTx{q: r.db, now: r.now}
}

// UpsertUser inserts a user or refreshes its display metadata
func (r *SQLiteRepository) UpsertUser(ctx context.Context, user *entities.User) error {
	now := formatTime(r.now())
	query := `
		INSERT INTO users (id, username, first_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName, now, now); err != nil {
		return storageErr("upsert user", err)
	}
	return nil
}

// ListUserIDs returns every known user id in ascending order
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan user id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate users", err)
	}
	return ids, nil
}

// GetWallets reads a user's balances without creating rows
func (r *SQLiteRepository) GetWallets(ctx context.Context, userID int64) (entities.Wallets, error) {
	return r.direct().GetWallets(ctx, userID)
}

// AdjustWallet applies a signed delta in its own transaction
func (r *SQLiteRepository) AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.inTx(ctx, func(tx *sqliteTx) error {
		var err error
		balance, err = tx.AdjustWallet(ctx, userID, wallet, delta)
		return err
	})
	return balance, err
}

// SetWallet overwrites a balance and returns the previous one
func (r *SQLiteRepository) SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	var previous decimal.Decimal
	err := r.inTx(ctx, func(tx *sqliteTx) error {
		var err error
		previous, err = tx.SetWallet(ctx, userID, wallet, amount)
		return err
	})
	return previous, err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// sqliteTx runs statements against either the database or an open transaction
type sqliteTx struct {
	q   queryer
	now func() time.Time
}

func (t *sqliteTx) GetWallets(ctx context.Context, userID int64) (entities.Wallets, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT name, balance FROM wallets WHERE user_id = ?`, userID)
	if err != nil {
		return nil, storageErr("get wallets", err)
	}
	defer rows.Close()

	wallets := make(entities.Wallets)
	for rows.Next() {
		var name string
		var balance decimal.Decimal
		if err := rows.Scan(&name, &balance); err != nil {
			return nil, storageErr("scan wallet", err)
		}
		wallets[entities.WalletName(name)] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate wallets", err)
	}
	return wallets, nil
}

func (t *sqliteTx) balance(ctx context.Context, userID int64, wallet entities.WalletName) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = ? AND name = ?`, userID, string(wallet),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, storageErr("get balance", err)
	}
	return balance, nil
}

func (t *sqliteTx) writeBalance(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) error {
	now := formatTime(t.now())

	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, userID, now, now); err != nil {
		return storageErr("ensure user", err)
	}

	if _, err := t.q.ExecContext(ctx, `
		INSERT INTO wallets (user_id, name, balance, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET
			balance = excluded.balance,
			updated_at = excluded.updated_at
	`, userID, string(wallet), amount.String(), now); err != nil {
		return storageErr("write balance", err)
	}
	return nil
}

func (t *sqliteTx) AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error) {
	current, err := t.balance(ctx, userID, wallet)
	if err != nil {
		return decimal.Zero, err
	}

	updated := current.Add(delta)
	if err := t.writeBalance(ctx, userID, wallet, updated); err != nil {
		return decimal.Zero, err
	}
	return updated, nil
}

func (t *sqliteTx) SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	previous, err := t.balance(ctx, userID, wallet)
	if err != nil {
		return decimal.Zero, err
	}
	if err := t.writeBalance(ctx, userID, wallet, amount); err != nil {
		return decimal.Zero, err
	}
	return previous, nil
}

// Timestamps are stored as fixed-width RFC 3339 text in UTC so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", value, err)
	}
	return t, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/review"
)

const unitColumns = `id, number, country, price, type, status, added_by, created_at, login_ref, login_status`

const purchaseColumns = `id, user_id, unit_id, number, country, price, type, wallet, otp, status, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUnit(row rowScanner) (*entities.InventoryUnit, error) {
	var unit entities.InventoryUnit
	var createdAt string
	var loginRef, loginStatus sql.NullString

	if err := row.Scan(
		&unit.ID,
		&unit.Number,
		&unit.Country,
		&unit.Price,
		&unit.Type,
		&unit.Status,
		&unit.AddedBy,
		&createdAt,
		&loginRef,
		&loginStatus,
	); err != nil {
		return nil, err
	}

	var err error
	if unit.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	unit.LoginRef = loginRef.String
	unit.LoginStatus = entities.LoginStatus(loginStatus.String)
	return &unit, nil
}

func scanPurchase(row rowScanner) (*entities.Purchase, error) {
	var p entities.Purchase
	var createdAt string
	var otp sql.NullString

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.UnitID,
		&p.Number,
		&p.Country,
		&p.Price,
		&p.Type,
		&p.Wallet,
		&otp,
		&p.Status,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	p.OTP = otp.String
	return &p, nil
}

// ListAvailableByTypeGroupedByCountry summarizes available stock of a type.
// Prices are text, so the minimum is computed here rather than in SQL.
func (r *SQLiteRepository) ListAvailableByTypeGroupedByCountry(ctx context.Context, accountType entities.AccountType) ([]entities.CountryStock, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT country, price FROM inventory_units
		WHERE type = ? AND status = ?
		ORDER BY country, id
	`, string(accountType), string(entities.UnitAvailable))
	if err != nil {
		return nil, storageErr("list stock", err)
	}
	defer rows.Close()

	var out []entities.CountryStock
	for rows.Next() {
		var country string
		var price decimal.Decimal
		if err := rows.Scan(&country, &price); err != nil {
			return nil, storageErr("scan stock", err)
		}

		if n := len(out); n > 0 && out[n-1].Country == country {
			out[n-1].Count++
			if price.LessThan(out[n-1].MinPrice) {
				out[n-1].MinPrice = price
			}
			continue
		}
		out = append(out, entities.CountryStock{Country: country, Count: 1, MinPrice: price})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate stock", err)
	}
	return out, nil
}

// CountAvailableByType counts available units per type
func (r *SQLiteRepository) CountAvailableByType(ctx context.Context) (map[entities.AccountType]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM inventory_units WHERE status = ? GROUP BY type
	`, string(entities.UnitAvailable))
	if err != nil {
		return nil, storageErr("count stock", err)
	}
	defer rows.Close()

	counts := make(map[entities.AccountType]int)
	for rows.Next() {
		var accountType string
		var count int
		if err := rows.Scan(&accountType, &count); err != nil {
			return nil, storageErr("scan stock count", err)
		}
		counts[entities.AccountType(accountType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate stock counts", err)
	}
	return counts, nil
}

// FirstAvailable returns the lowest-id available unit for a type and country
func (r *SQLiteRepository) FirstAvailable(ctx context.Context, accountType entities.AccountType, country string) (*entities.InventoryUnit, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+unitColumns+` FROM inventory_units
		WHERE type = ? AND country = ? AND status = ?
		ORDER BY id ASC
		LIMIT 1
	`, string(accountType), country, string(entities.UnitAvailable))

	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("first available unit", err)
	}
	return unit, nil
}

// GetUnit retrieves a unit by id
func (r *SQLiteRepository) GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error) {
	return r.direct().GetUnit(ctx, id)
}

// AddUnit stores a new available unit
func (r *SQLiteRepository) AddUnit(ctx context.Context, unit *entities.InventoryUnit) (int64, error) {
	createdAt := unit.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO inventory_units (number, country, price, type, status, added_by, created_at, login_ref, login_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		unit.Number,
		unit.Country,
		unit.Price.String(),
		string(unit.Type),
		string(entities.UnitAvailable),
		unit.AddedBy,
		formatTime(createdAt),
		nullString(unit.LoginRef),
		nullString(string(unit.LoginStatus)),
	)
	if err != nil {
		return 0, storageErr("add unit", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("add unit id", err)
	}
	return id, nil
}

// MarkSold flips an available unit to sold in its own statement
func (r *SQLiteRepository) MarkSold(ctx context.Context, unitID int64) (bool, error) {
	return r.direct().MarkSold(ctx, unitID)
}

// InsertPurchase stores a purchase outside of a transaction
func (r *SQLiteRepository) InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error) {
	return r.direct().InsertPurchase(ctx, purchase)
}

// PurchaseHistory returns a user's latest purchases, newest first
func (r *SQLiteRepository) PurchaseHistory(ctx context.Context, userID int64, limit int) ([]*entities.Purchase, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+` FROM purchases
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, storageErr("purchase history", err)
	}
	defer rows.Close()

	var purchases []*entities.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, storageErr("scan purchase", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate purchases", err)
	}
	return purchases, nil
}

// SetOTPForLatestPurchase stores an otp on the newest purchase of a number
func (r *SQLiteRepository) SetOTPForLatestPurchase(ctx context.Context, number, otp string) (*entities.Purchase, error) {
	var purchase *entities.Purchase
	err := r.inTx(ctx, func(tx *sqliteTx) error {
		row := tx.q.QueryRowContext(ctx, `
			SELECT `+purchaseColumns+` FROM purchases
			WHERE number = ?
			ORDER BY id DESC
			LIMIT 1
		`, number)

		p, err := scanPurchase(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return storageErr("latest purchase", err)
		}
		if err := review.PurchaseTransition(p.Status, entities.PurchaseOTPSent); err != nil {
			return err
		}

		if _, err := tx.q.ExecContext(ctx,
			`UPDATE purchases SET otp = ?, status = ? WHERE id = ?`,
			otp, string(entities.PurchaseOTPSent), p.ID,
		); err != nil {
			return storageErr("set otp", err)
		}

		p.OTP = otp
		p.Status = entities.PurchaseOTPSent
		purchase = p
		return nil
	})
	return purchase, err
}

// SalesByType aggregates purchases per type
func (r *SQLiteRepository) SalesByType(ctx context.Context) ([]entities.TypeSales, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, price FROM purchases`)
	if err != nil {
		return nil, storageErr("sales by type", err)
	}
	defer rows.Close()

	byType := make(map[entities.AccountType]*entities.TypeSales)
	for rows.Next() {
		var accountType string
		var price decimal.Decimal
		if err := rows.Scan(&accountType, &price); err != nil {
			return nil, storageErr("scan sale", err)
		}

		sales, ok := byType[entities.AccountType(accountType)]
		if !ok {
			sales = &entities.TypeSales{Type: entities.AccountType(accountType), Revenue: decimal.Zero}
			byType[sales.Type] = sales
		}
		sales.Count++
		sales.Revenue = sales.Revenue.Add(price)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sales", err)
	}

	out := make([]entities.TypeSales, 0, len(byType))
	for _, sales := range byType {
		out = append(out, *sales)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (t *sqliteTx) GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM inventory_units WHERE id = ?`, id)

	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("inventory unit", id)
	}
	if err != nil {
		return nil, storageErr("get unit", err)
	}
	return unit, nil
}

func (t *sqliteTx) MarkSold(ctx context.Context, unitID int64) (bool, error) {
	result, err := t.q.ExecContext(ctx,
		`UPDATE inventory_units SET status = ? WHERE id = ? AND status = ?`,
		string(entities.UnitSold), unitID, string(entities.UnitAvailable),
	)
	if err != nil {
		return false, storageErr("mark sold", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("mark sold rows affected", err)
	}
	return rowsAffected == 1, nil
}

func (t *sqliteTx) InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error) {
	createdAt := purchase.CreatedAt
	if createdAt.IsZero() {
		createdAt = t.now()
	}
	status := purchase.Status
	if status == "" {
		status = entities.PurchasePendingOTP
	}

	result, err := t.q.ExecContext(ctx, `
		INSERT INTO purchases (user_id, unit_id, number, country, price, type, wallet, otp, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		purchase.UserID,
		purchase.UnitID,
		purchase.Number,
		purchase.Country,
		purchase.Price.String(),
		string(purchase.Type),
		string(purchase.Wallet),
		nullString(purchase.OTP),
		string(status),
		formatTime(createdAt),
	)
	if err != nil {
		return 0, storageErr("insert purchase", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("insert purchase id", err)
	}
	return id, nil
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseStatus represents the OTP handshake state of a purchase
type PurchaseStatus string

const (
	PurchasePendingOTP PurchaseStatus = "pending_otp"
	PurchaseOTPSent    PurchaseStatus = "otp_sent"
)

// Purchase records a sale. Unit fields are copied at sale time.
type Purchase struct {
	ID        int64
	UserID    int64
	UnitID    int64
	Number    string
	Country   string
	Price     decimal.Decimal
	Type      AccountType
	Wallet    WalletName
	OTP       string
	Status    PurchaseStatus
	CreatedAt time.Time
}

// NewPurchase snapshots a unit into a pending purchase
func NewPurchase(userID int64, unit *InventoryUnit, wallet WalletName, at time.Time) *Purchase {
	return &Purchase{
		UserID:    userID,
		UnitID:    unit.ID,
		Number:    unit.Number,
		Country:   unit.Country,
		Price:     unit.Price,
		Type:      unit.Type,
		Wallet:    wallet,
		Status:    PurchasePendingOTP,
		CreatedAt: at,
	}
}

// TypeSales aggregates sold purchases of one type
type TypeSales struct {
	Type    AccountType
	Count   int
	Revenue decimal.Decimal
}

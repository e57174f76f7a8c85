package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWalletsBalance(t *testing.T) {
	w := Wallets{Wallet1: decimal.NewFromInt(50)}

	assert.True(t, w.Balance(Wallet1).Equal(decimal.NewFromInt(50)))
	assert.True(t, w.Balance(Wallet2).IsZero(), "unknown wallet should read as zero")
	assert.True(t, Wallets(nil).Balance(Wallet1).IsZero())
}

func TestWalletsCloneIsIndependent(t *testing.T) {
	w := Wallets{Wallet1: decimal.NewFromInt(1)}
	c := w.Clone()
	c[Wallet1] = decimal.NewFromInt(2)

	assert.True(t, w[Wallet1].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []WalletName{Wallet1, Wallet2}, Wallets{Wallet2: decimal.Zero, Wallet1: decimal.Zero}.Names())
}

func TestCountryNormalization(t *testing.T) {
	assert.Equal(t, "united states", NormalizeCountry("  United States "))
	assert.Equal(t, "United States", TitleCountry("united states"))
	assert.Equal(t, "Éire", TitleCountry("éire"))
}

func TestNewPurchaseSnapshotsUnit(t *testing.T) {
	unit := &InventoryUnit{
		ID:      7,
		Number:  "+15550001",
		Country: "usa",
		Price:   decimal.RequireFromString("12.50"),
		Type:    AccountTypeTG1,
		Status:  UnitAvailable,
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	p := NewPurchase(42, unit, Wallet2, at)
	unit.Number = "changed"

	assert.Equal(t, int64(7), p.UnitID)
	assert.Equal(t, "+15550001", p.Number)
	assert.Equal(t, PurchasePendingOTP, p.Status)
	assert.Equal(t, Wallet2, p.Wallet)
	assert.Equal(t, at, p.CreatedAt)
}

func TestSalesReportTotals(t *testing.T) {
	r := &SalesReport{Sales: []TypeSales{
		{Type: AccountTypeTG1, Count: 2, Revenue: decimal.NewFromInt(20)},
		{Type: AccountTypeWhatsApp, Count: 1, Revenue: decimal.RequireFromString("7.5")},
	}}

	assert.Equal(t, 3, r.TotalSold())
	assert.True(t, r.TotalRevenue().Equal(decimal.RequireFromString("27.5")))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "@ana", (&User{Username: "ana", FirstName: "Ana"}).DisplayName())
	assert.Equal(t, "Ana", (&User{FirstName: "Ana"}).DisplayName())
	assert.Equal(t, "user", (&User{}).DisplayName())
}

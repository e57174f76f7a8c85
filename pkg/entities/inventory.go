package entities

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// AccountType tags a unit with the product line it belongs to
type AccountType string

const (
	AccountTypeTG1      AccountType = "tg1"
	AccountTypeTG2      AccountType = "tg2"
	AccountTypeWhatsApp AccountType = "whatsapp"
)

// UnitStatus represents the sale state of an inventory unit
type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitSold      UnitStatus = "sold"
)

// LoginStatus tracks admin provisioning of a unit
type LoginStatus string

const (
	LoginPending  LoginStatus = "pending"
	LoginLoggedIn LoginStatus = "logged_in"
)

// InventoryUnit is one sellable account
type InventoryUnit struct {
	ID          int64
	Number      string
	Country     string
	Price       decimal.Decimal
	Type        AccountType
	Status      UnitStatus
	AddedBy     int64
	CreatedAt   time.Time
	LoginRef    string
	LoginStatus LoginStatus
}

// IsAvailable reports whether the unit can still be sold
func (u *InventoryUnit) IsAvailable() bool {
	return u != nil && u.Status == UnitAvailable
}

// CountryStock summarizes available units of one type in one country
type CountryStock struct {
	Country  string
	Count    int
	MinPrice decimal.Decimal
}

// NormalizeCountry lowercases and trims a country name
func NormalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}

// TitleCountry renders a normalized country for display
func TitleCountry(country string) string {
	words := strings.Fields(country)
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}
	return strings.Join(words, " ")
}

package bot

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
)

// Currency prefixes every rendered amount
const Currency = "₹"

// ResponseEmoji maps error codes to the emoji shown in front of their message
var ResponseEmoji = map[types.ErrorCode]string{
	types.ErrNotFound:           "🔍",
	types.ErrNoPurchaseFound:    "🔍",
	types.ErrNotAvailable:       "📦",
	types.ErrInsufficientFunds:  "❌",
	types.ErrInvalidAmount:      "❗",
	types.ErrAlreadyCredited:    "✋",
	types.ErrAlreadyReviewed:    "✋",
	types.ErrInvalidArgument:    "❗",
	types.ErrUnauthorized:       "🚫",
	types.ErrStorageUnavailable: "💥",
}

const genericFailure = "💥 Something went wrong, please try again in a moment."

func money(amount decimal.Decimal) string {
	return Currency + amount.StringFixed(2)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func code(s string) string {
	return "<code>" + escape(s) + "</code>"
}

func typeLabel(accountType entities.AccountType) string {
	switch accountType {
	case entities.AccountTypeTG1:
		return "Telegram TG1"
	case entities.AccountTypeTG2:
		return "Telegram TG2"
	case entities.AccountTypeWhatsApp:
		return "WhatsApp"
	}
	return strings.ToUpper(string(accountType))
}

// walletLabel renders wallet_1 as "Wallet 1"
func walletLabel(name entities.WalletName) string {
	label := strings.ReplaceAll(string(name), "_", " ")
	r, size := utf8.DecodeRuneInString(label)
	if size == 0 {
		return label
	}
	return string(unicode.ToUpper(r)) + label[size:]
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MainMenu is the persistent keyboard layout for MenuMain
func MainMenu() [][]string {
	return [][]string{
		{BtnTG1, BtnTG2},
		{BtnWhatsApp, BtnDeposit},
		{BtnProfile, BtnSupport},
		{BtnHowTo},
	}
}

// BackMenu is the persistent keyboard layout for MenuBack
func BackMenu() [][]string {
	return [][]string{{BtnBack}}
}

// errorMessage renders a domain error for the actor. ok is false for errors
// that are not ledger errors or that signal an outage.
func errorMessage(err error) (string, bool) {
	var funds *types.InsufficientFundsError
	if errors.As(err, &funds) {
		lines := []string{
			"❌ Insufficient deposit balance.",
			"Price: " + money(funds.Price),
		}
		for _, name := range sortedKeys(funds.Balances) {
			lines = append(lines, fmt.Sprintf("%s: %s", walletLabel(entities.WalletName(name)), money(funds.Balances[name])))
		}
		lines = append(lines, "", "Please deposit first using the Deposit button, then buy the number.")
		return strings.Join(lines, "\n"), true
	}

	var ledgerErr *types.LedgerError
	if !types.As(err, &ledgerErr) || ledgerErr.Code == types.ErrStorageUnavailable {
		return genericFailure, false
	}

	emoji := ResponseEmoji[ledgerErr.Code]
	if emoji == "" {
		emoji = "⚠️"
	}
	return fmt.Sprintf("%s %s", emoji, escape(ledgerErr.Message)), true
}

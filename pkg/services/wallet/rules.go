package wallet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// DefaultRulesSpec is the type-to-wallet table used when none is configured
const DefaultRulesSpec = "tg1=wallet_2;tg2=wallet_1;whatsapp=wallet_1|wallet_2"

// Rules maps each account type to the wallets allowed to pay for it, in preference order
type Rules map[entities.AccountType][]entities.WalletName

// DefaultRules returns the built-in rule table
func DefaultRules() Rules {
	return Rules{
		entities.AccountTypeTG1:      {entities.Wallet2},
		entities.AccountTypeTG2:      {entities.Wallet1},
		entities.AccountTypeWhatsApp: {entities.Wallet1, entities.Wallet2},
	}
}

// ParseRules reads a table written as "type=wallet|wallet;type=wallet"
func ParseRules(spec string) (Rules, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultRules(), nil
	}

	rules := make(Rules)
	for _, clause := range strings.Split(spec, ";") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		typeName, walletList, ok := strings.Cut(clause, "=")
		if !ok {
			return nil, fmt.Errorf("invalid wallet rule %q: expected type=wallets", clause)
		}

		accountType := entities.AccountType(strings.ToLower(strings.TrimSpace(typeName)))
		if accountType == "" {
			return nil, fmt.Errorf("invalid wallet rule %q: empty type", clause)
		}
		if _, dup := rules[accountType]; dup {
			return nil, fmt.Errorf("duplicate wallet rule for type %q", accountType)
		}

		var wallets []entities.WalletName
		for _, name := range strings.Split(walletList, "|") {
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, fmt.Errorf("invalid wallet rule %q: empty wallet name", clause)
			}
			wallets = append(wallets, entities.WalletName(name))
		}
		rules[accountType] = wallets
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("wallet rules %q define no types", spec)
	}
	return rules, nil
}

// Types lists the configured account types in ascending order
func (r Rules) Types() []entities.AccountType {
	out := make([]entities.AccountType, 0, len(r))
	for accountType := range r {
		out = append(out, accountType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Wallets lists every wallet named by any rule in ascending order
func (r Rules) Wallets() []entities.WalletName {
	seen := make(map[entities.WalletName]bool)
	var out []entities.WalletName
	for _, wallets := range r {
		for _, name := range wallets {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasType reports whether a type has a rule
func (r Rules) HasType(accountType entities.AccountType) bool {
	_, ok := r[accountType]
	return ok
}

// HasWallet reports whether a wallet is named by any rule
func (r Rules) HasWallet(name entities.WalletName) bool {
	for _, wallets := range r {
		for _, w := range wallets {
			if w == name {
				return true
			}
		}
	}
	return false
}

package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
)

// Store is the slice of the ledger repository the inventory service needs
type Store interface {
	FirstAvailable(ctx context.Context, accountType entities.AccountType, country string) (*entities.InventoryUnit, error)
	ListAvailableByTypeGroupedByCountry(ctx context.Context, accountType entities.AccountType) ([]entities.CountryStock, error)
	AddUnit(ctx context.Context, unit *entities.InventoryUnit) (int64, error)
}

// Service selects and stocks inventory
type Service struct {
	store Store
	rules wallet.Rules
	log   zerolog.Logger
}

// NewService creates a new inventory service
func NewService(store Store, rules wallet.Rules, log zerolog.Logger) *Service {
	return &Service{store: store, rules: rules, log: log}
}

func (s *Service) checkType(accountType entities.AccountType) error {
	if !s.rules.HasType(accountType) {
		return types.NewLedgerError(types.ErrInvalidArgument, fmt.Sprintf("unknown account type %q", accountType))
	}
	return nil
}

// Select returns the oldest available unit of a type in a country, nil when none
func (s *Service) Select(ctx context.Context, accountType entities.AccountType, country string) (*entities.InventoryUnit, error) {
	if err := s.checkType(accountType); err != nil {
		return nil, err
	}
	return s.store.FirstAvailable(ctx, accountType, entities.NormalizeCountry(country))
}

// Stock lists available units of a type per country
func (s *Service) Stock(ctx context.Context, accountType entities.AccountType) ([]entities.CountryStock, error) {
	if err := s.checkType(accountType); err != nil {
		return nil, err
	}
	return s.store.ListAvailableByTypeGroupedByCountry(ctx, accountType)
}

// AddUnit stocks a new unit on behalf of an admin
func (s *Service) AddUnit(ctx context.Context, adminID int64, accountType entities.AccountType, number, country string, price decimal.Decimal) (int64, error) {
	if err := s.checkType(accountType); err != nil {
		return 0, err
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return 0, types.NewLedgerError(types.ErrInvalidArgument, "number is required")
	}
	country = entities.NormalizeCountry(country)
	if country == "" {
		return 0, types.NewLedgerError(types.ErrInvalidArgument, "country is required")
	}
	if !price.IsPositive() {
		return 0, types.NewLedgerError(types.ErrInvalidAmount, "price must be positive")
	}

	id, err := s.store.AddUnit(ctx, &entities.InventoryUnit{
		Number:  number,
		Country: country,
		Price:   price,
		Type:    accountType,
		AddedBy: adminID,
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Int64("unit_id", id).
		Int64("admin_id", adminID).
		Str("type", string(accountType)).
		Str("country", country).
		Stringer("price", price).
		Msg("unit added")

	return id, nil
}

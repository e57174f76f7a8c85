package statistics

import (
	"context"
	"sort"
	"time"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// Repository is the slice of the ledger store the statistics service reads
type Repository interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	SalesByType(ctx context.Context) ([]entities.TypeSales, error)
	CountAvailableByType(ctx context.Context) (map[entities.AccountType]int, error)
	ListOpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error)
}

// Service provides the admin sales report
type Service struct {
	repository Repository
	now        func() time.Time
}

// NewService creates a new statistics service
func NewService(repository Repository) *Service {
	return &Service{
		repository: repository,
		now:        time.Now,
	}
}

// SalesReport gathers user, sales, stock and problem figures.
// Sales are ordered by revenue, highest first.
func (s *Service) SalesReport(ctx context.Context) (*entities.SalesReport, error) {
	users, err := s.repository.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	sales, err := s.repository.SalesByType(ctx)
	if err != nil {
		return nil, err
	}

	stock, err := s.repository.CountAvailableByType(ctx)
	if err != nil {
		return nil, err
	}

	problems, err := s.repository.ListOpenProblems(ctx, 0)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(sales, func(i, j int) bool {
		if !sales[i].Revenue.Equal(sales[j].Revenue) {
			return sales[i].Revenue.GreaterThan(sales[j].Revenue)
		}
		return sales[i].Type < sales[j].Type
	})

	return &entities.SalesReport{
		Users:        len(users),
		Sales:        sales,
		Stock:        stock,
		OpenProblems: len(problems),
		GeneratedAt:  s.now(),
	}, nil
}

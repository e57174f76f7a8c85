package statistics

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) SalesByType(ctx context.Context) ([]entities.TypeSales, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entities.TypeSales), args.Error(1)
}

func (m *MockRepository) CountAvailableByType(ctx context.Context) (map[entities.AccountType]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[entities.AccountType]int), args.Error(1)
}

func (m *MockRepository) ListOpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*entities.ProblemReport), args.Error(1)
}

func TestSalesReport(t *testing.T) {
	// Setup
	ctx := context.Background()
	mockRepo := new(MockRepository)

	mockRepo.On("ListUserIDs", ctx).Return([]int64{1, 2, 3}, nil)
	mockRepo.On("SalesByType", ctx).Return([]entities.TypeSales{
		{Type: entities.AccountTypeTG1, Count: 4, Revenue: decimal.NewFromInt(40)},
		{Type: entities.AccountTypeTG2, Count: 1, Revenue: decimal.NewFromInt(90)},
		{Type: entities.AccountTypeWhatsApp, Count: 2, Revenue: decimal.NewFromInt(40)},
	}, nil)
	mockRepo.On("CountAvailableByType", ctx).Return(map[entities.AccountType]int{entities.AccountTypeTG1: 5}, nil)
	mockRepo.On("ListOpenProblems", ctx, 0).Return([]*entities.ProblemReport{{ID: 1}}, nil)

	service := NewService(mockRepo)

	// Execute
	report, err := service.SalesReport(ctx)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 3, report.Users)
	assert.Equal(t, 1, report.OpenProblems)
	assert.Equal(t, 5, report.Stock[entities.AccountTypeTG1])
	assert.Equal(t, 7, report.TotalSold())
	assert.True(t, report.TotalRevenue().Equal(decimal.NewFromInt(170)))

	// Highest revenue first, ties by type
	assert.Equal(t, entities.AccountTypeTG2, report.Sales[0].Type)
	assert.Equal(t, entities.AccountTypeTG1, report.Sales[1].Type)
	assert.Equal(t, entities.AccountTypeWhatsApp, report.Sales[2].Type)
	assert.False(t, report.GeneratedAt.IsZero())

	mockRepo.AssertExpectations(t)
}

func TestSalesReportError(t *testing.T) {
	// Setup
	ctx := context.Background()
	mockRepo := new(MockRepository)
	expected := errors.New("database is locked")

	mockRepo.On("ListUserIDs", ctx).Return([]int64{}, nil)
	mockRepo.On("SalesByType", ctx).Return([]entities.TypeSales(nil), expected)

	service := NewService(mockRepo)

	// Execute
	report, err := service.SalesReport(ctx)

	// Assert
	assert.ErrorIs(t, err, expected)
	assert.Nil(t, report)
	mockRepo.AssertNotCalled(t, "CountAvailableByType", ctx)
}

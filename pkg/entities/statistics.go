package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesReport represents aggregated marketplace figures for admins
type SalesReport struct {
	Users        int
	Sales        []TypeSales
	Stock        map[AccountType]int
	OpenProblems int
	GeneratedAt  time.Time
}

// TotalRevenue sums revenue across every type
func (r *SalesReport) TotalRevenue() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Sales {
		total = total.Add(s.Revenue)
	}
	return total
}

// TotalSold counts sold units across every type
func (r *SalesReport) TotalSold() int {
	count := 0
	for _, s := range r.Sales {
		count += s.Count
	}
	return count
}

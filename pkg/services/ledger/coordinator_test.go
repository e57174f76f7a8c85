package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fadedpez/numberledger/internal/types"
	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/metrics"
	ledgerRepo "github.com/fadedpez/numberledger/pkg/repositories/ledger"
	"github.com/fadedpez/numberledger/pkg/services/inventory"
	"github.com/fadedpez/numberledger/pkg/services/review"
	"github.com/fadedpez/numberledger/pkg/services/wallet"
)

type CoordinatorTestSuite struct {
	suite.Suite
	newRepo     func() ledgerRepo.Repository
	repo        ledgerRepo.Repository
	metrics     *metrics.Ledger
	coordinator *Coordinator
	inventory   *inventory.Service
	ctx         context.Context
}

func TestCoordinatorMemorySuite(t *testing.T) {
	suite.Run(t, &CoordinatorTestSuite{
		newRepo: func() ledgerRepo.Repository { return ledgerRepo.NewMemoryRepository() },
	})
}

func TestCoordinatorSQLiteSuite(t *testing.T) {
	s := &CoordinatorTestSuite{}
	s.newRepo = func() ledgerRepo.Repository {
		repo, err := ledgerRepo.NewSQLiteRepository(context.Background(), filepath.Join(s.T().TempDir(), "ledger.db"), zerolog.Nop())
		s.Require().NoError(err)
		return repo
	}
	suite.Run(t, s)
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.newRepo()
	s.metrics = metrics.New(prometheus.NewRegistry())

	rules := wallet.DefaultRules()
	s.coordinator = NewCoordinator(s.repo, wallet.NewAllocator(rules), zerolog.Nop(), s.metrics)
	s.inventory = inventory.NewService(s.repo, rules, zerolog.Nop())
}

func (s *CoordinatorTestSuite) TearDownTest() {
	s.NoError(s.repo.Close())
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (s *CoordinatorTestSuite) fund(userID int64, name entities.WalletName, v int64) {
	_, err := s.repo.AdjustWallet(s.ctx, userID, name, amount(v))
	s.Require().NoError(err)
}

func (s *CoordinatorTestSuite) stock(accountType entities.AccountType, number, country string, price int64) int64 {
	id, err := s.inventory.AddUnit(s.ctx, 1, accountType, number, country, amount(price))
	s.Require().NoError(err)
	return id
}

func (s *CoordinatorTestSuite) balance(userID int64, name entities.WalletName) decimal.Decimal {
	wallets, err := s.repo.GetWallets(s.ctx, userID)
	s.Require().NoError(err)
	return wallets.Balance(name)
}

func (s *CoordinatorTestSuite) unitStatus(id int64) entities.UnitStatus {
	unit, err := s.repo.GetUnit(s.ctx, id)
	s.Require().NoError(err)
	return unit.Status
}

func (s *CoordinatorTestSuite) TestPurchaseScenario() {
	const user = int64(100)
	s.fund(user, entities.Wallet1, 500)
	s.stock(entities.AccountTypeTG1, "+0", "usa", 1)
	s.stock(entities.AccountTypeTG1, "+1", "usa", 1)
	unitID := s.stock(entities.AccountTypeWhatsApp, "+15550003", "usa", 200)
	s.Require().Equal(int64(3), unitID)

	result, err := s.coordinator.Purchase(s.ctx, user, unitID)
	s.Require().NoError(err)
	s.Equal(entities.Wallet1, result.Wallet)
	s.True(result.BalanceAfter.Equal(amount(300)))
	s.Equal("+15550003", result.Unit.Number)
	s.Equal(entities.UnitSold, result.Unit.Status)

	s.True(s.balance(user, entities.Wallet1).Equal(amount(300)))
	s.Equal(entities.UnitSold, s.unitStatus(unitID))

	history, err := s.repo.PurchaseHistory(s.ctx, user, 10)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.True(history[0].Price.Equal(amount(200)))
	s.Equal(result.PurchaseID, history[0].ID)
	s.Equal(entities.PurchasePendingOTP, history[0].Status)

	_, err = s.coordinator.Purchase(s.ctx, user, unitID)
	s.True(types.IsLedgerError(err, types.ErrNotAvailable))
	s.True(s.balance(user, entities.Wallet1).Equal(amount(300)))

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Purchases.WithLabelValues("whatsapp", "ok")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Purchases.WithLabelValues("whatsapp", "not_available")))
}

func (s *CoordinatorTestSuite) TestPurchaseJournals() {
	s.fund(1, entities.Wallet2, 50)
	unitID := s.stock(entities.AccountTypeTG1, "+1", "usa", 20)

	result, err := s.coordinator.Purchase(s.ctx, 1, unitID)
	s.Require().NoError(err)

	entries, err := s.repo.UnexportedJournal(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(entities.JournalTypePurchase, entries[0].Type)
	s.Equal(result.PurchaseID, entries[0].ReferenceID)
	s.True(entries[0].Amount.Equal(amount(-20)))
	s.True(entries[0].BalanceAfter.Equal(amount(30)))
}

func (s *CoordinatorTestSuite) TestPurchaseUnknownUnit() {
	s.fund(1, entities.Wallet2, 50)

	_, err := s.coordinator.Purchase(s.ctx, 1, 12345)
	s.True(types.IsLedgerError(err, types.ErrNotAvailable))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Purchases.WithLabelValues("unknown", "not_available")))
}

func (s *CoordinatorTestSuite) TestWalletEligibility() {
	const user = int64(7)
	s.fund(user, entities.Wallet2, 100)
	typeA := s.stock(entities.AccountTypeTG1, "+a", "usa", 90)
	typeB := s.stock(entities.AccountTypeTG2, "+b", "usa", 90)

	result, err := s.coordinator.Purchase(s.ctx, user, typeA)
	s.Require().NoError(err)
	s.Equal(entities.Wallet2, result.Wallet)

	s.fund(user, entities.Wallet2, 90)
	_, err = s.coordinator.Purchase(s.ctx, user, typeB)

	var funds *types.InsufficientFundsError
	s.Require().True(errors.As(err, &funds))
	s.True(funds.Price.Equal(amount(90)))
	s.True(funds.Balances[string(entities.Wallet1)].IsZero())
}

func (s *CoordinatorTestSuite) TestInsufficientFundsLeavesStateUntouched() {
	const user = int64(8)
	s.fund(user, entities.Wallet1, 40)
	s.fund(user, entities.Wallet2, 45)
	unitID := s.stock(entities.AccountTypeWhatsApp, "+w", "india", 50)

	_, err := s.coordinator.Purchase(s.ctx, user, unitID)
	s.True(types.IsLedgerError(err, types.ErrInsufficientFunds))

	s.True(s.balance(user, entities.Wallet1).Equal(amount(40)))
	s.True(s.balance(user, entities.Wallet2).Equal(amount(45)))
	s.Equal(entities.UnitAvailable, s.unitStatus(unitID))

	history, err := s.repo.PurchaseHistory(s.ctx, user, 10)
	s.Require().NoError(err)
	s.Empty(history)

	entries, err := s.repo.UnexportedJournal(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *CoordinatorTestSuite) TestAtMostOneSaleUnderConcurrentBuyers() {
	unitID := s.stock(entities.AccountTypeTG1, "+race", "usa", 10)

	const buyers = 12
	for user := int64(1); user <= buyers; user++ {
		s.fund(user, entities.Wallet2, 10)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []int64
	losses := 0

	for user := int64(1); user <= buyers; user++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := s.coordinator.Purchase(s.ctx, user, unitID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, user)
			case types.IsLedgerError(err, types.ErrNotAvailable):
				losses++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}(user)
	}
	wg.Wait()

	s.Require().Len(winners, 1)
	s.Equal(buyers-1, losses)

	for user := int64(1); user <= buyers; user++ {
		expected := amount(10)
		if user == winners[0] {
			expected = decimal.Zero
		}
		s.True(s.balance(user, entities.Wallet2).Equal(expected), "user %d balance", user)
	}

	history, err := s.repo.PurchaseHistory(s.ctx, winners[0], 10)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *CoordinatorTestSuite) TestConcurrentPurchasesNeverOverdraw() {
	// One user, enough for two of five units
	const user = int64(9)
	s.fund(user, entities.Wallet2, 20)

	var units []int64
	for i := 0; i < 5; i++ {
		units = append(units, s.stock(entities.AccountTypeTG1, "+n"+string(rune('a'+i)), "usa", 10))
	}

	var wg sync.WaitGroup
	for _, unitID := range units {
		wg.Add(1)
		go func(unitID int64) {
			defer wg.Done()
			_, _ = s.coordinator.Purchase(s.ctx, user, unitID)
		}(unitID)
	}
	wg.Wait()

	s.True(s.balance(user, entities.Wallet2).IsZero())

	history, err := s.repo.PurchaseHistory(s.ctx, user, 10)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *CoordinatorTestSuite) TestFIFOFairness() {
	s.fund(1, entities.Wallet1, 100)
	for i := 0; i < 4; i++ {
		s.stock(entities.AccountTypeTG2, "+filler", "peru", 1)
	}
	five := s.stock(entities.AccountTypeTG2, "+5", "chile", 10)
	s.stock(entities.AccountTypeTG2, "+6", "peru", 1)
	seven := s.stock(entities.AccountTypeTG2, "+7", "chile", 5)
	s.Require().Equal(int64(5), five)
	s.Require().Equal(int64(7), seven)

	unit, err := s.inventory.Select(s.ctx, entities.AccountTypeTG2, "chile")
	s.Require().NoError(err)
	s.Equal(five, unit.ID)

	_, err = s.coordinator.Purchase(s.ctx, 1, unit.ID)
	s.Require().NoError(err)

	unit, err = s.inventory.Select(s.ctx, entities.AccountTypeTG2, "chile")
	s.Require().NoError(err)
	s.Equal(seven, unit.ID)
}

func (s *CoordinatorTestSuite) TestDepositScenario() {
	const user = int64(42)
	var req *entities.DepositRequest
	var err error
	for i := 0; i < 9; i++ {
		req, err = s.coordinator.SubmitDeposit(s.ctx, user, entities.Wallet1, "", "proof")
		s.Require().NoError(err)
	}
	s.Require().Equal(int64(9), req.ID)
	s.Equal(entities.DefaultDepositDetails, req.Details)

	ok, err := s.coordinator.ApproveOrDeny(s.ctx, 9, 1, review.Approve)
	s.Require().NoError(err)
	s.True(ok)

	stored, err := s.coordinator.GetDeposit(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(entities.DepositApproved, stored.Status)

	result, err := s.coordinator.DepositCredit(s.ctx, 9, 1, amount(150))
	s.Require().NoError(err)
	s.False(result.AlreadyCredited)
	s.Equal(user, result.UserID)
	s.Equal(entities.Wallet1, result.Wallet)
	s.True(s.balance(user, entities.Wallet1).Equal(amount(150)))

	stored, err = s.coordinator.GetDeposit(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(entities.DepositCredited, stored.Status)

	result, err = s.coordinator.DepositCredit(s.ctx, 9, 1, amount(150))
	s.Require().NoError(err)
	s.True(result.AlreadyCredited)
	s.True(s.balance(user, entities.Wallet1).Equal(amount(150)))

	s.Equal(1.0, testutil.ToFloat64(s.metrics.DepositCredits.WithLabelValues("already_credited")))
}

func (s *CoordinatorTestSuite) TestIdempotentCreditUnderConcurrency() {
	req, err := s.coordinator.SubmitDeposit(s.ctx, 5, entities.Wallet2, "tx 123", "")
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	credited := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.coordinator.DepositCredit(s.ctx, req.ID, 1, amount(75))
			s.NoError(err)
			if err == nil && !result.AlreadyCredited {
				mu.Lock()
				credited++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, credited)
	s.True(s.balance(5, entities.Wallet2).Equal(amount(75)))
}

func (s *CoordinatorTestSuite) TestCreditAllowedAfterDeny() {
	req, err := s.coordinator.SubmitDeposit(s.ctx, 5, entities.Wallet1, "late proof", "")
	s.Require().NoError(err)

	ok, err := s.coordinator.ApproveOrDeny(s.ctx, req.ID, 1, review.Deny)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.coordinator.ApproveOrDeny(s.ctx, req.ID, 1, review.Approve)
	s.Require().NoError(err)
	s.False(ok, "decisions apply only to pending requests")

	result, err := s.coordinator.DepositCredit(s.ctx, req.ID, 1, amount(10))
	s.Require().NoError(err)
	s.False(result.AlreadyCredited)
}

func (s *CoordinatorTestSuite) TestDepositValidation() {
	_, err := s.coordinator.SubmitDeposit(s.ctx, 5, "wallet_9", "", "")
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))

	_, err = s.coordinator.DepositCredit(s.ctx, 1, 1, decimal.Zero)
	s.True(types.IsLedgerError(err, types.ErrInvalidAmount))

	req, err := s.coordinator.SubmitDeposit(s.ctx, 5, entities.Wallet1, "refund?", "")
	s.Require().NoError(err)
	_, err = s.coordinator.DepositCredit(s.ctx, req.ID, 1, amount(-10))
	s.True(types.IsLedgerError(err, types.ErrInvalidAmount))
	s.True(s.balance(5, entities.Wallet1).IsZero())

	pending, err := s.coordinator.GetDeposit(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(entities.DepositPending, pending.Status)

	_, err = s.coordinator.DepositCredit(s.ctx, 404, 1, amount(5))
	s.True(types.IsLedgerError(err, types.ErrNotFound))

	ok, err := s.coordinator.ApproveOrDeny(s.ctx, 404, 1, review.Approve)
	s.Require().NoError(err)
	s.False(ok)

	_, err = s.coordinator.ApproveOrDeny(s.ctx, 404, 1, review.Decision("maybe"))
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))
}

func (s *CoordinatorTestSuite) TestOtpDelivery() {
	s.fund(1, entities.Wallet2, 10)
	unitID := s.stock(entities.AccountTypeTG1, "+otp", "usa", 5)
	_, err := s.coordinator.Purchase(s.ctx, 1, unitID)
	s.Require().NoError(err)

	purchase, err := s.coordinator.OtpDelivery(s.ctx, " +otp ", "4321")
	s.Require().NoError(err)
	s.Equal(int64(1), purchase.UserID)
	s.Equal("4321", purchase.OTP)
	s.Equal(entities.PurchaseOTPSent, purchase.Status)

	purchase, err = s.coordinator.OtpDelivery(s.ctx, "+otp", "8765")
	s.Require().NoError(err)
	s.Equal("8765", purchase.OTP)

	_, err = s.coordinator.OtpDelivery(s.ctx, "+none", "1")
	s.True(types.IsLedgerError(err, types.ErrNoPurchaseFound))

	_, err = s.coordinator.OtpDelivery(s.ctx, "+otp", "")
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))
}

func (s *CoordinatorTestSuite) TestProblems() {
	report, err := s.coordinator.ReportProblem(s.ctx, 3, "  otp never came ")
	s.Require().NoError(err)
	s.Equal("otp never came", report.Message)

	_, err = s.coordinator.ReportProblem(s.ctx, 3, " ")
	s.True(types.IsLedgerError(err, types.ErrInvalidArgument))

	open, err := s.coordinator.OpenProblems(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(open, 1)

	closed, err := s.coordinator.CloseProblem(s.ctx, report.ID)
	s.Require().NoError(err)
	s.True(closed)

	closed, err = s.coordinator.CloseProblem(s.ctx, report.ID)
	s.Require().NoError(err)
	s.False(closed)
}

func (s *CoordinatorTestSuite) TestProfile() {
	s.fund(1, entities.Wallet2, 1000)
	for i := 0; i < ProfileHistoryLimit+2; i++ {
		unitID := s.stock(entities.AccountTypeTG1, "+p", "usa", 1)
		_, err := s.coordinator.Purchase(s.ctx, 1, unitID)
		s.Require().NoError(err)
	}

	profile, err := s.coordinator.Profile(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(profile.Purchases, ProfileHistoryLimit)
	s.True(profile.Wallets.Balance(entities.Wallet1).IsZero())
	s.Contains(profile.Wallets, entities.Wallet1)
	s.True(profile.Wallets.Balance(entities.Wallet2).Equal(amount(1000 - ProfileHistoryLimit - 2)))
	s.Greater(profile.Purchases[0].ID, profile.Purchases[1].ID)
}

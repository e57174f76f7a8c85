package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/services/review"
)

// MemoryRepository implements Repository using in-memory storage. RunInTx holds
// the write lock for the whole callback and restores a snapshot on error.
type MemoryRepository struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewMemoryRepository creates a new in-memory ledger repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemoryState(func() time.Time { return time.Now().UTC() })}
}

// NewMemoryRepositoryWithClock creates an in-memory repository with a fixed time source
func NewMemoryRepositoryWithClock(now func() time.Time) *MemoryRepository {
	return &MemoryRepository{state: newMemoryState(now)}
}

// RunInTx runs fn against the live state under the write lock
func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.state.clone()
	if err := fn(r.state); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

// UpsertUser inserts a user or refreshes its display metadata
func (r *MemoryRepository) UpsertUser(ctx context.Context, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.state.now()
	if existing, ok := r.state.users[user.ID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.UpdatedAt = now
		return nil
	}

	r.state.users[user.ID] = &entities.User{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// ListUserIDs returns every known user id in ascending order
func (r *MemoryRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.state.users))
	for id := range r.state.users {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids, nil
}

// GetWallets reads a user's balances without creating rows
func (r *MemoryRepository) GetWallets(ctx context.Context, userID int64) (entities.Wallets, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetWallets(ctx, userID)
}

// AdjustWallet applies a signed delta
func (r *MemoryRepository) AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.AdjustWallet(ctx, userID, wallet, delta)
}

// SetWallet overwrites a balance and returns the previous one
func (r *MemoryRepository) SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.SetWallet(ctx, userID, wallet, amount)
}

// ListAvailableByTypeGroupedByCountry summarizes available stock of a type
func (r *MemoryRepository) ListAvailableByTypeGroupedByCountry(ctx context.Context, accountType entities.AccountType) ([]entities.CountryStock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCountry := make(map[string]*entities.CountryStock)
	for _, unit := range r.state.units {
		if unit.Type != accountType || unit.Status != entities.UnitAvailable {
			continue
		}
		stock, ok := byCountry[unit.Country]
		if !ok {
			stock = &entities.CountryStock{Country: unit.Country, MinPrice: unit.Price}
			byCountry[unit.Country] = stock
		}
		stock.Count++
		if unit.Price.LessThan(stock.MinPrice) {
			stock.MinPrice = unit.Price
		}
	}

	out := make([]entities.CountryStock, 0, len(byCountry))
	for _, stock := range byCountry {
		out = append(out, *stock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out, nil
}

// CountAvailableByType counts available units per type
func (r *MemoryRepository) CountAvailableByType(ctx context.Context) (map[entities.AccountType]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[entities.AccountType]int)
	for _, unit := range r.state.units {
		if unit.Status == entities.UnitAvailable {
			counts[unit.Type]++
		}
	}
	return counts, nil
}

// FirstAvailable returns the lowest-id available unit for a type and country
func (r *MemoryRepository) FirstAvailable(ctx context.Context, accountType entities.AccountType, country string) (*entities.InventoryUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entities.InventoryUnit
	for _, unit := range r.state.units {
		if unit.Type != accountType || unit.Country != country || unit.Status != entities.UnitAvailable {
			continue
		}
		if best == nil || unit.ID < best.ID {
			best = unit
		}
	}
	if best == nil {
		return nil, nil
	}

	unitCopy := *best
	return &unitCopy, nil
}

// GetUnit retrieves a unit by id
func (r *MemoryRepository) GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.GetUnit(ctx, id)
}

// AddUnit stores a new available unit
func (r *MemoryRepository) AddUnit(ctx context.Context, unit *entities.InventoryUnit) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.unitSeq++
	unitCopy := *unit
	unitCopy.ID = r.state.unitSeq
	unitCopy.Status = entities.UnitAvailable
	if unitCopy.CreatedAt.IsZero() {
		unitCopy.CreatedAt = r.state.now()
	}
	r.state.units[unitCopy.ID] = &unitCopy
	return unitCopy.ID, nil
}

// MarkSold flips an available unit to sold
func (r *MemoryRepository) MarkSold(ctx context.Context, unitID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.MarkSold(ctx, unitID)
}

// InsertPurchase stores a purchase
func (r *MemoryRepository) InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.InsertPurchase(ctx, purchase)
}

// PurchaseHistory returns a user's latest purchases, newest first
func (r *MemoryRepository) PurchaseHistory(ctx context.Context, userID int64, limit int) ([]*entities.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.Purchase
	for _, id := range r.state.purchaseIDsDesc() {
		p := r.state.purchases[id]
		if p.UserID != userID {
			continue
		}
		purchaseCopy := *p
		out = append(out, &purchaseCopy)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// SetOTPForLatestPurchase stores an otp on the newest purchase of a number
func (r *MemoryRepository) SetOTPForLatestPurchase(ctx context.Context, number, otp string) (*entities.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.state.purchaseIDsDesc() {
		p := r.state.purchases[id]
		if p.Number != number {
			continue
		}
		if err := review.PurchaseTransition(p.Status, entities.PurchaseOTPSent); err != nil {
			return nil, err
		}
		p.OTP = otp
		p.Status = entities.PurchaseOTPSent
		purchaseCopy := *p
		return &purchaseCopy, nil
	}
	return nil, nil
}

// SalesByType aggregates purchases per type
func (r *MemoryRepository) SalesByType(ctx context.Context) ([]entities.TypeSales, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byType := make(map[entities.AccountType]*entities.TypeSales)
	for _, p := range r.state.purchases {
		sales, ok := byType[p.Type]
		if !ok {
			sales = &entities.TypeSales{Type: p.Type, Revenue: decimal.Zero}
			byType[p.Type] = sales
		}
		sales.Count++
		sales.Revenue = sales.Revenue.Add(p.Price)
	}

	out := make([]entities.TypeSales, 0, len(byType))
	for _, sales := range byType {
		out = append(out, *sales)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// InsertDepositRequest stores a pending deposit request
func (r *MemoryRepository) InsertDepositRequest(ctx context.Context, req *entities.DepositRequest) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.depositSeq++
	reqCopy := *req
	reqCopy.ID = r.state.depositSeq
	reqCopy.Status = entities.DepositPending
	if reqCopy.CreatedAt.IsZero() {
		reqCopy.CreatedAt = r.state.now()
	}
	r.state.deposits[reqCopy.ID] = &reqCopy
	return reqCopy.ID, nil
}

// GetDepositRequest retrieves a deposit request
func (r *MemoryRepository) GetDepositRequest(ctx context.Context, id int64) (*entities.DepositRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.state.deposits[id]
	if !ok {
		return nil, notFound("deposit request", id)
	}
	reqCopy := *req
	return &reqCopy, nil
}

// TransitionDepositStatus moves a request from one status to another
func (r *MemoryRepository) TransitionDepositStatus(ctx context.Context, id int64, from, to entities.DepositStatus, reviewerID int64) (bool, error) {
	if err := review.DepositTransition(from, to); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.state.deposits[id]
	if !ok || req.Status != from {
		return false, nil
	}

	reviewedAt := r.state.now()
	req.Status = to
	req.ReviewedBy = reviewerID
	req.ReviewedAt = &reviewedAt
	return true, nil
}

// CreditDepositIfNotAlready credits a request's wallet exactly once
func (r *MemoryRepository) CreditDepositIfNotAlready(ctx context.Context, id, reviewerID int64, amount decimal.Decimal) (*entities.CreditOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.state.deposits[id]
	if !ok {
		return nil, notFound("deposit request", id)
	}

	outcome := &entities.CreditOutcome{UserID: req.UserID, Wallet: req.Wallet, Amount: amount}
	if review.IsTerminal(req.Status) {
		outcome.AlreadyCredited = true
		outcome.Amount = req.CreditedAmount.Decimal
		outcome.BalanceAfter = r.state.wallets[req.UserID].Balance(req.Wallet)
		return outcome, nil
	}
	if err := review.DepositTransition(req.Status, entities.DepositCredited); err != nil {
		return nil, err
	}

	balance, err := r.state.AdjustWallet(ctx, req.UserID, req.Wallet, amount)
	if err != nil {
		return nil, err
	}

	now := r.state.now()
	req.Status = entities.DepositCredited
	req.ReviewedBy = reviewerID
	req.CreditedAmount = decimal.NewNullDecimal(amount)
	req.ReviewedAt = &now

	if err := r.state.AppendJournal(ctx, depositJournalEntry(req, amount, balance, now)); err != nil {
		return nil, err
	}

	outcome.BalanceAfter = balance
	return outcome, nil
}

// InsertProblem stores an open problem report
func (r *MemoryRepository) InsertProblem(ctx context.Context, report *entities.ProblemReport) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.problemSeq++
	reportCopy := *report
	reportCopy.ID = r.state.problemSeq
	reportCopy.Status = entities.ProblemOpen
	if reportCopy.CreatedAt.IsZero() {
		reportCopy.CreatedAt = r.state.now()
	}
	r.state.problems[reportCopy.ID] = &reportCopy
	return reportCopy.ID, nil
}

// CloseProblem closes an open report
func (r *MemoryRepository) CloseProblem(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.state.problems[id]
	if !ok || report.Status != entities.ProblemOpen {
		return false, nil
	}
	report.Status = entities.ProblemClosed
	return true, nil
}

// ListOpenProblems returns open reports, oldest first
func (r *MemoryRepository) ListOpenProblems(ctx context.Context, limit int) ([]*entities.ProblemReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.state.problems))
	for id, report := range r.state.problems {
		if report.Status == entities.ProblemOpen {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)

	var out []*entities.ProblemReport
	for _, id := range ids {
		reportCopy := *r.state.problems[id]
		out = append(out, &reportCopy)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// AppendJournal records a balance movement
func (r *MemoryRepository) AppendJournal(ctx context.Context, entry *entities.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.AppendJournal(ctx, entry)
}

// UnexportedJournal returns entries not yet archived, oldest first
func (r *MemoryRepository) UnexportedJournal(ctx context.Context, limit int) ([]*entities.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entities.JournalEntry
	for _, entry := range r.state.journal {
		if entry.Exported {
			continue
		}
		entryCopy := *entry
		out = append(out, &entryCopy)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkJournalExported flags entries as archived
func (r *MemoryRepository) MarkJournalExported(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	for _, entry := range r.state.journal {
		if wanted[entry.ID] {
			entry.Exported = true
		}
	}
	return nil
}

// Close is a no-op for the memory repository
func (r *MemoryRepository) Close() error {
	return nil
}

// memoryState holds the data behind MemoryRepository. Its methods implement Tx
// and assume the caller holds the repository lock.
type memoryState struct {
	now func() time.Time

	users       map[int64]*entities.User
	wallets     map[int64]entities.Wallets
	units       map[int64]*entities.InventoryUnit
	unitSeq     int64
	purchases   map[int64]*entities.Purchase
	purchaseSeq int64
	deposits    map[int64]*entities.DepositRequest
	depositSeq  int64
	problems    map[int64]*entities.ProblemReport
	problemSeq  int64
	journal     []*entities.JournalEntry
}

func newMemoryState(now func() time.Time) *memoryState {
	return &memoryState{
		now:       now,
		users:     make(map[int64]*entities.User),
		wallets:   make(map[int64]entities.Wallets),
		units:     make(map[int64]*entities.InventoryUnit),
		purchases: make(map[int64]*entities.Purchase),
		deposits:  make(map[int64]*entities.DepositRequest),
		problems:  make(map[int64]*entities.ProblemReport),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState(s.now)
	c.unitSeq, c.purchaseSeq, c.depositSeq, c.problemSeq = s.unitSeq, s.purchaseSeq, s.depositSeq, s.problemSeq

	for id, u := range s.users {
		userCopy := *u
		c.users[id] = &userCopy
	}
	for id, w := range s.wallets {
		c.wallets[id] = w.Clone()
	}
	for id, u := range s.units {
		unitCopy := *u
		c.units[id] = &unitCopy
	}
	for id, p := range s.purchases {
		purchaseCopy := *p
		c.purchases[id] = &purchaseCopy
	}
	for id, d := range s.deposits {
		depositCopy := *d
		c.deposits[id] = &depositCopy
	}
	for id, p := range s.problems {
		problemCopy := *p
		c.problems[id] = &problemCopy
	}
	c.journal = make([]*entities.JournalEntry, len(s.journal))
	for i, e := range s.journal {
		entryCopy := *e
		c.journal[i] = &entryCopy
	}
	return c
}

func (s *memoryState) GetUnit(ctx context.Context, id int64) (*entities.InventoryUnit, error) {
	unit, ok := s.units[id]
	if !ok {
		return nil, notFound("inventory unit", id)
	}
	unitCopy := *unit
	return &unitCopy, nil
}

func (s *memoryState) GetWallets(ctx context.Context, userID int64) (entities.Wallets, error) {
	return s.wallets[userID].Clone(), nil
}

func (s *memoryState) ensureUser(userID int64) {
	if _, ok := s.users[userID]; ok {
		return
	}
	now := s.now()
	s.users[userID] = &entities.User{ID: userID, CreatedAt: now, UpdatedAt: now}
}

func (s *memoryState) AdjustWallet(ctx context.Context, userID int64, wallet entities.WalletName, delta decimal.Decimal) (decimal.Decimal, error) {
	s.ensureUser(userID)
	if s.wallets[userID] == nil {
		s.wallets[userID] = make(entities.Wallets)
	}
	balance := s.wallets[userID].Balance(wallet).Add(delta)
	s.wallets[userID][wallet] = balance
	return balance, nil
}

func (s *memoryState) SetWallet(ctx context.Context, userID int64, wallet entities.WalletName, amount decimal.Decimal) (decimal.Decimal, error) {
	s.ensureUser(userID)
	if s.wallets[userID] == nil {
		s.wallets[userID] = make(entities.Wallets)
	}
	previous := s.wallets[userID].Balance(wallet)
	s.wallets[userID][wallet] = amount
	return previous, nil
}

func (s *memoryState) MarkSold(ctx context.Context, unitID int64) (bool, error) {
	unit, ok := s.units[unitID]
	if !ok || unit.Status != entities.UnitAvailable {
		return false, nil
	}
	unit.Status = entities.UnitSold
	return true, nil
}

func (s *memoryState) InsertPurchase(ctx context.Context, purchase *entities.Purchase) (int64, error) {
	for _, existing := range s.purchases {
		if existing.UnitID == purchase.UnitID {
			return 0, storageErr("insert purchase", fmt.Errorf("unit %d already has a purchase", purchase.UnitID))
		}
	}

	s.purchaseSeq++
	purchaseCopy := *purchase
	purchaseCopy.ID = s.purchaseSeq
	if purchaseCopy.Status == "" {
		purchaseCopy.Status = entities.PurchasePendingOTP
	}
	if purchaseCopy.CreatedAt.IsZero() {
		purchaseCopy.CreatedAt = s.now()
	}
	s.purchases[purchaseCopy.ID] = &purchaseCopy
	return purchaseCopy.ID, nil
}

func (s *memoryState) AppendJournal(ctx context.Context, entry *entities.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	entryCopy := *entry
	s.journal = append(s.journal, &entryCopy)
	return nil
}

func (s *memoryState) purchaseIDsDesc() []int64 {
	ids := make([]int64, 0, len(s.purchases))
	for id := range s.purchases {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// depositJournalEntry describes a deposit credit
func depositJournalEntry(req *entities.DepositRequest, amount, balance decimal.Decimal, at time.Time) *entities.JournalEntry {
	return &entities.JournalEntry{
		UserID:       req.UserID,
		Wallet:       req.Wallet,
		Amount:       amount,
		Type:         entities.JournalTypeDepositCredit,
		ReferenceID:  req.ID,
		Description:  fmt.Sprintf("deposit request #%d", req.ID),
		BalanceAfter: balance,
		Timestamp:    at,
	}
}

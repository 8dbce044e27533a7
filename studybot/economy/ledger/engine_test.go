package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mdcstudy/studybot/studybot/database/models"
)

// fakeStore is an in-memory Store with real transaction semantics:
// every RunInTx works on a staged copy and commits only on success, and
// a global lock serializes transactions the way row locks would.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]*models.Account
	checkins  map[string]*models.CheckinRecord
	funds     map[string]*models.Fund
	entries   []*models.LedgerEntry
	donations []*models.FundDonation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[string]*models.Account),
		checkins: make(map[string]*models.CheckinRecord),
		funds:    make(map[string]*models.Fund),
	}
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &fakeTx{
		accounts:  make(map[string]*models.Account, len(s.accounts)),
		checkins:  make(map[string]*models.CheckinRecord, len(s.checkins)),
		funds:     make(map[string]*models.Fund, len(s.funds)),
		entries:   append([]*models.LedgerEntry(nil), s.entries...),
		donations: append([]*models.FundDonation(nil), s.donations...),
	}
	for id, a := range s.accounts {
		copied := *a
		staged.accounts[id] = &copied
	}
	for id, c := range s.checkins {
		copied := *c
		staged.checkins[id] = &copied
	}
	for name, f := range s.funds {
		copied := *f
		staged.funds[name] = &copied
	}

	if err := fn(ctx, staged); err != nil {
		return err
	}

	s.accounts = staged.accounts
	s.checkins = staged.checkins
	s.funds = staged.funds
	s.entries = staged.entries
	s.donations = staged.donations
	return nil
}

func (s *fakeStore) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *fakeStore) account(userID string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[userID]; ok {
		return *account
	}
	return models.Account{}
}

func (s *fakeStore) allEntries() []*models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LedgerEntry(nil), s.entries...)
}

func (s *fakeStore) addFund(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds[name] = &models.Fund{Name: name}
}

func (s *fakeStore) fund(name string) models.Fund {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.funds[name]; ok {
		return *f
	}
	return models.Fund{}
}

type fakeTx struct {
	accounts  map[string]*models.Account
	checkins  map[string]*models.CheckinRecord
	funds     map[string]*models.Fund
	entries   []*models.LedgerEntry
	donations []*models.FundDonation
}

func (t *fakeTx) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	account, ok := t.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (t *fakeTx) UpsertAccount(_ context.Context, userID string) (*models.Account, error) {
	if account, ok := t.accounts[userID]; ok {
		return account, nil
	}
	account := &models.Account{UserID: userID}
	t.accounts[userID] = account
	return account, nil
}

func (t *fakeTx) Debit(_ context.Context, userID string, currency Currency, amount int64) error {
	account, ok := t.accounts[userID]
	if !ok {
		return ErrInsufficientFunds
	}
	if currency == CurrencyVip {
		if account.BalanceVip < amount {
			return ErrInsufficientFunds
		}
		account.BalanceVip -= amount
		return nil
	}
	if account.Balance < amount {
		return ErrInsufficientFunds
	}
	account.Balance -= amount
	return nil
}

func (t *fakeTx) Credit(_ context.Context, userID string, currency Currency, amount int64) error {
	account, ok := t.accounts[userID]
	if !ok {
		account = &models.Account{UserID: userID}
		t.accounts[userID] = account
	}
	if currency == CurrencyVip {
		account.BalanceVip += amount
		account.TotalEarnedVip += amount
	} else {
		account.Balance += amount
		account.TotalEarned += amount
	}
	return nil
}

func (t *fakeTx) AppendEntry(_ context.Context, entry *models.LedgerEntry) error {
	t.entries = append(t.entries, entry)
	return nil
}

func (t *fakeTx) GetCheckin(_ context.Context, userID string) (*models.CheckinRecord, error) {
	record, ok := t.checkins[userID]
	if !ok {
		return nil, nil
	}
	return record, nil
}

func (t *fakeTx) UpsertCheckin(_ context.Context, record *models.CheckinRecord) error {
	t.checkins[record.UserID] = record
	return nil
}

func (t *fakeTx) GetFund(_ context.Context, name string) (*models.Fund, error) {
	fund, ok := t.funds[name]
	if !ok {
		return nil, ErrFundNotFound
	}
	return fund, nil
}

func (t *fakeTx) AddFundTotals(_ context.Context, name string, amount, amountVip int64) error {
	fund, ok := t.funds[name]
	if !ok {
		return ErrFundNotFound
	}
	fund.TotalDonated += amount
	fund.TotalDonatedVip += amountVip
	return nil
}

func (t *fakeTx) AppendDonation(_ context.Context, donation *models.FundDonation) error {
	t.donations = append(t.donations, donation)
	return nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreditEarning(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "u1", 5, CurrencyStandard, models.EntryVoiceEarn, "test"); err != nil {
		t.Fatalf("CreditEarning() error = %v", err)
	}

	account := store.account("u1")
	if account.Balance != 5 || account.TotalEarned != 5 {
		t.Errorf("account = {balance %d, earned %d}, want {5, 5}", account.Balance, account.TotalEarned)
	}

	entries := store.allEntries()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].FromUserID != "" {
		t.Errorf("system credit FromUserID = %q, want empty", entries[0].FromUserID)
	}
	if entries[0].Kind != models.EntryVoiceEarn {
		t.Errorf("entry kind = %q, want %q", entries[0].Kind, models.EntryVoiceEarn)
	}

	if err := engine.CreditEarning(ctx, "u1", 0, CurrencyStandard, models.EntryAdmin, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("CreditEarning(0) error = %v, want ErrInvalidAmount", err)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "sender", 10, CurrencyStandard, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	err := engine.Transfer(ctx, "sender", "receiver", 11, CurrencyStandard, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Transfer() error = %v, want ErrInsufficientFunds", err)
	}

	// Nothing committed: receiver was upserted in the failed tx only.
	if account := store.account("sender"); account.Balance != 10 {
		t.Errorf("sender balance = %d, want 10", account.Balance)
	}
	if _, err := store.GetAccount(ctx, "receiver"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("receiver account error = %v, want ErrAccountNotFound", err)
	}
	if entries := store.allEntries(); len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1 (seed only)", len(entries))
	}
}

// Two concurrent transfers must never both spend the same funds.
func TestTransferConcurrent(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "sender", 100, CurrencyStandard, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- engine.Transfer(ctx, "sender", "receiver", 60, CurrencyStandard, "")
		}()
	}

	failures := 0
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("Transfer() error = %v, want ErrInsufficientFunds", err)
			}
			failures++
		}
	}

	if failures != 1 {
		t.Errorf("failures = %d, want exactly 1", failures)
	}
	if account := store.account("sender"); account.Balance != 40 {
		t.Errorf("sender balance = %d, want 40", account.Balance)
	}
	if account := store.account("receiver"); account.Balance != 60 {
		t.Errorf("receiver balance = %d, want 60", account.Balance)
	}
}

func TestTransferVipUsesVipBalance(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "sender", 20, CurrencyVip, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	if err := engine.Transfer(ctx, "sender", "receiver", 15, CurrencyVip, "thanks"); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	if account := store.account("sender"); account.BalanceVip != 5 {
		t.Errorf("sender vip balance = %d, want 5", account.BalanceVip)
	}
	if account := store.account("receiver"); account.BalanceVip != 15 || account.TotalEarnedVip != 15 {
		t.Errorf("receiver vip = {balance %d, earned %d}, want {15, 15}", account.BalanceVip, account.TotalEarnedVip)
	}

	entries := store.allEntries()
	last := entries[len(entries)-1]
	if last.Kind != models.EntryVipTransfer {
		t.Errorf("entry kind = %q, want %q", last.Kind, models.EntryVipTransfer)
	}
	if last.Description != "Gift: thanks" {
		t.Errorf("entry description = %q, want %q", last.Description, "Gift: thanks")
	}
}

func TestDonateAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.addFund("servers")
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "donor", 100, CurrencyStandard, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	// VIP side fails, so the standard debit must roll back too.
	err := engine.Donate(ctx, "donor", "servers", 50, 30, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Donate() error = %v, want ErrInsufficientFunds", err)
	}

	if account := store.account("donor"); account.Balance != 100 {
		t.Errorf("donor balance = %d, want 100 after rollback", account.Balance)
	}
	if fund := store.fund("servers"); fund.TotalDonated != 0 || fund.TotalDonatedVip != 0 {
		t.Errorf("fund totals = {%d, %d}, want {0, 0}", fund.TotalDonated, fund.TotalDonatedVip)
	}
}

func TestDonate(t *testing.T) {
	store := newFakeStore()
	store.addFund("servers")
	engine := NewEngine(store, Config{DailyBaseReward: 1})
	ctx := context.Background()

	if err := engine.CreditEarning(ctx, "donor", 100, CurrencyStandard, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if err := engine.CreditEarning(ctx, "donor", 40, CurrencyVip, models.EntryAdmin, "seed"); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	if err := engine.Donate(ctx, "donor", "servers", 30, 20, "keep the lights on"); err != nil {
		t.Fatalf("Donate() error = %v", err)
	}

	account := store.account("donor")
	if account.Balance != 70 || account.BalanceVip != 20 {
		t.Errorf("donor balances = {%d, %d}, want {70, 20}", account.Balance, account.BalanceVip)
	}
	if fund := store.fund("servers"); fund.TotalDonated != 30 || fund.TotalDonatedVip != 20 {
		t.Errorf("fund totals = {%d, %d}, want {30, 20}", fund.TotalDonated, fund.TotalDonatedVip)
	}

	// One entry per currency donated.
	kinds := 0
	for _, entry := range store.allEntries() {
		if entry.Kind == models.EntryFundDonation {
			kinds++
		}
	}
	if kinds != 2 {
		t.Errorf("donation entries = %d, want 2", kinds)
	}

	if err := engine.Donate(ctx, "donor", "servers", 0, 0, ""); !errors.Is(err, ErrNothingToDonate) {
		t.Errorf("Donate(0, 0) error = %v, want ErrNothingToDonate", err)
	}
	if err := engine.Donate(ctx, "donor", "no-such-fund", 10, 0, ""); !errors.Is(err, ErrFundNotFound) {
		t.Errorf("Donate(unknown fund) error = %v, want ErrFundNotFound", err)
	}
}

func TestProcessDailyCheckin(t *testing.T) {
	store := newFakeStore()
	// 2024-01-02 is a Tuesday.
	now := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.UTC)
	engine := NewEngine(store, Config{DailyBaseReward: 1, Now: fixedNow(now)})
	ctx := context.Background()

	result, err := engine.ProcessDailyCheckin(ctx, "u1")
	if err != nil {
		t.Fatalf("ProcessDailyCheckin() error = %v", err)
	}
	if result.Streak != 1 || result.Reward != 1 || result.TotalCheckins != 1 {
		t.Errorf("result = %+v, want streak 1, reward 1, total 1", result)
	}

	if _, err := engine.ProcessDailyCheckin(ctx, "u1"); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second check-in error = %v, want ErrAlreadyCheckedIn", err)
	}

	// Next day the streak continues and the reward scales.
	engine = NewEngine(store, Config{DailyBaseReward: 1, Now: fixedNow(now.AddDate(0, 0, 1))})
	result, err = engine.ProcessDailyCheckin(ctx, "u1")
	if err != nil {
		t.Fatalf("ProcessDailyCheckin() error = %v", err)
	}
	if result.Streak != 2 || result.Reward != 2 || result.TotalCheckins != 2 {
		t.Errorf("result = %+v, want streak 2, reward 2, total 2", result)
	}

	if account := store.account("u1"); account.Balance != 3 {
		t.Errorf("balance = %d, want 3 (1+2)", account.Balance)
	}
}

// Concurrent check-ins for the same user must credit exactly once.
// The store serializes transactions per account, so the losers see the
// winner's committed date and hit the same-day guard.
func TestProcessDailyCheckinConcurrent(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2024, time.January, 2, 9, 30, 0, 0, time.UTC)
	engine := NewEngine(store, Config{DailyBaseReward: 1, Now: fixedNow(now)})
	ctx := context.Background()

	const attempts = 8
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := engine.ProcessDailyCheckin(ctx, "u1")
			results <- err
		}()
	}

	successes := 0
	for i := 0; i < attempts; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, ErrAlreadyCheckedIn) {
			t.Fatalf("ProcessDailyCheckin() error = %v, want ErrAlreadyCheckedIn", err)
		}
	}

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if account := store.account("u1"); account.Balance != 1 {
		t.Errorf("balance = %d, want 1", account.Balance)
	}
	if entries := store.allEntries(); len(entries) != 1 {
		t.Errorf("len(entries) = %d, want 1", len(entries))
	}
}

func TestProcessDailyCheckinWeeklyReset(t *testing.T) {
	store := newFakeStore()
	// 2024-01-07 is a Sunday.
	sunday := time.Date(2024, time.January, 7, 20, 0, 0, 0, time.UTC)
	engine := NewEngine(store, Config{DailyBaseReward: 1, Now: fixedNow(sunday)})
	ctx := context.Background()

	if _, err := engine.ProcessDailyCheckin(ctx, "u1"); err != nil {
		t.Fatalf("sunday check-in error = %v", err)
	}

	engine = NewEngine(store, Config{DailyBaseReward: 1, Now: fixedNow(sunday.AddDate(0, 0, 1))})
	result, err := engine.ProcessDailyCheckin(ctx, "u1")
	if err != nil {
		t.Fatalf("monday check-in error = %v", err)
	}
	if result.Streak != 1 {
		t.Errorf("monday streak = %d, want 1 (weekly reset)", result.Streak)
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(store, Config{DailyBaseReward: 1})

	if _, err := engine.GetBalance(context.Background(), "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("GetBalance() error = %v, want ErrAccountNotFound", err)
	}
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mdcstudy/studybot/studybot/database/models"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// DonorTotal is an aggregated per-donor view of a fund's donations.
type DonorTotal struct {
	DonorID         string    `bun:"donor_id"`
	TotalDonated    int64     `bun:"total_donated"`
	TotalDonatedVip int64     `bun:"total_donated_vip"`
	DonationCount   int       `bun:"donation_count"`
	LastDonation    time.Time `bun:"last_donation"`
}

// LedgerRepository implements ledger.Store on bun plus the read paths
// the command layer needs (leaderboards, fund listings, histories).
type LedgerRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewLedgerRepository(db *bun.DB) *LedgerRepository {
	return &LedgerRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

var _ ledger.Store = (*LedgerRepository)(nil)

// RunInTx exposes one atomic unit to the ledger engine. Concurrent
// operations on the same account serialize on the row lock the opening
// account upsert takes.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	return r.db.RunInTx(timeoutCtx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &ledgerTx{db: tx})
	})
}

func (r *LedgerRepository) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	return (&ledgerTx{db: r.db}).GetAccount(ctx, userID)
}

// ledgerTx implements ledger.Tx over any bun.IDB so the same code
// serves both transactional and direct reads.
type ledgerTx struct {
	db bun.IDB
}

func (t *ledgerTx) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	account := new(models.Account)
	err := t.db.NewSelect().
		Model(account).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (t *ledgerTx) UpsertAccount(ctx context.Context, userID string) (*models.Account, error) {
	now := time.Now()
	account := &models.Account{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The conflict branch must write so the upsert takes a row lock.
	// Every operation starts here, which serializes concurrent work on
	// the same account for the rest of the transaction - the check-in
	// same-day guard relies on that.
	_, err := t.db.NewInsert().
		Model(account).
		On("CONFLICT (user_id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return t.GetAccount(ctx, userID)
}

func (t *ledgerTx) Debit(ctx context.Context, userID string, currency ledger.Currency, amount int64) error {
	column := balanceColumn(currency)
	res, err := t.db.NewUpdate().
		Model((*models.Account)(nil)).
		Set(column+" = "+column+" - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where(column+" >= ?", amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the account is missing or the balance is short; both
		// read as insufficient funds to the caller.
		return ledger.ErrInsufficientFunds
	}
	return nil
}

func (t *ledgerTx) Credit(ctx context.Context, userID string, currency ledger.Currency, amount int64) error {
	column := balanceColumn(currency)
	earned := earnedColumn(currency)
	_, err := t.db.NewUpdate().
		Model((*models.Account)(nil)).
		Set(column+" = "+column+" + ?", amount).
		Set(earned+" = "+earned+" + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (t *ledgerTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := t.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (t *ledgerTx) GetCheckin(ctx context.Context, userID string) (*models.CheckinRecord, error) {
	record := new(models.CheckinRecord)
	err := t.db.NewSelect().
		Model(record).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (t *ledgerTx) UpsertCheckin(ctx context.Context, record *models.CheckinRecord) error {
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}
	_, err := t.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("last_checkin_date = EXCLUDED.last_checkin_date").
		Set("current_streak = EXCLUDED.current_streak").
		Set("total_checkins = EXCLUDED.total_checkins").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (t *ledgerTx) GetFund(ctx context.Context, name string) (*models.Fund, error) {
	fund := new(models.Fund)
	err := t.db.NewSelect().
		Model(fund).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrFundNotFound
		}
		return nil, err
	}
	return fund, nil
}

func (t *ledgerTx) AddFundTotals(ctx context.Context, name string, amount, amountVip int64) error {
	_, err := t.db.NewUpdate().
		Model((*models.Fund)(nil)).
		Set("total_donated = total_donated + ?", amount).
		Set("total_donated_vip = total_donated_vip + ?", amountVip).
		Where("name = ?", name).
		Exec(ctx)
	return err
}

func (t *ledgerTx) AppendDonation(ctx context.Context, donation *models.FundDonation) error {
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = time.Now()
	}
	_, err := t.db.NewInsert().Model(donation).Exec(ctx)
	return err
}

func balanceColumn(currency ledger.Currency) string {
	if currency == ledger.CurrencyVip {
		return "balance_vip"
	}
	return "balance"
}

func earnedColumn(currency ledger.Currency) string {
	if currency == ledger.CurrencyVip {
		return "total_earned_vip"
	}
	return "total_earned"
}

// TopAccounts returns the leaderboard ordered by the given column,
// skipping excluded IDs (service accounts) and empty accounts.
func (r *LedgerRepository) TopAccounts(ctx context.Context, orderBy string, excludeIDs []string, limit int) ([]*models.Account, error) {
	if orderBy != "total_earned" {
		orderBy = "balance"
	}
	var accounts []*models.Account
	q := r.db.NewSelect().
		Model(&accounts).
		Where("balance > 0 OR total_earned > 0").
		OrderExpr(orderBy + " DESC").
		Limit(limit)
	if len(excludeIDs) > 0 {
		q = q.Where("user_id NOT IN (?)", bun.In(excludeIDs))
	}
	err := q.Scan(ctx)
	return accounts, r.HandleError("top_accounts", "account", err)
}

// RecentEntries returns the newest ledger entries involving the user.
func (r *LedgerRepository) RecentEntries(ctx context.Context, userID string, limit int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("to_user_id = ? OR from_user_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return entries, r.HandleError("recent_entries", "ledger_entry", err)
}

// CreateFund inserts a new fund. Duplicate names surface as
// ConflictError.
func (r *LedgerRepository) CreateFund(ctx context.Context, name, description string) (*models.Fund, error) {
	fund := &models.Fund{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	_, err := r.db.NewInsert().Model(fund).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
			return nil, &ConflictError{Entity: "fund", Field: "name", Value: name}
		}
		return nil, r.HandleError("create_fund", "fund", err)
	}
	return fund, nil
}

// FindFund loads one fund by name outside any transaction.
func (r *LedgerRepository) FindFund(ctx context.Context, name string) (*models.Fund, error) {
	return (&ledgerTx{db: r.db}).GetFund(ctx, name)
}

// ListFunds returns all funds, newest first.
func (r *LedgerRepository) ListFunds(ctx context.Context) ([]*models.Fund, error) {
	var funds []*models.Fund
	err := r.db.NewSelect().
		Model(&funds).
		Order("created_at DESC").
		Scan(ctx)
	return funds, r.HandleError("list_funds", "fund", err)
}

// TopDonors aggregates a fund's donations per donor, largest first.
func (r *LedgerRepository) TopDonors(ctx context.Context, fundName string, limit int) ([]*DonorTotal, error) {
	var donors []*DonorTotal
	err := r.db.NewSelect().
		Model((*models.FundDonation)(nil)).
		ColumnExpr("donor_id").
		ColumnExpr("SUM(amount) AS total_donated").
		ColumnExpr("SUM(amount_vip) AS total_donated_vip").
		ColumnExpr("COUNT(*) AS donation_count").
		ColumnExpr("MAX(created_at) AS last_donation").
		Where("fund_name = ?", fundName).
		GroupExpr("donor_id").
		OrderExpr("SUM(amount) DESC").
		Limit(limit).
		Scan(ctx, &donors)
	return donors, r.HandleError("top_donors", "fund_donation", err)
}

// CheckinStatus returns the user's record, or nil when they have never
// checked in.
func (r *LedgerRepository) CheckinStatus(ctx context.Context, userID string) (*models.CheckinRecord, error) {
	return (&ledgerTx{db: r.db}).GetCheckin(ctx, userID)
}

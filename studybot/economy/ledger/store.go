package ledger

import (
	"context"

	"github.com/mdcstudy/studybot/studybot/database/models"
)

// Currency selects which of the two parallel balances an operation
// touches.
type Currency string

const (
	CurrencyStandard Currency = "standard"
	CurrencyVip      Currency = "vip"
)

// Tx is the set of composable storage operations available inside one
// atomic unit. Implementations must serialize concurrent operations on
// the same account (row-level locking or equivalent) so that a
// read-then-write sequence never acts on a stale balance.
type Tx interface {
	// GetAccount returns ErrAccountNotFound when no row exists.
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	// UpsertAccount inserts a zeroed account if absent and returns the
	// current row either way.
	UpsertAccount(ctx context.Context, userID string) (*models.Account, error)
	// Debit subtracts amount from the selected balance and returns
	// ErrInsufficientFunds when the balance is too low. The check and
	// the write are a single guarded statement.
	Debit(ctx context.Context, userID string, currency Currency, amount int64) error
	// Credit adds amount to the selected balance and to the matching
	// total-earned counter.
	Credit(ctx context.Context, userID string, currency Currency, amount int64) error
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error

	// GetCheckin returns (nil, nil) when the user has never checked in.
	GetCheckin(ctx context.Context, userID string) (*models.CheckinRecord, error)
	UpsertCheckin(ctx context.Context, record *models.CheckinRecord) error

	// GetFund returns ErrFundNotFound when the fund does not exist.
	GetFund(ctx context.Context, name string) (*models.Fund, error)
	AddFundTotals(ctx context.Context, name string, amount, amountVip int64) error
	AppendDonation(ctx context.Context, donation *models.FundDonation) error
}

// Store is the durable side of the ledger. Everything the engine does
// runs through RunInTx; if fn returns an error the whole unit rolls
// back.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// GetAccount is a pure read outside any transaction. Returns
	// ErrAccountNotFound for unknown users.
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
}

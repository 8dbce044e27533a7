package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mdcstudy/studybot/studybot/database/models"
	"github.com/mdcstudy/studybot/studybot/economy/streak"
)

// Config tunes the engine's reward economy.
type Config struct {
	// DailyBaseReward is the payout per streak day: day N of a streak
	// pays N * DailyBaseReward.
	DailyBaseReward int64
	// Now is overridable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the single choke point through which every balance number
// changes. Each operation executes as one atomic unit against the
// store.
type Engine struct {
	store Store
	cfg   Config
}

func NewEngine(store Store, cfg Config) *Engine {
	if cfg.DailyBaseReward <= 0 {
		cfg.DailyBaseReward = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: store, cfg: cfg}
}

// GetOrCreateAccount inserts a zeroed account if absent. Never fails
// except on storage error.
func (e *Engine) GetOrCreateAccount(ctx context.Context, userID string) (*models.Account, error) {
	var account *models.Account
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		account, err = tx.UpsertAccount(ctx, userID)
		return err
	})
	if err != nil {
		return nil, wrapStorage("get_or_create_account", err)
	}
	return account, nil
}

// GetBalance is a pure read. Returns ErrAccountNotFound for unknown
// users.
func (e *Engine) GetBalance(ctx context.Context, userID string) (*models.Account, error) {
	account, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, wrapStorage("get_balance", err)
	}
	return account, nil
}

// CreditEarning credits a system-sourced reward: voice earnings, daily
// check-ins and invite bonuses. Both the balance and the total-earned
// counter of the selected currency grow by amount, and exactly one
// ledger entry with an empty FromUserID is appended in the same atomic
// unit.
func (e *Engine) CreditEarning(ctx context.Context, userID string, amount int64, currency Currency, kind models.EntryKind, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.UpsertAccount(ctx, userID); err != nil {
			return err
		}
		if err := tx.Credit(ctx, userID, currency, amount); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, &models.LedgerEntry{
			ToUserID:    userID,
			Amount:      amount,
			Kind:        kind,
			Description: description,
			CreatedAt:   e.cfg.Now(),
		})
	})
	if err != nil {
		return wrapStorage("credit_earning", err)
	}
	slog.Info("Earning credited",
		slog.String("type", "ledger"),
		slog.String("user_id", userID),
		slog.Int64("amount", amount),
		slog.String("kind", string(kind)))
	return nil
}

// CreditVoiceEarning credits a completed study hour.
func (e *Engine) CreditVoiceEarning(ctx context.Context, userID string, amount int64) error {
	return e.CreditEarning(ctx, userID, amount, CurrencyStandard, models.EntryVoiceEarn, "Completed a study hour")
}

// Transfer moves amount between two users in one atomic unit. The
// sender's balance is checked by the guarded debit inside the same
// transaction, so two concurrent transfers can never both spend the
// same funds. Gifts count toward the receiver's total earned.
// Self-transfers and non-eligible recipients are rejected by the
// caller, not here.
func (e *Engine) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, currency Currency, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	kind := models.EntryGift
	if currency == CurrencyVip {
		kind = models.EntryVipTransfer
	}
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.UpsertAccount(ctx, toUserID); err != nil {
			return err
		}
		if err := tx.Debit(ctx, fromUserID, currency, amount); err != nil {
			return err
		}
		if err := tx.Credit(ctx, toUserID, currency, amount); err != nil {
			return err
		}
		description := "Coin transfer"
		if reason != "" {
			description = fmt.Sprintf("Gift: %s", reason)
		}
		return tx.AppendEntry(ctx, &models.LedgerEntry{
			FromUserID:  fromUserID,
			ToUserID:    toUserID,
			Amount:      amount,
			Kind:        kind,
			Description: description,
			CreatedAt:   e.cfg.Now(),
		})
	})
	if err != nil {
		return wrapStorage("transfer", err)
	}
	slog.Info("Transfer completed",
		slog.String("type", "ledger"),
		slog.String("from", fromUserID),
		slog.String("to", toUserID),
		slog.Int64("amount", amount),
		slog.String("kind", string(kind)))
	return nil
}

// Donate debits the donor per currency actually donated, increments
// the fund totals, appends one donation row and one ledger entry per
// currency, all in the same atomic unit. Passing 0 for a currency
// leaves it untouched; both zero is rejected.
func (e *Engine) Donate(ctx context.Context, userID, fundName string, amount, amountVip int64, reason string) error {
	if amount < 0 || amountVip < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 && amountVip == 0 {
		return ErrNothingToDonate
	}
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetFund(ctx, fundName); err != nil {
			return err
		}
		if _, err := tx.UpsertAccount(ctx, userID); err != nil {
			return err
		}
		if amount > 0 {
			if err := tx.Debit(ctx, userID, CurrencyStandard, amount); err != nil {
				return err
			}
		}
		if amountVip > 0 {
			if err := tx.Debit(ctx, userID, CurrencyVip, amountVip); err != nil {
				return err
			}
		}
		if err := tx.AddFundTotals(ctx, fundName, amount, amountVip); err != nil {
			return err
		}
		if err := tx.AppendDonation(ctx, &models.FundDonation{
			FundName:  fundName,
			DonorID:   userID,
			Amount:    amount,
			AmountVip: amountVip,
			CreatedAt: e.cfg.Now(),
		}); err != nil {
			return err
		}
		description := fmt.Sprintf("Donated to %s", fundName)
		if reason != "" {
			description = fmt.Sprintf("Fund donation to %s: %s", fundName, reason)
		}
		if amount > 0 {
			if err := tx.AppendEntry(ctx, &models.LedgerEntry{
				FromUserID:  userID,
				ToUserID:    userID,
				Amount:      amount,
				Kind:        models.EntryFundDonation,
				Description: description,
				CreatedAt:   e.cfg.Now(),
			}); err != nil {
				return err
			}
		}
		if amountVip > 0 {
			if err := tx.AppendEntry(ctx, &models.LedgerEntry{
				FromUserID:  userID,
				ToUserID:    userID,
				Amount:      amountVip,
				Kind:        models.EntryFundDonation,
				Description: description + " (VIP)",
				CreatedAt:   e.cfg.Now(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapStorage("donate", err)
	}
	slog.Info("Donation completed",
		slog.String("type", "ledger"),
		slog.String("user_id", userID),
		slog.String("fund", fundName),
		slog.Int64("amount", amount),
		slog.Int64("amount_vip", amountVip))
	return nil
}

// CheckinResult reports the outcome of a successful daily check-in.
type CheckinResult struct {
	Reward        int64
	Streak        int
	TotalCheckins int
}

// ProcessDailyCheckin upserts the user's check-in record and credits
// the streak reward in one atomic unit. Returns ErrAlreadyCheckedIn
// when the stored date equals today.
func (e *Engine) ProcessDailyCheckin(ctx context.Context, userID string) (*CheckinResult, error) {
	today := truncateToDay(e.cfg.Now())
	var result CheckinResult
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.UpsertAccount(ctx, userID); err != nil {
			return err
		}
		record, err := tx.GetCheckin(ctx, userID)
		if err != nil {
			return err
		}

		var lastDate time.Time
		currentStreak := 0
		totalCheckins := 0
		if record != nil {
			lastDate = truncateToDay(record.LastCheckinDate)
			currentStreak = record.CurrentStreak
			totalCheckins = record.TotalCheckins
			if lastDate.Equal(today) {
				return ErrAlreadyCheckedIn
			}
		}

		newStreak := streak.Next(today, lastDate, currentStreak)
		reward := streak.Reward(newStreak, e.cfg.DailyBaseReward)

		if record == nil {
			record = &models.CheckinRecord{UserID: userID}
		}
		record.LastCheckinDate = today
		record.CurrentStreak = newStreak
		record.TotalCheckins = totalCheckins + 1
		record.UpdatedAt = e.cfg.Now()
		if err := tx.UpsertCheckin(ctx, record); err != nil {
			return err
		}

		if err := tx.Credit(ctx, userID, CurrencyStandard, reward); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &models.LedgerEntry{
			ToUserID:    userID,
			Amount:      reward,
			Kind:        models.EntryDailyCheckin,
			Description: fmt.Sprintf("Daily check-in day %d", newStreak),
			CreatedAt:   e.cfg.Now(),
		}); err != nil {
			return err
		}

		result = CheckinResult{
			Reward:        reward,
			Streak:        newStreak,
			TotalCheckins: record.TotalCheckins,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorage("daily_checkin", err)
	}
	slog.Info("Daily check-in processed",
		slog.String("type", "ledger"),
		slog.String("user_id", userID),
		slog.Int("streak", result.Streak),
		slog.Int64("reward", result.Reward))
	return &result, nil
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

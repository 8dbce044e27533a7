package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EntryKind classifies a ledger entry by the operation that produced it.
type EntryKind string

const (
	EntryVoiceEarn    EntryKind = "voice_earn"
	EntryGift         EntryKind = "gift"
	EntryVipTransfer  EntryKind = "vip_transfer"
	EntryDailyCheckin EntryKind = "daily_checkin"
	EntryInviteReward EntryKind = "invite_reward"
	EntryFundDonation EntryKind = "fund_donation"
	EntryAdmin        EntryKind = "admin"
)

// LedgerEntry is the append-only audit record for every balance
// mutation. FromUserID is empty for system-sourced credits.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries,alias:le"`

	ID          int64     `bun:"id,pk,autoincrement"`
	FromUserID  string    `bun:"from_user_id"`
	ToUserID    string    `bun:"to_user_id,notnull"`
	Amount      int64     `bun:"amount,notnull"`
	Kind        EntryKind `bun:"kind,notnull"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Invite mirrors a guild invite so the inviter survives bot restarts.
// The stored inviter is authoritative when it disagrees with the value
// reported by the live gateway cache.
type Invite struct {
	bun.BaseModel `bun:"table:invites,alias:i"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Code      string    `bun:"code,notnull,unique"`
	InviterID string    `bun:"inviter_id,notnull"`
	Uses      int       `bun:"uses,notnull,default:0"`
	MaxUses   int       `bun:"max_uses,notnull,default:0"`
	ExpiresAt time.Time `bun:"expires_at,nullzero"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// InviteReward records a paid-out invite bonus.
type InviteReward struct {
	bun.BaseModel `bun:"table:invite_rewards,alias:ir"`

	ID           int64     `bun:"id,pk,autoincrement"`
	InviterID    string    `bun:"inviter_id,notnull"`
	InviteeID    string    `bun:"invitee_id,notnull"`
	InviteCode   string    `bun:"invite_code,notnull"`
	RewardAmount int64     `bun:"reward_amount,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

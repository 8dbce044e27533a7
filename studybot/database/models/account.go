package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Account holds both currency balances for a single Discord user.
// Accounts are created lazily on first reference and never deleted.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID             int64  `bun:"id,pk,autoincrement"`
	UserID         string `bun:"user_id,notnull,unique"`
	Balance        int64  `bun:"balance,notnull,default:0"`
	BalanceVip     int64  `bun:"balance_vip,notnull,default:0"`
	TotalEarned    int64  `bun:"total_earned,notnull,default:0"`
	TotalEarnedVip int64  `bun:"total_earned_vip,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

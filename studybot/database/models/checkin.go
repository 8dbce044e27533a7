package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CheckinRecord tracks the daily check-in streak for one user. The
// record is created on first check-in and mutated at most once per
// calendar day. LastCheckinDate carries a date only, truncated to
// midnight platform-local.
type CheckinRecord struct {
	bun.BaseModel `bun:"table:daily_checkins,alias:dc"`

	ID              int64     `bun:"id,pk,autoincrement"`
	UserID          string    `bun:"user_id,notnull,unique"`
	LastCheckinDate time.Time `bun:"last_checkin_date,notnull"`
	CurrentStreak   int       `bun:"current_streak,notnull,default:1"`
	TotalCheckins   int       `bun:"total_checkins,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

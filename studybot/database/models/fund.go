package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Fund is a shared donation pool. Funds are created by admins and
// accumulate donations in both currencies.
type Fund struct {
	bun.BaseModel `bun:"table:funds,alias:f"`

	ID              int64     `bun:"id,pk,autoincrement"`
	Name            string    `bun:"name,notnull,unique"`
	Description     string    `bun:"description"`
	TotalDonated    int64     `bun:"total_donated,notnull,default:0"`
	TotalDonatedVip int64     `bun:"total_donated_vip,notnull,default:0"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// FundDonation is the append-only record of a single donation. Either
// amount may be zero but never both.
type FundDonation struct {
	bun.BaseModel `bun:"table:fund_donations,alias:fd"`

	ID        int64     `bun:"id,pk,autoincrement"`
	FundName  string    `bun:"fund_name,notnull"`
	DonorID   string    `bun:"donor_id,notnull"`
	Amount    int64     `bun:"amount,notnull,default:0"`
	AmountVip int64     `bun:"amount_vip,notnull,default:0"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

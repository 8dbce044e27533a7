package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mdcstudy/studybot/studybot/database/models"
	"github.com/uptrace/bun"
)

// InviteStats summarizes a user's invite activity.
type InviteStats struct {
	TotalUses     int
	ActiveInvites int
	InviteCount   int
	TotalRewards  int64
	RewardCount   int
}

// InviteRepository persists guild invites and paid invite rewards. The
// stored inviter is the durable source of truth when the gateway cache
// disagrees.
type InviteRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewInviteRepository(db *bun.DB) *InviteRepository {
	return &InviteRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

// Upsert stores or refreshes one invite. The inviter is written only on
// insert so a later cache rebuild cannot overwrite the original value.
func (r *InviteRepository) Upsert(ctx context.Context, invite *models.Invite) error {
	invite.UpdatedAt = time.Now()
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = invite.UpdatedAt
	}
	_, err := r.db.NewInsert().
		Model(invite).
		On("CONFLICT (code) DO UPDATE").
		Set("uses = EXCLUDED.uses").
		Set("max_uses = EXCLUDED.max_uses").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return r.HandleErrorWithID("upsert", "invite", invite.Code, err)
}

// GetByCode returns nil when the code is unknown.
func (r *InviteRepository) GetByCode(ctx context.Context, code string) (*models.Invite, error) {
	invite := new(models.Invite)
	err := r.db.NewSelect().
		Model(invite).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.HandleErrorWithID("get", "invite", code, err)
	}
	return invite, nil
}

// SetInviter overwrites the stored inviter for a code. Used when an
// invite is minted on a member's behalf, so the bot account that made
// the API call never sticks as the inviter.
func (r *InviteRepository) SetInviter(ctx context.Context, code, inviterID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Invite)(nil)).
		Set("inviter_id = ?", inviterID).
		Set("updated_at = ?", time.Now()).
		Where("code = ?", code).
		Exec(ctx)
	return r.HandleErrorWithID("set_inviter", "invite", code, err)
}

// UpdateUses records the latest use count for a code.
func (r *InviteRepository) UpdateUses(ctx context.Context, code string, uses int) error {
	_, err := r.db.NewUpdate().
		Model((*models.Invite)(nil)).
		Set("uses = ?", uses).
		Set("updated_at = ?", time.Now()).
		Where("code = ?", code).
		Exec(ctx)
	return r.HandleErrorWithID("update_uses", "invite", code, err)
}

// Delete removes an invite that no longer exists on the guild.
func (r *InviteRepository) Delete(ctx context.Context, code string) error {
	_, err := r.db.NewDelete().
		Model((*models.Invite)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	return r.HandleErrorWithID("delete", "invite", code, err)
}

// AppendReward records a paid-out invite bonus.
func (r *InviteRepository) AppendReward(ctx context.Context, reward *models.InviteReward) error {
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(reward).Exec(ctx)
	return r.HandleError("append_reward", "invite_reward", err)
}

// StatsFor aggregates invite usage and rewards for one inviter.
func (r *InviteRepository) StatsFor(ctx context.Context, inviterID string) (*InviteStats, error) {
	var invites []*models.Invite
	err := r.db.NewSelect().
		Model(&invites).
		Where("inviter_id = ?", inviterID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("stats", "invite", err)
	}

	stats := &InviteStats{InviteCount: len(invites)}
	now := time.Now()
	for _, invite := range invites {
		stats.TotalUses += invite.Uses
		if invite.ExpiresAt.IsZero() || invite.ExpiresAt.After(now) {
			stats.ActiveInvites++
		}
	}

	var rewards []*models.InviteReward
	err = r.db.NewSelect().
		Model(&rewards).
		Where("inviter_id = ?", inviterID).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("stats", "invite_reward", err)
	}
	stats.RewardCount = len(rewards)
	for _, reward := range rewards {
		stats.TotalRewards += reward.RewardAmount
	}
	return stats, nil
}

// Package invites tracks guild invite usage so new members can be
// attributed to the inviter who brought them in, paying the invite
// bonus through the ledger engine.
package invites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"

	"github.com/mdcstudy/studybot/studybot/database/models"
	"github.com/mdcstudy/studybot/studybot/database/repositories"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
)

const cacheSize = 1024

type cachedInvite struct {
	code      string
	uses      int
	inviterID string
}

// usedInvite is the attribution result for one member join.
type usedInvite struct {
	code      string
	inviterID string
}

// Manager keeps an in-memory picture of the guild's invites and diffs
// it against the live list whenever a member joins. The durably stored
// inviter always wins over the live value, since the gateway cache can
// be stale after restarts.
type Manager struct {
	client       bot.Client
	guildID      snowflake.ID
	repo         *repositories.InviteRepository
	engine       *ledger.Engine
	rewardAmount int64
	welcomeChan  snowflake.ID

	mu          sync.Mutex
	cache       *lru.Cache
	initialized bool
}

func NewManager(client bot.Client, guildID snowflake.ID, repo *repositories.InviteRepository, engine *ledger.Engine, rewardAmount int64, welcomeChan snowflake.ID) *Manager {
	cache, _ := lru.New(cacheSize)
	return &Manager{
		client:       client,
		guildID:      guildID,
		repo:         repo,
		engine:       engine,
		rewardAmount: rewardAmount,
		welcomeChan:  welcomeChan,
		cache:        cache,
	}
}

// fetchInvites loads the guild invite list with its metadata. The
// typed guild endpoint strips the use counters the diff needs, so the
// response is decoded into the extended shape directly.
func (m *Manager) fetchInvites(ctx context.Context) ([]discord.ExtendedInvite, error) {
	var invites []discord.ExtendedInvite
	err := m.client.Rest().Do(rest.GetGuildInvites.Compile(nil, m.guildID), nil, &invites, rest.WithCtx(ctx))
	return invites, err
}

// InitializeCache seeds the cache from the guild's current invites and
// syncs them to storage.
func (m *Manager) InitializeCache(ctx context.Context) error {
	invites, err := m.fetchInvites(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch guild invites: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Purge()
	for _, invite := range invites {
		m.cache.Add(invite.Code, toCached(invite))
		if err := m.repo.Upsert(ctx, toModel(invite)); err != nil {
			slog.Error("Failed to sync invite",
				slog.String("type", "invites"),
				slog.String("code", invite.Code),
				slog.Any("error", err))
		}
	}
	m.initialized = true

	slog.Info("Invite cache initialized",
		slog.String("type", "invites"),
		slog.Int("count", len(invites)))
	return nil
}

// OnInviteCreate keeps the cache and storage current without a full
// refetch. The gateway payload carries no use counter; a fresh invite
// starts at zero.
func (m *Manager) OnInviteCreate(ctx context.Context, invite discord.Invite) {
	extended := discord.ExtendedInvite{Invite: invite}

	m.mu.Lock()
	m.cache.Add(invite.Code, toCached(extended))
	m.mu.Unlock()

	if err := m.repo.Upsert(ctx, toModel(extended)); err != nil {
		slog.Error("Failed to store new invite",
			slog.String("type", "invites"),
			slog.String("code", invite.Code),
			slog.Any("error", err))
	}
}

// RegisterMemberInvite records an invite the bot minted on behalf of a
// member, so joins through it credit that member rather than the bot
// account that issued the API call. Overwrites whatever inviter the
// create event already stored for the code.
func (m *Manager) RegisterMemberInvite(ctx context.Context, invite discord.Invite, inviterID string) error {
	m.mu.Lock()
	m.cache.Add(invite.Code, cachedInvite{code: invite.Code, inviterID: inviterID})
	m.mu.Unlock()

	model := toModel(discord.ExtendedInvite{Invite: invite})
	model.InviterID = inviterID
	if err := m.repo.Upsert(ctx, model); err != nil {
		return err
	}
	return m.repo.SetInviter(ctx, invite.Code, inviterID)
}

// OnInviteDelete drops the invite from the cache and storage. Runs
// after the join path already had a chance to attribute a single-use
// invite, so losing the row here is acceptable.
func (m *Manager) OnInviteDelete(ctx context.Context, code string) {
	m.mu.Lock()
	m.cache.Remove(code)
	m.mu.Unlock()

	if err := m.repo.Delete(ctx, code); err != nil {
		slog.Warn("Failed to delete invite",
			slog.String("type", "invites"),
			slog.String("code", code),
			slog.Any("error", err))
	}
}

// OnMemberJoin attributes the join to an invite, pays the inviter and
// greets the new member. Attribution failures are logged, never fatal:
// a missed bonus is preferable to blocking the join path.
func (m *Manager) OnMemberJoin(ctx context.Context, member discord.Member) {
	if member.User.Bot {
		return
	}

	m.mu.Lock()
	var used *usedInvite
	if m.initialized {
		used = m.findUsedInvite(ctx)
	}
	m.mu.Unlock()

	if used == nil {
		slog.Warn("Could not attribute member join to an invite",
			slog.String("type", "invites"),
			slog.String("user_id", member.User.ID.String()))
	} else if used.inviterID != "" && used.inviterID != member.User.ID.String() {
		m.rewardInviter(ctx, used, member)
	}

	if m.welcomeChan != 0 {
		_, err := m.client.Rest().CreateMessage(m.welcomeChan,
			discord.NewMessageCreateBuilder().
				SetContentf("Welcome to the study hall, %s!", member.Mention()).
				Build())
		if err != nil {
			slog.Error("Failed to send welcome message",
				slog.String("type", "invites"),
				slog.Any("error", err))
		}
	}
}

// findUsedInvite fetches the live invite list and compares use counts
// against the cache. Caller holds m.mu.
func (m *Manager) findUsedInvite(ctx context.Context) *usedInvite {
	invites, err := m.fetchInvites(ctx)
	if err != nil {
		slog.Error("Failed to fetch invites for join attribution",
			slog.String("type", "invites"),
			slog.Any("error", err))
		return nil
	}

	picked := pickUsedInvite(invites, func(code string) int {
		if v, ok := m.cache.Get(code); ok {
			return v.(cachedInvite).uses
		}
		return 0
	})

	var used *usedInvite
	if picked != nil {
		used = &usedInvite{
			code:      picked.Code,
			inviterID: m.resolveInviter(ctx, *picked),
		}
		if err := m.repo.UpdateUses(ctx, picked.Code, picked.Uses); err != nil {
			slog.Warn("Failed to update invite uses",
				slog.String("type", "invites"),
				slog.String("code", picked.Code),
				slog.Any("error", err))
		}
	}
	for _, invite := range invites {
		m.cache.Add(invite.Code, toCached(invite))
	}
	if used != nil {
		return used
	}

	// A single-use invite vanishes once consumed; a cached code missing
	// from the live list is the best remaining candidate.
	for _, code := range vanishedCodes(invites, m.cache.Keys()) {
		v, _ := m.cache.Get(code)
		m.cache.Remove(code)
		if stored, err := m.repo.GetByCode(ctx, code); err == nil && stored != nil {
			return &usedInvite{code: code, inviterID: stored.InviterID}
		}
		if cached, ok := v.(cachedInvite); ok && cached.inviterID != "" {
			return &usedInvite{code: code, inviterID: cached.inviterID}
		}
	}
	return nil
}

// pickUsedInvite returns the first live invite whose use count moved
// past the cached value.
func pickUsedInvite(live []discord.ExtendedInvite, cachedUses func(code string) int) *discord.ExtendedInvite {
	for i := range live {
		if live[i].Uses > cachedUses(live[i].Code) {
			return &live[i]
		}
	}
	return nil
}

// vanishedCodes returns cached codes that no longer appear in the live
// list.
func vanishedCodes(live []discord.ExtendedInvite, cachedKeys []interface{}) []string {
	liveCodes := make(map[string]struct{}, len(live))
	for _, invite := range live {
		liveCodes[invite.Code] = struct{}{}
	}
	var vanished []string
	for _, key := range cachedKeys {
		code := key.(string)
		if _, ok := liveCodes[code]; !ok {
			vanished = append(vanished, code)
		}
	}
	return vanished
}

// resolveInviter prefers the durably stored inviter over the one the
// live invite reports.
func (m *Manager) resolveInviter(ctx context.Context, invite discord.ExtendedInvite) string {
	liveInviter := ""
	if invite.Inviter != nil {
		liveInviter = invite.Inviter.ID.String()
	}
	stored, err := m.repo.GetByCode(ctx, invite.Code)
	if err != nil {
		slog.Warn("Failed to load stored invite, using live inviter",
			slog.String("type", "invites"),
			slog.String("code", invite.Code),
			slog.Any("error", err))
		return liveInviter
	}
	if stored != nil && stored.InviterID != "" {
		return stored.InviterID
	}
	return liveInviter
}

func (m *Manager) rewardInviter(ctx context.Context, used *usedInvite, member discord.Member) {
	description := fmt.Sprintf("Invited %s using code %s", member.User.Username, used.code)
	if err := m.engine.CreditEarning(ctx, used.inviterID, m.rewardAmount,
		ledger.CurrencyStandard, models.EntryInviteReward, description); err != nil {
		slog.Error("Failed to credit invite reward",
			slog.String("type", "invites"),
			slog.String("inviter_id", used.inviterID),
			slog.Any("error", err))
		return
	}
	if err := m.repo.AppendReward(ctx, &models.InviteReward{
		InviterID:    used.inviterID,
		InviteeID:    member.User.ID.String(),
		InviteCode:   used.code,
		RewardAmount: m.rewardAmount,
		CreatedAt:    time.Now(),
	}); err != nil {
		slog.Error("Failed to record invite reward",
			slog.String("type", "invites"),
			slog.String("inviter_id", used.inviterID),
			slog.Any("error", err))
	}
	slog.Info("Invite reward paid",
		slog.String("type", "invites"),
		slog.String("inviter_id", used.inviterID),
		slog.String("invitee_id", member.User.ID.String()),
		slog.String("code", used.code))
}

func toCached(invite discord.ExtendedInvite) cachedInvite {
	inviterID := ""
	if invite.Inviter != nil {
		inviterID = invite.Inviter.ID.String()
	}
	return cachedInvite{code: invite.Code, uses: invite.Uses, inviterID: inviterID}
}

func toModel(invite discord.ExtendedInvite) *models.Invite {
	inviterID := ""
	if invite.Inviter != nil {
		inviterID = invite.Inviter.ID.String()
	}
	model := &models.Invite{
		Code:      invite.Code,
		InviterID: inviterID,
		Uses:      invite.Uses,
		MaxUses:   invite.MaxUses,
	}
	if invite.ExpiresAt != nil {
		model.ExpiresAt = *invite.ExpiresAt
	}
	return model
}

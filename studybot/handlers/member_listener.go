package handlers

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/mdcstudy/studybot/studybot"
)

// MemberJoinListener hands new members to the invite manager for
// attribution and rewards.
func MemberJoinListener(b *studybot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildMemberJoin) {
		if b.Cfg.Bot.GuildID != 0 && e.GuildID != b.Cfg.Bot.GuildID {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			b.InviteManager.OnMemberJoin(ctx, e.Member)
		}()
	})
}

// wrongGuild filters invite events, whose guild ID is optional on the
// wire.
func wrongGuild(configured snowflake.ID, guildID *snowflake.ID) bool {
	return configured != 0 && (guildID == nil || *guildID != configured)
}

// InviteListener keeps the invite cache in step with invite churn.
func InviteListener(b *studybot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.InviteCreate) {
		if wrongGuild(b.Cfg.Bot.GuildID, e.GuildID) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.InviteManager.OnInviteCreate(ctx, e.Invite)
	})
}

// InviteDeleteListener removes deleted invites from the cache.
func InviteDeleteListener(b *studybot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.InviteDelete) {
		if wrongGuild(b.Cfg.Bot.GuildID, e.GuildID) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.InviteManager.OnInviteDelete(ctx, e.Code)
	})
}

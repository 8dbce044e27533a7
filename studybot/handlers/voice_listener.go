package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/mdcstudy/studybot/studybot"
)

// VoiceStateListener routes voice state updates into the session
// scheduler. Every update first makes sure the member has an account
// so later credits never race account creation.
func VoiceStateListener(b *studybot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.GuildVoiceStateUpdate) {
		if e.Member.User.Bot {
			return
		}
		if b.Cfg.Bot.GuildID != 0 && e.VoiceState.GuildID != b.Cfg.Bot.GuildID {
			return
		}

		var previous, next snowflake.ID
		if e.OldVoiceState.ChannelID != nil {
			previous = *e.OldVoiceState.ChannelID
		}
		if e.VoiceState.ChannelID != nil {
			next = *e.VoiceState.ChannelID
		}

		channelName := ""
		if next != 0 {
			if channel, ok := e.Client().Caches().Channel(next); ok {
				channelName = channel.Name()
			}
		}

		if next != 0 {
			go func(userID string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if _, err := b.Engine.GetOrCreateAccount(ctx, userID); err != nil {
					slog.Error("Failed to ensure account for voice member",
						slog.String("type", "db"),
						slog.String("user_id", userID),
						slog.Any("error", err))
				}
			}(e.VoiceState.UserID.String())
		}

		b.Scheduler.HandleVoiceState(e.VoiceState.UserID, e.Member.EffectiveName(), channelName, previous, next)
	})
}

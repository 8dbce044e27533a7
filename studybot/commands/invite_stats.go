package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var InviteStatsCmd = discord.SlashCommandCreate{
	Name:        "invite-stats",
	Description: "📨 See how many members you've brought in",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "View another member's invite stats",
			Required:    false,
		},
	},
}

func InviteStatsHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.StatsQueryTimeout)
		defer cancel()

		target := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = u
		}

		stats, err := b.InviteRepository.StatsFor(ctx, target.ID.String())
		if err != nil {
			slog.Error("Failed to load invite stats",
				slog.String("type", "db"),
				slog.String("user_id", target.ID.String()),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to load invite stats. Please try again later.")
		}

		description := fmt.Sprintf(
			"**Members invited:** %d\n"+
				"**Active invite links:** %d\n"+
				"**Rewards earned:** %s coins across %d joins",
			stats.TotalUses,
			stats.ActiveInvites,
			utils.FormatNumber(stats.TotalRewards),
			stats.RewardCount,
		)

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       fmt.Sprintf("📨 %s's Invites", target.EffectiveName()),
				Description: description,
				Color:       config.InfoColor,
				Timestamp:   &now,
			}},
		})
	}
}

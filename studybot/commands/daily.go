package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var Daily = discord.SlashCommandCreate{
	Name:        "daily",
	Description: "📅 Check in for today and grow your streak",
}

func DailyHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		result, err := b.Engine.ProcessDailyCheckin(ctx, e.User().ID.String())
		if errors.Is(err, ledger.ErrAlreadyCheckedIn) {
			next := time.Until(nextMidnight(time.Now())).Round(time.Minute)
			msg := fmt.Sprintf("You already checked in today. Come back in %s.", next)
			if record, err := b.LedgerRepository.CheckinStatus(ctx, e.User().ID.String()); err == nil && record != nil {
				msg = fmt.Sprintf("You already checked in today (streak day %d). Come back in %s.",
					record.CurrentStreak, next)
			}
			return utils.EH.CreateErrorEmbed(e, msg)
		}
		if err != nil {
			slog.Error("Failed to process check-in",
				slog.String("type", "db"),
				slog.String("user_id", e.User().ID.String()),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to check in. Please try again later.")
		}

		description := fmt.Sprintf(
			"You earned **%s coins** for check-in day **%d** of your streak.\n"+
				"Total check-ins: %d\n\n"+
				"Streaks reset after a missed day and every Monday.",
			utils.FormatNumber(result.Reward),
			result.Streak,
			result.TotalCheckins,
		)

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "📅 Checked In!",
				Description: description,
				Color:       config.SuccessColor,
			}},
		})
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

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

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "💰 View your coin and VIP coin balance",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "View another member's balance",
			Required:    false,
		},
	},
}

func BalanceHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		defer func() {
			slog.Info("Command completed",
				slog.String("type", "cmd"),
				slog.String("name", "balance"),
				slog.Duration("total_time", time.Since(start)),
			)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		target := e.User()
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = u
		}
		if target.Bot {
			return utils.EH.CreateErrorEmbed(e, "Bots don't study, so they don't earn coins.")
		}

		account, err := b.Engine.GetOrCreateAccount(ctx, target.ID.String())
		if err != nil {
			slog.Error("Failed to fetch account",
				slog.String("type", "db"),
				slog.String("user_id", target.ID.String()),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to fetch the balance. Please try again later.")
		}

		description := fmt.Sprintf("```ansi\n"+
			"\x1b[1;36mCoins:\x1b[0m %s\n"+
			"\x1b[1;35mVIP Coins:\x1b[0m %s\n"+
			"\n"+
			"\x1b[0;37mEarned all-time: %s coins, %s VIP\x1b[0m\n"+
			"```",
			utils.FormatNumber(account.Balance),
			utils.FormatNumber(account.BalanceVip),
			utils.FormatNumber(account.TotalEarned),
			utils.FormatNumber(account.TotalEarnedVip),
		)

		embed := discord.Embed{
			Title:       fmt.Sprintf("💰 %s's Balance", target.EffectiveName()),
			Description: description,
			Color:       config.SuccessColor,
		}

		entries, err := b.LedgerRepository.RecentEntries(ctx, target.ID.String(), 5)
		if err != nil {
			slog.Error("Failed to fetch recent entries",
				slog.String("type", "db"),
				slog.String("user_id", target.ID.String()),
				slog.Any("error", err),
			)
		} else if len(entries) > 0 {
			var activity string
			for _, entry := range entries {
				sign := "+"
				if entry.FromUserID == target.ID.String() && entry.ToUserID != target.ID.String() {
					sign = "-"
				}
				activity += fmt.Sprintf("`%s` %s%s %s\n",
					entry.CreatedAt.Format("Jan 02"), sign,
					utils.FormatNumber(entry.Amount), entry.Description)
			}
			embed.Fields = append(embed.Fields, discord.EmbedField{
				Name:  "Recent Activity",
				Value: activity,
			})
		}

		now := time.Now()
		embed.Footer = &discord.EmbedFooter{
			Text: fmt.Sprintf("Requested by %s", e.User().Username),
		}
		embed.Timestamp = &now
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed},
		})
	}
}

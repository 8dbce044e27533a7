package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Top earners in the study hall",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "order",
			Description: "What to rank by",
			Required:    false,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Current balance", Value: "balance"},
				{Name: "All-time earned", Value: "total_earned"},
			},
		},
	},
}

func LeaderboardHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.StatsQueryTimeout)
		defer cancel()

		orderBy := "total_earned"
		if v, ok := e.SlashCommandInteractionData().OptString("order"); ok {
			orderBy = v
		}

		accounts, err := b.LedgerRepository.TopAccounts(ctx, orderBy,
			b.Cfg.Leaderboard.ExcludeIDs, config.MaxPageSize*4)
		if err != nil {
			slog.Error("Failed to load leaderboard",
				slog.String("type", "db"),
				slog.String("order_by", orderBy),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to load the leaderboard. Please try again later.")
		}
		if len(accounts) == 0 {
			return utils.EH.CreateInfoEmbed(e, "Nobody has earned coins yet. Join a study channel!")
		}

		perPage := config.LeaderboardSize
		totalPages := int(math.Max(1, math.Ceil(float64(len(accounts))/float64(perPage))))

		title := "🏆 Leaderboard — All-Time Earned"
		if orderBy == "balance" {
			title = "🏆 Leaderboard — Current Balance"
		}

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				if page >= totalPages {
					page = totalPages - 1
				}
				start := page * perPage
				end := start + perPage
				if end > len(accounts) {
					end = len(accounts)
				}

				description := ""
				for i, account := range accounts[start:end] {
					value := account.TotalEarned
					if orderBy == "balance" {
						value = account.Balance
					}
					description += fmt.Sprintf("%s <@%s> — **%s** coins\n",
						rankMedal(start+i+1), account.UserID, utils.FormatNumber(value))
				}

				embed.
					SetTitle(title).
					SetDescription(description).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func rankMedal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("`#%d`", rank)
	}
}

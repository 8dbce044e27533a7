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

var FundList = discord.SlashCommandCreate{
	Name:        "fund-list",
	Description: "🏦 List all community funds",
}

func FundListHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.StatsQueryTimeout)
		defer cancel()

		funds, err := b.LedgerRepository.ListFunds(ctx)
		if err != nil {
			slog.Error("Failed to list funds",
				slog.String("type", "db"),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to load funds. Please try again later.")
		}
		if len(funds) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No funds exist yet. An admin can create one with /fund-create.")
		}

		perPage := config.DefaultPageSize
		totalPages := int(math.Ceil(float64(len(funds)) / float64(perPage)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				if page >= totalPages {
					page = totalPages - 1
				}
				start := page * perPage
				end := start + perPage
				if end > len(funds) {
					end = len(funds)
				}

				description := ""
				for _, fund := range funds[start:end] {
					description += fmt.Sprintf("**%s** — %s coins", fund.Name,
						utils.FormatNumber(fund.TotalDonated))
					if fund.TotalDonatedVip > 0 {
						description += fmt.Sprintf(" + %s VIP", utils.FormatNumber(fund.TotalDonatedVip))
					}
					if fund.Description != "" {
						description += "\n> " + fund.Description
					}
					description += "\n"
				}

				embed.
					SetTitle("🏦 Community Funds").
					SetDescription(description).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d funds", page+1, totalPages, len(funds)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

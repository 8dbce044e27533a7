package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/json"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var FundInfo = discord.SlashCommandCreate{
	Name:        "fund",
	Description: "🏦 Show a fund's totals and top donors",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "name",
			Description: "The fund to look up",
			Required:    true,
		},
	},
}

var FundCreate = discord.SlashCommandCreate{
	Name:                     "fund-create",
	Description:              "🏦 Create a new community fund",
	DefaultMemberPermissions: json.NewNullablePtr(discord.PermissionAdministrator),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "name",
			Description: "Unique name for the fund",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "description",
			Description: "What the fund is for",
			Required:    false,
		},
	},
}

func FundInfoHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.StatsQueryTimeout)
		defer cancel()

		name := strings.TrimSpace(e.SlashCommandInteractionData().String("name"))
		fund, err := b.LedgerRepository.FindFund(ctx, name)
		if err != nil || fund == nil {
			return utils.EH.CreateErrorEmbed(e, fundNotFoundMessage(ctx, b, name))
		}

		donors, err := b.LedgerRepository.TopDonors(ctx, fund.Name, config.LeaderboardSize)
		if err != nil {
			slog.Error("Failed to load top donors",
				slog.String("type", "db"),
				slog.String("fund", fund.Name),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to load fund details. Please try again later.")
		}

		var sb strings.Builder
		if fund.Description != "" {
			sb.WriteString(fund.Description + "\n\n")
		}
		sb.WriteString(fmt.Sprintf("**Total donated:** %s coins", utils.FormatNumber(fund.TotalDonated)))
		if fund.TotalDonatedVip > 0 {
			sb.WriteString(fmt.Sprintf(" + %s VIP", utils.FormatNumber(fund.TotalDonatedVip)))
		}
		sb.WriteString("\n")

		if len(donors) > 0 {
			sb.WriteString("\n**Top donors**\n")
			for i, donor := range donors {
				sb.WriteString(fmt.Sprintf("%d. <@%s> — %s coins", i+1, donor.DonorID,
					utils.FormatNumber(donor.TotalDonated)))
				if donor.TotalDonatedVip > 0 {
					sb.WriteString(fmt.Sprintf(" + %s VIP", utils.FormatNumber(donor.TotalDonatedVip)))
				}
				sb.WriteString("\n")
			}
		}

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       fmt.Sprintf("🏦 %s", fund.Name),
				Description: sb.String(),
				Color:       config.InfoColor,
				Timestamp:   &now,
			}},
		})
	}
}

func FundCreateHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		name := strings.TrimSpace(data.String("name"))
		description, _ := data.OptString("description")

		if name == "" {
			return utils.EH.CreateEphemeralError(e, "Fund name must not be empty.")
		}

		fund, err := b.LedgerRepository.CreateFund(ctx, name, description)
		if err != nil {
			slog.Error("Failed to create fund",
				slog.String("type", "db"),
				slog.String("fund", name),
				slog.Any("error", err),
			)
			return utils.EH.CreateEphemeralError(e,
				fmt.Sprintf("Could not create fund '%s'. It may already exist.", name))
		}

		return utils.EH.CreateSuccessEmbed(e,
			fmt.Sprintf("🏦 Fund **%s** is ready for donations.", fund.Name))
	}
}

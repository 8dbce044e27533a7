package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var Donate = discord.SlashCommandCreate{
	Name:        "donate",
	Description: "🏦 Donate coins to a community fund",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "fund",
			Description: "The fund to donate to",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "Coins to donate",
			Required:    false,
			MinValue:    &[]int{1}[0],
		},
		discord.ApplicationCommandOptionInt{
			Name:        "vip_amount",
			Description: "VIP coins to donate",
			Required:    false,
			MinValue:    &[]int{1}[0],
		},
		discord.ApplicationCommandOptionString{
			Name:        "note",
			Description: "A note attached to the donation",
			Required:    false,
		},
	},
}

func DonateHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		fundName := strings.TrimSpace(data.String("fund"))
		amount := int64(0)
		amountVip := int64(0)
		if v, ok := data.OptInt("amount"); ok {
			amount = int64(v)
		}
		if v, ok := data.OptInt("vip_amount"); ok {
			amountVip = int64(v)
		}
		note, _ := data.OptString("note")

		err := b.Engine.Donate(ctx, e.User().ID.String(), fundName, amount, amountVip, note)
		switch {
		case errors.Is(err, ledger.ErrNothingToDonate):
			return utils.EH.CreateErrorEmbed(e, "Provide an amount, a VIP amount, or both.")
		case errors.Is(err, ledger.ErrFundNotFound):
			return utils.EH.CreateErrorEmbed(e, fundNotFoundMessage(ctx, b, fundName))
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return utils.EH.CreateErrorEmbed(e, "You don't have enough coins for that donation.")
		case err != nil:
			slog.Error("Failed to donate",
				slog.String("type", "db"),
				slog.String("user_id", e.User().ID.String()),
				slog.String("fund", fundName),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to process the donation. Please try again later.")
		}

		var parts []string
		if amount > 0 {
			parts = append(parts, fmt.Sprintf("**%s coins**", utils.FormatNumber(amount)))
		}
		if amountVip > 0 {
			parts = append(parts, fmt.Sprintf("**%s VIP coins**", utils.FormatNumber(amountVip)))
		}
		description := fmt.Sprintf("%s donated %s to **%s**. Thank you!",
			e.User().Mention(), strings.Join(parts, " and "), fundName)
		if note != "" {
			description += fmt.Sprintf("\n> %s", note)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🏦 Donation Received",
				Description: description,
				Color:       config.SuccessColor,
			}},
		})
	}
}

// fundNotFoundMessage suggests close fund names for typos.
func fundNotFoundMessage(ctx context.Context, b *studybot.Bot, query string) string {
	message := fmt.Sprintf("Fund '%s' not found.", query)

	funds, err := b.LedgerRepository.ListFunds(ctx)
	if err != nil || len(funds) == 0 {
		return message
	}

	names := make([]string, len(funds))
	for i, fund := range funds {
		names[i] = fund.Name
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return message + " Use /fund-list to see all funds."
	}

	limit := config.FundSuggestionsLimit
	if len(matches) < limit {
		limit = len(matches)
	}
	suggestions := make([]string, limit)
	for i := 0; i < limit; i++ {
		suggestions[i] = "`" + matches[i].Str + "`"
	}
	return message + " Did you mean: " + strings.Join(suggestions, ", ") + "?"
}

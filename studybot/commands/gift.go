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

var Gift = discord.SlashCommandCreate{
	Name:        "gift",
	Description: "🎁 Give coins to another member",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The member to send coins to",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many coins to send",
			Required:    true,
			MinValue:    &[]int{1}[0],
		},
		discord.ApplicationCommandOptionString{
			Name:        "reason",
			Description: "A note attached to the gift",
			Required:    false,
		},
	},
}

var GiftVip = discord.SlashCommandCreate{
	Name:        "gift-vip",
	Description: "💎 Give VIP coins to another member",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The member to send VIP coins to",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many VIP coins to send",
			Required:    true,
			MinValue:    &[]int{1}[0],
		},
		discord.ApplicationCommandOptionString{
			Name:        "reason",
			Description: "A note attached to the gift",
			Required:    false,
		},
	},
}

func GiftHandler(b *studybot.Bot) handler.CommandHandler {
	return giftHandler(b, ledger.CurrencyStandard, "coins")
}

func GiftVipHandler(b *studybot.Bot) handler.CommandHandler {
	return giftHandler(b, ledger.CurrencyVip, "VIP coins")
}

func giftHandler(b *studybot.Bot, currency ledger.Currency, unit string) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		target := data.User("user")
		amount := int64(data.Int("amount"))
		reason, _ := data.OptString("reason")

		if target.Bot {
			return utils.EH.CreateErrorEmbed(e, "You can't send coins to a bot.")
		}
		if target.ID == e.User().ID {
			return utils.EH.CreateErrorEmbed(e, "You can't send coins to yourself.")
		}

		err := b.Engine.Transfer(ctx, e.User().ID.String(), target.ID.String(), amount, currency, reason)
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return utils.EH.CreateError(e, "Insufficient Funds",
				fmt.Sprintf("You don't have %s %s to give.", utils.FormatNumber(amount), unit))
		}
		if err != nil {
			slog.Error("Failed to transfer",
				slog.String("type", "db"),
				slog.String("from", e.User().ID.String()),
				slog.String("to", target.ID.String()),
				slog.Any("error", err),
			)
			return utils.EH.CreateErrorEmbed(e, "Failed to send the gift. Please try again later.")
		}

		description := fmt.Sprintf("%s sent **%s %s** to %s!",
			e.User().Mention(), utils.FormatNumber(amount), unit, target.Mention())
		if reason != "" {
			description += fmt.Sprintf("\n> %s", reason)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🎁 Gift Sent",
				Description: description,
				Color:       config.SuccessColor,
			}},
		})
	}
}

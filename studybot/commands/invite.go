package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/utils"
)

var InviteCmd = discord.SlashCommandCreate{
	Name:        "invite",
	Description: "🔗 Mint your personal invite link and earn coins when it gets used",
}

// InviteHandler creates a permanent invite for the current channel on
// the member's behalf and registers them as its inviter, so joins
// through the link pay them the invite bonus.
func InviteHandler(b *studybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// The typed invite-create option struct leaves zeroed limits off
		// the wire, where Discord defaults to a 24h expiry. Send them
		// explicitly so the link never expires.
		body := map[string]any{
			"max_age":  0,
			"max_uses": 0,
			"unique":   true,
		}
		var invite discord.Invite
		err := b.Client.Rest().Do(rest.CreateInvite.Compile(nil, e.ChannelID()), body, &invite,
			rest.WithCtx(ctx), rest.WithReason(fmt.Sprintf("Personal invite for %s", e.User().Username)))
		if err != nil {
			slog.Error("Failed to create invite",
				slog.String("type", "invites"),
				slog.String("user_id", e.User().ID.String()),
				slog.Any("error", err),
			)
			return utils.EH.UpdateInteractionResponse(e, "Invite",
				"Could not create an invite for this channel. Please try again later.")
		}

		if err := b.InviteManager.RegisterMemberInvite(ctx, invite, e.User().ID.String()); err != nil {
			slog.Error("Failed to register member invite",
				slog.String("type", "invites"),
				slog.String("code", invite.Code),
				slog.Any("error", err),
			)
			return utils.EH.UpdateInteractionResponse(e, "Invite",
				"The invite was created but could not be registered. Please try again later.")
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title: "🔗 Your Invite Link",
				Description: fmt.Sprintf("https://discord.gg/%s\n\n"+
					"Every member who joins through your link earns you the invite bonus. "+
					"Check your totals with `/invite-stats`.", invite.Code),
				Color: config.SuccessColor,
			}},
		})
		return err
	}
}

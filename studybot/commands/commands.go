package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Balance,
	Daily,
	Gift,
	GiftVip,
	Donate,
	FundInfo,
	FundList,
	FundCreate,
	Leaderboard,
	InviteCmd,
	InviteStatsCmd,
}

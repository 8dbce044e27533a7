package handlers

import (
	"testing"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/mdcstudy/studybot/studybot"
)

func TestWrongGuild(t *testing.T) {
	configured := snowflake.ID(10)
	other := snowflake.ID(20)

	tests := []struct {
		name       string
		configured snowflake.ID
		guildID    *snowflake.ID
		want       bool
	}{
		{"matching guild", configured, &configured, false},
		{"other guild", configured, &other, true},
		{"missing guild id", configured, nil, true},
		{"no guild configured", 0, &other, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrongGuild(tt.configured, tt.guildID); got != tt.want {
				t.Errorf("wrongGuild(%d, %v) = %v, want %v", tt.configured, tt.guildID, got, tt.want)
			}
		})
	}
}

// Invite events for other guilds must be dropped before the invite
// manager is touched; the bot here has no manager wired, so reaching
// it would panic.
func TestInviteListenersIgnoreOtherGuilds(t *testing.T) {
	b := &studybot.Bot{}
	b.Cfg.Bot.GuildID = snowflake.ID(10)
	other := snowflake.ID(20)

	InviteListener(b).OnEvent(&events.InviteCreate{
		GenericInvite: &events.GenericInvite{GuildID: &other, Code: "abc"},
	})
	InviteDeleteListener(b).OnEvent(&events.InviteDelete{
		GenericInvite: &events.GenericInvite{Code: "abc"},
	})
}

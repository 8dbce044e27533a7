package invites

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
)

func extInvite(code string, uses int) discord.ExtendedInvite {
	return discord.ExtendedInvite{
		Invite: discord.Invite{Code: code},
		Uses:   uses,
	}
}

func TestPickUsedInvite(t *testing.T) {
	cached := map[string]int{"aaa": 3, "bbb": 1}
	lookup := func(code string) int { return cached[code] }

	tests := []struct {
		name string
		live []discord.ExtendedInvite
		want string
	}{
		{
			name: "use count moved past cache",
			live: []discord.ExtendedInvite{extInvite("aaa", 3), extInvite("bbb", 2)},
			want: "bbb",
		},
		{
			name: "unknown code with uses counts from zero",
			live: []discord.ExtendedInvite{extInvite("aaa", 3), extInvite("ccc", 1)},
			want: "ccc",
		},
		{
			name: "nothing moved",
			live: []discord.ExtendedInvite{extInvite("aaa", 3), extInvite("bbb", 1)},
			want: "",
		},
		{
			name: "first moved code wins",
			live: []discord.ExtendedInvite{extInvite("aaa", 4), extInvite("bbb", 2)},
			want: "aaa",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picked := pickUsedInvite(tt.live, lookup)
			got := ""
			if picked != nil {
				got = picked.Code
			}
			if got != tt.want {
				t.Errorf("pickUsedInvite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVanishedCodes(t *testing.T) {
	live := []discord.ExtendedInvite{extInvite("aaa", 1), extInvite("bbb", 0)}
	cachedKeys := []interface{}{"aaa", "bbb", "gone"}

	vanished := vanishedCodes(live, cachedKeys)
	if len(vanished) != 1 || vanished[0] != "gone" {
		t.Errorf("vanishedCodes() = %v, want [gone]", vanished)
	}

	if got := vanishedCodes(live, []interface{}{"aaa"}); len(got) != 0 {
		t.Errorf("vanishedCodes() = %v, want none", got)
	}
}

package studybot

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/mdcstudy/studybot/studybot/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	Bot         BotConfig         `toml:"bot"`
	DB          database.DBConfig `toml:"db"`
	Voice       VoiceConfig       `toml:"voice"`
	Rewards     RewardsConfig     `toml:"rewards"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	GuildID   snowflake.ID   `toml:"guild_id"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type VoiceConfig struct {
	StagingChannelID snowflake.ID `toml:"staging_channel_id"`
	WelcomeChannelID snowflake.ID `toml:"welcome_channel_id"`
	SessionMinutes   int          `toml:"session_minutes"`
	BreakWarnMinutes int          `toml:"break_warn_minutes"`
	FourHourMinutes  int          `toml:"four_hour_minutes"`
	HardCapMinutes   int          `toml:"hard_cap_minutes"`
	BreakCue         string       `toml:"break_cue"`
	FourHourCue      string       `toml:"four_hour_cue"`
	CueRoot          string       `toml:"cue_root"`
}

type RewardsConfig struct {
	VoiceHourly  int64 `toml:"voice_hourly"`
	DailyCheckin int64 `toml:"daily_checkin"`
	InviteBonus  int64 `toml:"invite_bonus"`
}

type LeaderboardConfig struct {
	ExcludeIDs []string `toml:"exclude_ids"`
}

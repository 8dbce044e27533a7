package config

import "time"

// UI and Display Constants
const (
	// Pagination
	DefaultPageSize = 10
	MaxPageSize     = 25

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	// Discord UI Colors
	EmbedDefaultColor = 0x2B2D31
)

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout     = 30 * time.Second
	StatsQueryTimeout       = 10 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	NetworkDialTimeout      = 5 * time.Second
	NetworkKeepAlive        = 30 * time.Second

	MaxRetries = 3
)

// Study Hall Constants
const (
	// Voice session defaults, overridable via config
	DefaultSessionMinutes   = 60
	DefaultBreakWarnMinutes = 210
	DefaultFourHourMinutes  = 240
	DefaultHardCapMinutes   = 245

	// Rewards
	DefaultHourlyReward  = 1
	DefaultDailyReward   = 1
	DefaultInviteReward  = 5
	LeaderboardSize      = 10
	FundSuggestionsLimit = 3
)

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/mdcstudy/studybot/studybot"
	"github.com/mdcstudy/studybot/studybot/commands"
	"github.com/mdcstudy/studybot/studybot/config"
	"github.com/mdcstudy/studybot/studybot/database"
	"github.com/mdcstudy/studybot/studybot/database/repositories"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
	"github.com/mdcstudy/studybot/studybot/handlers"
	"github.com/mdcstudy/studybot/studybot/invites"
	"github.com/mdcstudy/studybot/studybot/logger"
	"github.com/mdcstudy/studybot/studybot/voice"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting StudyBot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := studybot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	defer db.Close()

	b := studybot.New(*cfg, version, commit)
	b.DB = db

	b.LedgerRepository = repositories.NewLedgerRepository(db.BunDB())
	b.InviteRepository = repositories.NewInviteRepository(db.BunDB())

	dailyReward := cfg.Rewards.DailyCheckin
	if dailyReward <= 0 {
		dailyReward = config.DefaultDailyReward
	}
	b.Engine = ledger.NewEngine(b.LedgerRepository, ledger.Config{
		DailyBaseReward: dailyReward,
	})

	h := handler.New()
	h.Command("/balance", handlers.WrapWithLogging("balance", commands.BalanceHandler(b)))
	h.Command("/daily", handlers.WrapWithLogging("daily", commands.DailyHandler(b)))
	h.Command("/gift", handlers.WrapWithLogging("gift", commands.GiftHandler(b)))
	h.Command("/gift-vip", handlers.WrapWithLogging("gift-vip", commands.GiftVipHandler(b)))
	h.Command("/donate", handlers.WrapWithLogging("donate", commands.DonateHandler(b)))
	h.Command("/fund", handlers.WrapWithLogging("fund", commands.FundInfoHandler(b)))
	h.Command("/fund-list", handlers.WrapWithLogging("fund-list", commands.FundListHandler(b)))
	h.Command("/fund-create", handlers.WrapWithLogging("fund-create", commands.FundCreateHandler(b)))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))
	h.Command("/invite", handlers.WrapWithLogging("invite", commands.InviteHandler(b)))
	h.Command("/invite-stats", handlers.WrapWithLogging("invite-stats", commands.InviteStatsHandler(b)))

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		handlers.VoiceStateListener(b),
		handlers.MemberJoinListener(b),
		handlers.InviteListener(b),
		handlers.InviteDeleteListener(b),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	hourlyReward := cfg.Rewards.VoiceHourly
	if hourlyReward <= 0 {
		hourlyReward = config.DefaultHourlyReward
	}
	voiceCfg := voice.Config{
		StagingChannelID: cfg.Voice.StagingChannelID,
		SessionMinutes:   cfg.Voice.SessionMinutes,
		BreakWarnMinutes: cfg.Voice.BreakWarnMinutes,
		FourHourMinutes:  cfg.Voice.FourHourMinutes,
		HardCapMinutes:   cfg.Voice.HardCapMinutes,
		HourlyReward:     hourlyReward,
		BreakCueID:       cfg.Voice.BreakCue,
		FourHourCueID:    cfg.Voice.FourHourCue,
	}
	if voiceCfg.SessionMinutes <= 0 {
		voiceCfg.SessionMinutes = config.DefaultSessionMinutes
	}
	if voiceCfg.BreakWarnMinutes <= 0 {
		voiceCfg.BreakWarnMinutes = config.DefaultBreakWarnMinutes
	}
	if voiceCfg.FourHourMinutes <= 0 {
		voiceCfg.FourHourMinutes = config.DefaultFourHourMinutes
	}
	if voiceCfg.HardCapMinutes <= 0 {
		voiceCfg.HardCapMinutes = config.DefaultHardCapMinutes
	}

	notifier := voice.NewDiscordNotifier(b.Client, cfg.Bot.GuildID)
	cueBackend := voice.NewDiscordCueBackend(b.Client, cfg.Bot.GuildID, cfg.Voice.CueRoot)
	b.CueService = voice.NewCueService(cueBackend)
	b.Scheduler = voice.NewScheduler(voiceCfg, b.Engine, notifier, b.CueService, voice.NewClock())

	inviteBonus := cfg.Rewards.InviteBonus
	if inviteBonus <= 0 {
		inviteBonus = config.DefaultInviteReward
	}
	b.InviteManager = invites.NewManager(b.Client, cfg.Bot.GuildID,
		b.InviteRepository, b.Engine, inviteBonus, cfg.Voice.WelcomeChannelID)

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := b.Scheduler.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down voice sessions", slog.Any("error", err))
		}
		b.Client.Close(shutdownCtx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}

package studybot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/mdcstudy/studybot/studybot/database"
	"github.com/mdcstudy/studybot/studybot/database/repositories"
	"github.com/mdcstudy/studybot/studybot/economy/ledger"
	"github.com/mdcstudy/studybot/studybot/invites"
	"github.com/mdcstudy/studybot/studybot/voice"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg              Config
	Client           bot.Client
	Paginator        *paginator.Manager
	Version          string
	Commit           string
	DB               *database.DB
	LedgerRepository *repositories.LedgerRepository
	InviteRepository *repositories.InviteRepository
	Engine           *ledger.Engine
	Scheduler        *voice.Scheduler
	CueService       *voice.CueService
	InviteManager    *invites.Manager
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildVoiceStates,
			gateway.IntentGuildMembers,
			gateway.IntentGuildInvites,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(
			cache.FlagGuilds,
			cache.FlagChannels,
			cache.FlagVoiceStates,
			cache.FlagMembers,
		)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("StudyBot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the study hall"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}

	if b.InviteManager != nil {
		if err := b.InviteManager.InitializeCache(ctx); err != nil {
			slog.Error("Failed to initialize invite cache", slog.Any("error", err))
		}
	}
}

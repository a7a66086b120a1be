// Package guildlog is a Discord bot that relays guild events to per-type log channels
// through webhooks.
package guildlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/config"
	"github.com/intrntsrfr/guildlog/database"
	"github.com/intrntsrfr/guildlog/discord"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/kvstore"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Platform is everything the handlers and commands ask of Discord outside the gateway.
// *discord.Client implements it.
type Platform interface {
	eventlog.Provisioner
	User(ctx context.Context, userID string) (*discordgo.User, error)
	ScheduledEvent(ctx context.Context, guildID, eventID string) (*discordgo.GuildScheduledEvent, error)
	ScheduledEvents(ctx context.Context, guildID string) ([]*discordgo.GuildScheduledEvent, error)
	Integrations(ctx context.Context, guildID string) ([]*discordgo.Integration, error)
	Download(ctx context.Context, url string, max int64) ([]byte, string, error)
	Guild(gid string) *discordgo.Guild
	MemberCount(gid string) int
}

type Bot struct {
	Bot      *bot.Bot
	logger   *ZapLogger
	log      *zap.Logger
	service  *eventlog.Service
	store    *kvstore.Store
	platform Platform
	cron     *cron.Cron

	// audit entries already reported by the webhook and integration handlers
	seen sync.Map
}

// NewBot builds the bot around an opened database. The bot owns db from here on and closes it
// in Close.
func NewBot(conf *config.Config, shards int, db database.DB, client *discord.Client, logger *ZapLogger) (*Bot, error) {
	b := bot.NewBotBuilder(conf.Meido(shards)).
		WithDefaultHandlers().
		WithLogger(logger.Named("mio")).
		Build()
	client.WithState(b.Discord)

	log := logger.Zap()
	store, err := kvstore.Open(kvstore.Options{
		Dir:               conf.Storage.CacheDir,
		MessageTTL:        conf.Cache.MessageTTL,
		MaxAttachmentSize: conf.Cache.MaxAttachmentSize,
		Logger:            logger.Badger(),
	}, client, log.Named("kvstore"))
	if err != nil {
		return nil, err
	}

	gb := newBot(eventlog.NewService(db, client, log), store, client, logger)
	gb.Bot = b
	return gb, nil
}

func newBot(service *eventlog.Service, store *kvstore.Store, platform Platform, logger *ZapLogger) *Bot {
	return &Bot{
		logger:   logger,
		log:      logger.Zap().Named("events"),
		service:  service,
		store:    store,
		platform: platform,
	}
}

func (b *Bot) Run(ctx context.Context) error {
	b.registerModules()
	b.registerDiscordHandlers()
	b.registerMioHandlers()
	if err := b.Bot.Run(ctx); err != nil {
		return err
	}
	if err := b.service.Init(ctx); err != nil {
		return fmt.Errorf("init event logging: %w", err)
	}
	return b.startJobs()
}

func (b *Bot) Close() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	b.Bot.Close()
	if err := b.store.Close(); err != nil {
		b.log.Error("failed to close kvstore", zap.Error(err))
	}
	if err := b.service.Shutdown(); err != nil {
		b.log.Error("failed to shut down event logging", zap.Error(err))
	}
}

func (b *Bot) startJobs() error {
	b.cron = cron.New()
	if _, err := b.cron.AddFunc("@hourly", b.collectGarbage); err != nil {
		return err
	}
	if _, err := b.cron.AddFunc("@daily", b.pruneCaches); err != nil {
		return err
	}
	b.cron.Start()
	return nil
}

func (b *Bot) collectGarbage() {
	start := time.Now()
	if err := b.store.RunGC(); err != nil {
		b.log.Error("kvstore gc failed", zap.Error(err))
		return
	}
	b.log.Debug("kvstore gc done", zap.Duration("took", time.Since(start)))
}

// pruneCaches drops cached guild configs and the reported audit entries. Configs are reloaded
// from the database on next use.
func (b *Bot) pruneCaches() {
	n := b.service.Configs.Len()
	b.service.Configs.Purge()
	b.seen.Range(func(k, _ any) bool {
		b.seen.Delete(k)
		return true
	})
	b.log.Info("pruned caches", zap.Int("configs", n))
}

func (b *Bot) registerModules() {
	b.Bot.RegisterModule(NewModule(b))
}

func (b *Bot) registerDiscordHandlers() {
	handlers := []interface{}{
		disconnectHandler(b),
		guildCreateHandler(b),
		guildDeleteHandler(b),
		guildMembersChunkHandler(b),

		guildMemberAddHandler(b),
		guildMemberRemoveHandler(b),
		guildMemberUpdateHandler(b),
		guildBanAddHandler(b),
		guildBanRemoveHandler(b),

		messageCreateHandler(b),
		messageUpdateHandler(b),
		messageDeleteHandler(b),
		messageDeleteBulkHandler(b),
		messageReactionAddHandler(b),
		messageReactionRemoveHandler(b),

		channelCreateHandler(b),
		channelUpdateHandler(b),
		channelDeleteHandler(b),
		threadCreateHandler(b),
		threadUpdateHandler(b),
		threadDeleteHandler(b),

		guildRoleCreateHandler(b),
		guildRoleUpdateHandler(b),
		guildRoleDeleteHandler(b),

		voiceStateUpdateHandler(b),

		guildUpdateHandler(b),
		guildEmojisUpdateHandler(b),
		guildStickersUpdateHandler(b),
		inviteCreateHandler(b),
		inviteDeleteHandler(b),
		webhooksUpdateHandler(b),
		guildIntegrationsUpdateHandler(b),

		stageInstanceCreateHandler(b),
		stageInstanceUpdateHandler(b),
		stageInstanceDeleteHandler(b),
		scheduledEventCreateHandler(b),
		scheduledEventUpdateHandler(b),
		scheduledEventDeleteHandler(b),
		scheduledEventUserAddHandler(b),
		scheduledEventUserRemoveHandler(b),
	}
	for _, h := range handlers {
		b.Bot.Discord.AddEventHandler(h)
	}
}

func (b *Bot) registerMioHandlers() {
	b.Bot.AddHandler(logApplicationCommandPanicked(b))
	b.Bot.AddHandler(logApplicationCommandRan(b))
}

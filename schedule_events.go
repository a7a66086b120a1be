package guildlog

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

func stageInstanceCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.StageInstanceEventCreate) {
	return func(s *discordgo.Session, d *discordgo.StageInstanceEventCreate) {
		if d.StageInstance == nil {
			return
		}
		gid := d.GuildID
		if err := b.store.SetStageInstance(d.StageInstance); err != nil {
			b.log.Error("failed to store stage instance", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionStageInstanceCreate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Stage, format.StageStarted(d.StageInstance, b.channel(ctx, gid, d.ChannelID), a))
	}
}

func stageInstanceUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.StageInstanceEventUpdate) {
	return func(s *discordgo.Session, d *discordgo.StageInstanceEventUpdate) {
		if d.StageInstance == nil {
			return
		}
		gid := d.GuildID
		before, err := b.store.GetStageInstance(gid, d.ID)
		b.snapshotFailed("failed to get stage instance", gid, err)
		if err := b.store.SetStageInstance(d.StageInstance); err != nil {
			b.log.Error("failed to store stage instance", zap.String("guild", gid), zap.Error(err))
		}
		if !format.StageTopicDiffers(before, d.StageInstance) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionStageInstanceUpdate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Stage, format.StageTopicChanged(before, d.StageInstance, b.channel(ctx, gid, d.ChannelID), a))
	}
}

func stageInstanceDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.StageInstanceEventDelete) {
	return func(s *discordgo.Session, d *discordgo.StageInstanceEventDelete) {
		if d.StageInstance == nil {
			return
		}
		gid := d.GuildID
		if err := b.store.DeleteStageInstance(gid, d.ID); err != nil {
			b.log.Error("failed to delete stage instance", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionStageInstanceDelete, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Stage, format.StageEnded(d.StageInstance, b.channel(ctx, gid, d.ChannelID), a))
	}
}

// Scheduled event lifecycle changes are server wide and bypass the ignore lists. Subscriptions
// are filtered by user.

func scheduledEventCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildScheduledEventCreate) {
	return func(s *discordgo.Session, d *discordgo.GuildScheduledEventCreate) {
		if d.GuildScheduledEvent == nil {
			return
		}
		gid := d.GuildID
		if err := b.store.SetScheduledEvent(d.GuildScheduledEvent); err != nil {
			b.log.Error("failed to store scheduled event", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogGuildScheduledEventCreate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Schedule, format.ScheduledEventCreated(d.GuildScheduledEvent, a))
	}
}

func scheduledEventUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildScheduledEventUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildScheduledEventUpdate) {
		if d.GuildScheduledEvent == nil {
			return
		}
		gid := d.GuildID
		before, err := b.store.GetScheduledEvent(gid, d.ID)
		b.snapshotFailed("failed to get scheduled event", gid, err)
		if err := b.store.SetScheduledEvent(d.GuildScheduledEvent); err != nil {
			b.log.Error("failed to store scheduled event", zap.String("guild", gid), zap.Error(err))
		}
		if !format.ScheduledEventChanged(before, d.GuildScheduledEvent) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogGuildScheduledEventUpdate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Schedule, format.ScheduledEventUpdated(before, d.GuildScheduledEvent, a))
	}
}

func scheduledEventDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildScheduledEventDelete) {
	return func(s *discordgo.Session, d *discordgo.GuildScheduledEventDelete) {
		if d.GuildScheduledEvent == nil {
			return
		}
		gid := d.GuildID
		if err := b.store.DeleteScheduledEvent(gid, d.ID); err != nil {
			b.log.Error("failed to delete scheduled event", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogGuildScheduledEventDelete, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Schedule, format.ScheduledEventDeleted(d.GuildScheduledEvent, a))
	}
}

func scheduledEventUserAddHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildScheduledEventUserAdd) {
	return func(s *discordgo.Session, d *discordgo.GuildScheduledEventUserAdd) {
		b.subscriptionChanged(d.GuildID, d.GuildScheduledEventID, d.UserID, true)
	}
}

func scheduledEventUserRemoveHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildScheduledEventUserRemove) {
	return func(s *discordgo.Session, d *discordgo.GuildScheduledEventUserRemove) {
		b.subscriptionChanged(d.GuildID, d.GuildScheduledEventID, d.UserID, false)
	}
}

func (b *Bot) subscriptionChanged(gid, eventID, uid string, subscribed bool) {
	ctx, cancel := b.eventContext()
	defer cancel()
	if b.ignored(ctx, gid, eventlog.Subject{UserID: uid}) {
		return
	}

	ev, err := b.store.GetScheduledEvent(gid, eventID)
	b.snapshotFailed("failed to get scheduled event", gid, err)
	if ev == nil {
		if ev, err = b.platform.ScheduledEvent(ctx, gid, eventID); err != nil {
			b.log.Debug("failed to fetch scheduled event", zap.String("event", eventID), zap.Error(err))
		}
	}
	b.service.Dispatch(ctx, gid, eventlog.Schedule, format.ScheduledEventSubscription(ev, b.user(ctx, gid, uid), uid, subscribed))
}

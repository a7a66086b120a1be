package guildlog

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

func (b *Bot) saveChannel(ch *discordgo.Channel) {
	if err := b.store.SetChannel(ch); err != nil {
		b.log.Error("failed to store channel", zap.String("guild", ch.GuildID), zap.Error(err))
	}
}

// cachedChannel returns the snapshot of cid, or fallback when there is none.
func (b *Bot) cachedChannel(gid, cid string, fallback *discordgo.Channel) *discordgo.Channel {
	ch, err := b.store.GetChannel(gid, cid)
	if err != nil {
		b.snapshotFailed("failed to get channel", gid, err)
		return fallback
	}
	return ch
}

func channelCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.ChannelCreate) {
	return func(s *discordgo.Session, d *discordgo.ChannelCreate) {
		if d.Channel == nil || d.GuildID == "" || d.IsThread() {
			return
		}
		b.saveChannel(d.Channel)

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, d.GuildID) {
			return
		}
		a := b.attribute(ctx, d.GuildID, discordgo.AuditLogActionChannelCreate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, d.GuildID, eventlog.Channel, format.ChannelCreated(d.Channel, a))
	}
}

// channelUpdateHandler attributes both setting changes and permission overwrite changes.
func channelUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.ChannelUpdate) {
	return func(s *discordgo.Session, d *discordgo.ChannelUpdate) {
		if d.Channel == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID
		before := b.cachedChannel(gid, d.ID, nil)
		b.saveChannel(d.Channel)
		if !format.ChannelChanged(before, d.Channel) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ID}) {
			return
		}
		a := b.service.Auditor.LookupActions(ctx, gid, eventlog.WindowDefault, eventlog.TargetIs(d.ID),
			discordgo.AuditLogActionChannelUpdate,
			discordgo.AuditLogActionChannelOverwriteCreate,
			discordgo.AuditLogActionChannelOverwriteUpdate,
			discordgo.AuditLogActionChannelOverwriteDelete,
		)
		b.service.Dispatch(ctx, gid, eventlog.Channel, format.ChannelUpdated(before, d.Channel, a))
	}
}

func channelDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.ChannelDelete) {
	return func(s *discordgo.Session, d *discordgo.ChannelDelete) {
		if d.Channel == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID
		ch := b.cachedChannel(gid, d.ID, d.Channel)
		if err := b.store.DeleteChannel(gid, d.ID); err != nil {
			b.log.Error("failed to delete channel", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionChannelDelete, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Channel, format.ChannelDeleted(ch, a))
	}
}

// threadCreateHandler only reports new threads; threads that merely became visible are cached.
func threadCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.ThreadCreate) {
	return func(s *discordgo.Session, d *discordgo.ThreadCreate) {
		if d.Channel == nil || d.GuildID == "" {
			return
		}
		b.saveChannel(d.Channel)
		if !d.NewlyCreated {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		gid := d.GuildID
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ParentID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionThreadCreate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Thread, format.ThreadCreated(d.Channel, b.channel(ctx, gid, d.ParentID), a))
	}
}

func threadUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.ThreadUpdate) {
	return func(s *discordgo.Session, d *discordgo.ThreadUpdate) {
		if d.Channel == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID
		before := b.cachedChannel(gid, d.ID, d.BeforeUpdate)
		b.saveChannel(d.Channel)
		if !format.ThreadChanged(before, d.Channel) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ParentID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionThreadUpdate, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Thread, format.ThreadUpdated(before, d.Channel, b.channel(ctx, gid, d.ParentID), a))
	}
}

// threadDeleteHandler reports from the snapshot, since the event only names the thread.
func threadDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.ThreadDelete) {
	return func(s *discordgo.Session, d *discordgo.ThreadDelete) {
		if d.Channel == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID
		th := b.cachedChannel(gid, d.ID, d.Channel)
		if err := b.store.DeleteChannel(gid, d.ID); err != nil {
			b.log.Error("failed to delete thread", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ParentID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionThreadDelete, d.ID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Thread, format.ThreadDeleted(th, b.channel(ctx, gid, d.ParentID), a))
	}
}

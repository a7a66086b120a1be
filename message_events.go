package guildlog

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"github.com/intrntsrfr/guildlog/kvstore"
	"go.uber.org/zap"
)

// messageCreateHandler caches guild messages, bot messages included, except the posts of the log
// webhooks. Attachments are only downloaded for guilds that log.
func messageCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, d *discordgo.MessageCreate) {
		if d.Message == nil || d.GuildID == "" || d.Author == nil {
			return
		}
		ctx, cancel := b.eventContext()
		defer cancel()

		cfg, err := b.service.Configs.Get(ctx, d.GuildID)
		if err != nil {
			b.log.Warn("failed to load guild config", zap.String("guild", d.GuildID), zap.Error(err))
			return
		}
		if cfg.OwnsWebhook(d.WebhookID) {
			return
		}
		msg := &kvstore.Message{Message: d.Message}
		if cfg.Enabled {
			msg = b.store.NewMessage(ctx, d.Message)
		}
		if err := b.store.SetMessage(msg); err != nil {
			b.log.Error("failed to store message", zap.String("guild", d.GuildID), zap.Error(err))
		}
	}
}

func messageUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageUpdate) {
	return func(s *discordgo.Session, d *discordgo.MessageUpdate) {
		if d.Message == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID

		cached, err := b.store.GetMessage(gid, d.ChannelID, d.ID)
		b.snapshotFailed("failed to get message", gid, err)
		var before *discordgo.Message
		switch {
		case cached != nil:
			before = cached.Message
		case d.BeforeUpdate != nil:
			before = d.BeforeUpdate
			cached = &kvstore.Message{Message: before}
		}
		if before == nil || before.Author == nil {
			return
		}
		ctx, cancel := b.eventContext()
		defer cancel()
		if b.fromLogWebhook(ctx, gid, before) {
			return
		}

		// embed unfurls arrive without an author and only carry the embeds
		after := *before
		after.GuildID = gid
		if d.Author != nil {
			after.Content = d.Content
			after.EditedTimestamp = d.EditedTimestamp
			after.Attachments = d.Attachments
		}
		if d.Embeds != nil {
			after.Embeds = d.Embeds
		}
		if err := b.store.SetMessage(&kvstore.Message{Message: &after, Attachments: cached.Attachments}); err != nil {
			b.log.Error("failed to store message", zap.String("guild", gid), zap.Error(err))
		}

		subject := eventlog.Subject{
			UserID:    before.Author.ID,
			RoleIDs:   b.memberRoles(gid, before.Author.ID, d.Member),
			ChannelID: d.ChannelID,
		}
		if b.ignored(ctx, gid, subject) {
			return
		}
		cfg, err := b.service.Configs.Get(ctx, gid)
		if err != nil {
			return
		}
		b.service.Dispatch(ctx, gid, eventlog.Message, format.MessageEdited(before, &after, b.channel(ctx, gid, d.ChannelID), cfg.IgnoreEmbeds))
	}
}

// messageDeleteHandler re-hosts the cached attachments of the deleted message.
func messageDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageDelete) {
	return func(s *discordgo.Session, d *discordgo.MessageDelete) {
		if d.Message == nil || d.GuildID == "" {
			return
		}
		gid := d.GuildID

		var msg *discordgo.Message
		var files []eventlog.File
		cached, err := b.store.GetMessage(gid, d.ChannelID, d.ID)
		b.snapshotFailed("failed to get message", gid, err)
		switch {
		case cached != nil:
			msg = cached.Message
			files = cached.Files()
		case d.BeforeDelete != nil:
			msg = d.BeforeDelete
		}
		if msg == nil || msg.Author == nil {
			return
		}
		if msg.GuildID == "" {
			m := *msg
			m.GuildID = gid
			msg = &m
		}
		if err := b.store.DeleteMessage(msg); err != nil {
			b.log.Error("failed to delete message", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.fromLogWebhook(ctx, gid, msg) {
			return
		}
		subject := eventlog.Subject{
			UserID:    msg.Author.ID,
			RoleIDs:   b.memberRoles(gid, msg.Author.ID, msg.Member),
			ChannelID: msg.ChannelID,
		}
		if b.ignored(ctx, gid, subject) {
			return
		}
		cfg, err := b.service.Configs.Get(ctx, gid)
		if err != nil {
			return
		}
		b.service.Dispatch(ctx, gid, eventlog.Message, format.MessageDeleted(msg, b.channel(ctx, gid, msg.ChannelID), files, cfg.IgnoreEmbeds))
	}
}

func messageDeleteBulkHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageDeleteBulk) {
	return func(s *discordgo.Session, d *discordgo.MessageDeleteBulk) {
		if d.GuildID == "" {
			return
		}
		gid := d.GuildID
		cached := b.store.GetMessages(gid, d.ChannelID, d.Messages)
		msgs := make([]*discordgo.Message, 0, len(cached))
		for _, m := range cached {
			msgs = append(msgs, m.Message)
			if err := b.store.DeleteMessage(m.Message); err != nil {
				b.log.Error("failed to delete message", zap.String("guild", gid), zap.Error(err))
			}
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionMessageBulkDelete, d.ChannelID, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Message, format.MessagesBulkDeleted(d.ChannelID, len(d.Messages), msgs, a))
	}
}

func messageReactionAddHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageReactionAdd) {
	return func(s *discordgo.Session, d *discordgo.MessageReactionAdd) {
		if d.MessageReaction == nil {
			return
		}
		var u *discordgo.User
		if d.Member != nil {
			u = d.Member.User
		}
		b.reactionChanged(d.MessageReaction, u, true)
	}
}

func messageReactionRemoveHandler(b *Bot) func(*discordgo.Session, *discordgo.MessageReactionRemove) {
	return func(s *discordgo.Session, d *discordgo.MessageReactionRemove) {
		if d.MessageReaction == nil {
			return
		}
		b.reactionChanged(d.MessageReaction, nil, false)
	}
}

func (b *Bot) reactionChanged(r *discordgo.MessageReaction, u *discordgo.User, added bool) {
	if r.GuildID == "" {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()
	if b.ignored(ctx, r.GuildID, eventlog.Subject{UserID: r.UserID, ChannelID: r.ChannelID}) {
		return
	}
	if u == nil {
		u = b.user(ctx, r.GuildID, r.UserID)
	}
	if u != nil && u.Bot {
		return
	}
	b.service.Dispatch(ctx, r.GuildID, eventlog.Message, format.ReactionChanged(r, u, added))
}

// fromLogWebhook reports whether m was posted through one of the guild's log webhooks.
func (b *Bot) fromLogWebhook(ctx context.Context, gid string, m *discordgo.Message) bool {
	if m.WebhookID == "" {
		return false
	}
	cfg, err := b.service.Configs.Get(ctx, gid)
	if err != nil {
		return false
	}
	return cfg.OwnsWebhook(m.WebhookID)
}

package guildlog

import (
	"github.com/bwmarrin/discordgo"
	"github.com/bytedance/sonic"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

// emojiLimit bounds the download of a deleted emoji or sticker image.
const emojiLimit = 1024 * 1024

func guildUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildUpdate) {
		if d.Guild == nil {
			return
		}
		gid := d.ID
		before, err := b.store.GetGuild(gid)
		b.snapshotFailed("failed to get guild", gid, err)
		if err := b.store.SetGuild(d.Guild); err != nil {
			b.log.Error("failed to store guild", zap.String("guild", gid), zap.Error(err))
		}
		if !format.GuildChanged(before, d.Guild) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionGuildUpdate, gid, eventlog.WindowDefault)
		b.service.Dispatch(ctx, gid, eventlog.Server, format.GuildUpdated(before, d.Guild, a))
	}
}

func inviteCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.InviteCreate) {
	return func(s *discordgo.Session, d *discordgo.InviteCreate) {
		if d.Invite == nil {
			return
		}
		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, d.GuildID, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		b.service.Dispatch(ctx, d.GuildID, eventlog.Server, format.InviteCreated(d.Invite, d.ChannelID))
	}
}

func inviteDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.InviteDelete) {
	return func(s *discordgo.Session, d *discordgo.InviteDelete) {
		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, d.GuildID, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}
		b.service.Dispatch(ctx, d.GuildID, eventlog.Server, format.InviteDeleted(d.Code, d.ChannelID))
	}
}

// guildEmojisUpdateHandler diffs the emoji list against the last seen one. A deleted emoji's
// image is re-hosted with the report, as the CDN copy goes away.
func guildEmojisUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildEmojisUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildEmojisUpdate) {
		gid := d.GuildID
		before, err := b.store.GetEmojis(gid)
		b.snapshotFailed("failed to get emojis", gid, err)
		if err := b.store.SetEmojis(gid, d.Emojis); err != nil {
			b.log.Error("failed to store emojis", zap.String("guild", gid), zap.Error(err))
		}
		if before == nil {
			return
		}
		changes := format.DiffEmojis(before, d.Emojis)
		if changes.Empty() {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		for _, e := range changes.Created {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionEmojiCreate, e.ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.EmojiCreated(e, a))
		}
		for _, e := range changes.Deleted {
			image, _, err := b.platform.Download(ctx, format.EmojiURL(e), emojiLimit)
			if err != nil {
				b.log.Debug("failed to download emoji", zap.String("emoji", e.ID), zap.Error(err))
			}
			a := b.attribute(ctx, gid, discordgo.AuditLogActionEmojiDelete, e.ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.EmojiDeleted(e, image, a))
		}
		for _, pair := range changes.Renamed {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionEmojiUpdate, pair[1].ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.EmojiRenamed(pair[0], pair[1], a))
		}
	}
}

// stickersUpdate is the GUILD_STICKERS_UPDATE payload, which discordgo has no type for.
type stickersUpdate struct {
	GuildID  string               `json:"guild_id"`
	Stickers []*discordgo.Sticker `json:"stickers"`
}

// guildStickersUpdateHandler diffs the sticker list against the last seen one, the same way
// emojis are handled. It reads the raw gateway event.
func guildStickersUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.Event) {
	return func(s *discordgo.Session, e *discordgo.Event) {
		if e.Type != "GUILD_STICKERS_UPDATE" {
			return
		}
		var d stickersUpdate
		if err := sonic.ConfigStd.Unmarshal(e.RawData, &d); err != nil {
			b.log.Warn("failed to decode stickers update", zap.Error(err))
			return
		}
		gid := d.GuildID
		before, err := b.store.GetStickers(gid)
		b.snapshotFailed("failed to get stickers", gid, err)
		if err := b.store.SetStickers(gid, d.Stickers); err != nil {
			b.log.Error("failed to store stickers", zap.String("guild", gid), zap.Error(err))
		}
		if err != nil {
			return
		}
		changes := format.DiffStickers(before, d.Stickers)
		if changes.Empty() {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		for _, st := range changes.Created {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionStickerCreate, st.ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.StickerCreated(st, a))
		}
		for _, st := range changes.Deleted {
			file, _, err := b.platform.Download(ctx, format.StickerURL(st), emojiLimit)
			if err != nil {
				b.log.Debug("failed to download sticker", zap.String("sticker", st.ID), zap.Error(err))
			}
			a := b.attribute(ctx, gid, discordgo.AuditLogActionStickerDelete, st.ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.StickerDeleted(st, file, a))
		}
		for _, pair := range changes.Updated {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionStickerUpdate, pair[1].ID, eventlog.WindowDefault)
			b.service.Dispatch(ctx, gid, eventlog.Server, format.StickerUpdated(pair[0], pair[1], a))
		}
	}
}

// webhooksUpdateHandler reports webhook changes made by anyone but this bot. The event only
// names the channel, so the change itself comes from the audit log.
func webhooksUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.WebhooksUpdate) {
	return func(s *discordgo.Session, d *discordgo.WebhooksUpdate) {
		ctx, cancel := b.eventContext()
		defer cancel()
		gid := d.GuildID
		if b.ignored(ctx, gid, eventlog.Subject{ChannelID: d.ChannelID}) {
			return
		}

		a := b.service.Auditor.LookupActions(ctx, gid, eventlog.WindowDefault, nil,
			discordgo.AuditLogActionWebhookCreate,
			discordgo.AuditLogActionWebhookUpdate,
			discordgo.AuditLogActionWebhookDelete,
		)
		if !a.Known() || b.service.IsSelf(ctx, a.UserID) || !b.firstReport(a.Entry) {
			return
		}

		var hook *discordgo.Webhook
		if *a.Entry.ActionType != discordgo.AuditLogActionWebhookDelete {
			hooks, err := b.platform.ChannelWebhooks(ctx, d.ChannelID)
			if err != nil {
				b.log.Debug("failed to list webhooks", zap.String("channel", d.ChannelID), zap.Error(err))
			}
			for _, h := range hooks {
				if h.ID == a.Entry.TargetID {
					hook = h
				}
			}
		}
		b.service.Dispatch(ctx, gid, eventlog.Webhook, format.WebhookChanged(a, hook, d.ChannelID))
	}
}

// guildIntegrationsUpdateHandler reports bots and integrations being added or removed.
func guildIntegrationsUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildIntegrationsUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildIntegrationsUpdate) {
		ctx, cancel := b.eventContext()
		defer cancel()
		gid := d.GuildID
		if !b.active(ctx, gid) {
			return
		}

		a := b.service.Auditor.LookupActions(ctx, gid, eventlog.WindowDefault, nil,
			discordgo.AuditLogActionBotAdd,
			discordgo.AuditLogActionIntegrationCreate,
			discordgo.AuditLogActionIntegrationDelete,
		)
		if !a.Known() || b.ignored(ctx, gid, eventlog.Subject{UserID: a.UserID}) || !b.firstReport(a.Entry) {
			return
		}

		var app *discordgo.User
		var integration *discordgo.Integration
		switch *a.Entry.ActionType {
		case discordgo.AuditLogActionBotAdd:
			app = b.user(ctx, gid, a.Entry.TargetID)
		case discordgo.AuditLogActionIntegrationCreate:
			list, err := b.platform.Integrations(ctx, gid)
			if err != nil {
				b.log.Debug("failed to list integrations", zap.String("guild", gid), zap.Error(err))
			}
			for _, in := range list {
				if in.ID == a.Entry.TargetID {
					integration = in
					app = in.User
				}
			}
		}
		b.service.Dispatch(ctx, gid, eventlog.Application, format.ApplicationChanged(a, app, integration))
	}
}

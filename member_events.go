package guildlog

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

// banLogWindow is how far back a ban collects the user's messages.
const banLogWindow = 24 * time.Hour

func guildMemberAddHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberAdd) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberAdd) {
		if d.Member == nil || d.User == nil {
			return
		}
		if err := b.store.SetMember(d.Member); err != nil {
			b.log.Error("failed to store member", zap.String("guild", d.GuildID), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, d.GuildID, eventlog.Subject{UserID: d.User.ID}) {
			return
		}

		var addedBy eventlog.Attribution
		if d.User.Bot {
			addedBy = b.attribute(ctx, d.GuildID, discordgo.AuditLogActionBotAdd, d.User.ID, eventlog.WindowDefault)
		}
		b.service.Dispatch(ctx, d.GuildID, eventlog.Member, format.MemberJoined(d.Member, b.platform.MemberCount(d.GuildID), addedBy))
	}
}

// guildMemberRemoveHandler reports a leave, or a kick when the audit log shows one.
func guildMemberRemoveHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberRemove) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberRemove) {
		if d.Member == nil || d.User == nil {
			return
		}
		gid, uid := d.GuildID, d.User.ID
		cached := b.member(gid, uid)
		if err := b.store.DeleteMember(gid, uid); err != nil {
			b.log.Error("failed to delete member", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		subject := eventlog.Subject{UserID: uid}
		if cached != nil {
			subject.RoleIDs = cached.Roles
		}
		if b.ignored(ctx, gid, subject) {
			return
		}

		if a := b.attribute(ctx, gid, discordgo.AuditLogActionMemberKick, uid, eventlog.WindowModeration); a.Known() {
			b.service.Dispatch(ctx, gid, eventlog.Moderation, format.MemberKicked(d.User, cached, a))
			return
		}
		b.service.Dispatch(ctx, gid, eventlog.Member, format.MemberLeft(d.User, cached, b.platform.MemberCount(gid)))
	}
}

// guildMemberUpdateHandler covers nicknames, roles and timeouts. A role grant carrying
// dangerous permissions also goes to the alert channel.
func guildMemberUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMemberUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildMemberUpdate) {
		if d.Member == nil || d.User == nil {
			return
		}
		gid, uid := d.GuildID, d.User.ID
		after := d.Member
		before := b.member(gid, uid)
		if before == nil {
			before = d.BeforeUpdate
		}
		if err := b.store.SetMember(after); err != nil {
			b.log.Error("failed to store member", zap.String("guild", gid), zap.Error(err))
		}
		if before == nil {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{UserID: uid}) {
			return
		}

		if before.Nick != after.Nick {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionMemberUpdate, uid, eventlog.WindowMember)
			b.service.Dispatch(ctx, gid, eventlog.Member, format.NicknameChanged(before, after, a))
		}

		added, removed := format.RoleDiff(before.Roles, after.Roles)
		if len(added) > 0 || len(removed) > 0 {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionMemberRoleUpdate, uid, eventlog.WindowMember)
			b.service.Dispatch(ctx, gid, eventlog.Member, format.MemberRolesChanged(before, after, a))
			for _, rid := range added {
				if r := b.role(gid, rid); r != nil {
					b.service.Dispatch(ctx, gid, eventlog.Alert, format.HighRiskRoleGranted(after, r, a))
				}
			}
		}

		if format.TimeoutTransitioned(before, after) {
			a := b.attribute(ctx, gid, discordgo.AuditLogActionMemberUpdate, uid, eventlog.WindowMember)
			b.service.Dispatch(ctx, gid, eventlog.Moderation, format.TimeoutChanged(before, after, a))
		}
	}
}

// guildBanAddHandler attaches the user's cached messages of the last day to the ban report.
func guildBanAddHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildBanAdd) {
	return func(s *discordgo.Session, d *discordgo.GuildBanAdd) {
		if d.User == nil {
			return
		}
		gid, uid := d.GuildID, d.User.ID

		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, gid, eventlog.Subject{UserID: uid}) {
			return
		}

		inGuild := b.member(gid, uid) != nil
		logged, err := b.store.GetMessageLog(gid, uid, time.Now().Add(-banLogWindow))
		if err != nil {
			b.log.Error("failed to get message log", zap.String("guild", gid), zap.Error(err))
		}
		history := make([]*discordgo.Message, 0, len(logged))
		for _, m := range logged {
			history = append(history, m.Message)
		}

		a := b.attribute(ctx, gid, discordgo.AuditLogActionMemberBanAdd, uid, eventlog.WindowModeration)
		b.service.Dispatch(ctx, gid, eventlog.Moderation, format.MemberBanned(d.User, inGuild, a, history, b.channelName(ctx, gid)))
	}
}

func guildBanRemoveHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildBanRemove) {
	return func(s *discordgo.Session, d *discordgo.GuildBanRemove) {
		if d.User == nil {
			return
		}
		ctx, cancel := b.eventContext()
		defer cancel()
		if b.ignored(ctx, d.GuildID, eventlog.Subject{UserID: d.User.ID}) {
			return
		}
		a := b.attribute(ctx, d.GuildID, discordgo.AuditLogActionMemberBanRemove, d.User.ID, eventlog.WindowModeration)
		b.service.Dispatch(ctx, d.GuildID, eventlog.Moderation, format.MemberUnbanned(d.User, a))
	}
}

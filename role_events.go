package guildlog

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

// Role events are server wide and bypass the ignore lists.

func (b *Bot) saveRole(gid string, r *discordgo.Role) {
	if err := b.store.SetRole(gid, r); err != nil {
		b.log.Error("failed to store role", zap.String("guild", gid), zap.Error(err))
	}
}

func guildRoleCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildRoleCreate) {
	return func(s *discordgo.Session, d *discordgo.GuildRoleCreate) {
		if d.GuildRole == nil || d.Role == nil {
			return
		}
		b.saveRole(d.GuildID, d.Role)

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, d.GuildID) {
			return
		}
		a := b.attribute(ctx, d.GuildID, discordgo.AuditLogActionRoleCreate, d.Role.ID, eventlog.WindowRole)
		b.service.Dispatch(ctx, d.GuildID, eventlog.Role, format.RoleCreated(d.Role, a))
	}
}

// guildRoleUpdateHandler also alerts when the update grants dangerous permissions.
func guildRoleUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildRoleUpdate) {
	return func(s *discordgo.Session, d *discordgo.GuildRoleUpdate) {
		if d.GuildRole == nil || d.Role == nil {
			return
		}
		gid := d.GuildID
		before, err := b.store.GetRole(gid, d.Role.ID)
		b.snapshotFailed("failed to get role", gid, err)
		b.saveRole(gid, d.Role)
		if !format.RoleChanged(before, d.Role) {
			return
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionRoleUpdate, d.Role.ID, eventlog.WindowRole)
		b.service.Dispatch(ctx, gid, eventlog.Role, format.RoleUpdated(before, d.Role, a))
		b.service.Dispatch(ctx, gid, eventlog.Alert, format.CriticalPermissionsGranted(before, d.Role, a))
	}
}

func guildRoleDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildRoleDelete) {
	return func(s *discordgo.Session, d *discordgo.GuildRoleDelete) {
		gid := d.GuildID
		r, err := b.store.GetRole(gid, d.RoleID)
		b.snapshotFailed("failed to get role", gid, err)
		if r == nil {
			r = &discordgo.Role{ID: d.RoleID}
		}
		if err := b.store.DeleteRole(gid, d.RoleID); err != nil {
			b.log.Error("failed to delete role", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		if !b.active(ctx, gid) {
			return
		}
		a := b.attribute(ctx, gid, discordgo.AuditLogActionRoleDelete, d.RoleID, eventlog.WindowRole)
		b.service.Dispatch(ctx, gid, eventlog.Role, format.RoleDeleted(r, a))
	}
}

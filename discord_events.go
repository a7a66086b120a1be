package guildlog

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/kvstore"
	"go.uber.org/zap"
)

// eventTimeout bounds the work one gateway event may cause, audit lookups and deliveries included.
const eventTimeout = 30 * time.Second

func (b *Bot) eventContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), eventTimeout)
}

// active reports whether gid has logging enabled. Handlers without an ignore filter check it
// before spending an audit log request.
func (b *Bot) active(ctx context.Context, gid string) bool {
	if gid == "" {
		return false
	}
	cfg, err := b.service.Configs.Get(ctx, gid)
	if err != nil {
		b.log.Warn("failed to load guild config", zap.String("guild", gid), zap.Error(err))
		return false
	}
	return cfg.Enabled
}

func (b *Bot) ignored(ctx context.Context, gid string, s eventlog.Subject) bool {
	if gid == "" {
		return true
	}
	return b.service.IsIgnored(ctx, gid, s)
}

func (b *Bot) attribute(ctx context.Context, gid string, action discordgo.AuditLogAction, targetID string, window time.Duration) eventlog.Attribution {
	return b.service.Auditor.Target(ctx, gid, action, targetID, window)
}

// firstReport reports whether the audit entry has not been reported before.
func (b *Bot) firstReport(e *discordgo.AuditLogEntry) bool {
	if e == nil {
		return false
	}
	_, loaded := b.seen.LoadOrStore(e.ID, struct{}{})
	return !loaded
}

// snapshotFailed logs a snapshot cache error. Missing snapshots are expected and not logged.
func (b *Bot) snapshotFailed(msg string, gid string, err error) {
	if err == nil || errors.Is(err, kvstore.ErrNotFound) {
		return
	}
	b.log.Error(msg, zap.String("guild", gid), zap.Error(err))
}

// channel returns the last seen version of a channel, asking Discord when it was never seen.
func (b *Bot) channel(ctx context.Context, gid, cid string) *discordgo.Channel {
	if cid == "" {
		return nil
	}
	ch, err := b.store.GetChannel(gid, cid)
	if err == nil {
		return ch
	}
	b.snapshotFailed("failed to get channel", gid, err)

	ch, err = b.platform.Channel(ctx, cid)
	if err != nil {
		b.log.Debug("failed to fetch channel", zap.String("channel", cid), zap.Error(err))
		return nil
	}
	return ch
}

func (b *Bot) channelName(ctx context.Context, gid string) func(string) string {
	return func(cid string) string {
		if ch := b.channel(ctx, gid, cid); ch != nil {
			return ch.Name
		}
		return cid
	}
}

func (b *Bot) role(gid, rid string) *discordgo.Role {
	r, err := b.store.GetRole(gid, rid)
	if err == nil {
		return r
	}
	b.snapshotFailed("failed to get role", gid, err)
	if g := b.platform.Guild(gid); g != nil {
		for _, r := range g.Roles {
			if r.ID == rid {
				return r
			}
		}
	}
	return nil
}

// member returns the cached member, or nil.
func (b *Bot) member(gid, uid string) *discordgo.Member {
	m, err := b.store.GetMember(gid, uid)
	if err != nil {
		b.snapshotFailed("failed to get member", gid, err)
		return nil
	}
	return m
}

func (b *Bot) user(ctx context.Context, gid, uid string) *discordgo.User {
	if m := b.member(gid, uid); m != nil && m.User != nil {
		return m.User
	}
	u, err := b.platform.User(ctx, uid)
	if err != nil {
		b.log.Debug("failed to fetch user", zap.String("user", uid), zap.Error(err))
		return nil
	}
	return u
}

// memberRoles returns the roles of uid, preferring the member delivered with the event.
func (b *Bot) memberRoles(gid, uid string, m *discordgo.Member) []string {
	if m != nil && len(m.Roles) > 0 {
		return m.Roles
	}
	if cached := b.member(gid, uid); cached != nil {
		return cached.Roles
	}
	return nil
}

func disconnectHandler(b *Bot) func(*discordgo.Session, *discordgo.Disconnect) {
	return func(s *discordgo.Session, d *discordgo.Disconnect) {
		b.log.Info("disconnected")
	}
}

// guildCreateHandler seeds the snapshot cache and makes sure the guild has a config record.
func guildCreateHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildCreate) {
	return func(s *discordgo.Session, d *discordgo.GuildCreate) {
		if d.Guild == nil || d.Unavailable {
			return
		}
		ctx, cancel := b.eventContext()
		defer cancel()

		events, err := b.platform.ScheduledEvents(ctx, d.ID)
		if err != nil {
			b.log.Debug("failed to fetch scheduled events", zap.String("guild", d.ID), zap.Error(err))
		}
		if err := b.store.SeedGuild(d.Guild, events); err != nil {
			b.log.Error("failed to seed guild", zap.String("guild", d.ID), zap.Error(err))
		}
		if _, err := b.service.Configs.Get(ctx, d.ID); err != nil {
			b.log.Error("failed to load guild config", zap.String("guild", d.ID), zap.Error(err))
		}
	}
}

// guildDeleteHandler forgets a guild the bot left. Outages are ignored; the stored config is kept.
func guildDeleteHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildDelete) {
	return func(s *discordgo.Session, d *discordgo.GuildDelete) {
		if d.Guild == nil || d.Unavailable {
			return
		}
		if err := b.store.ForgetGuild(d.ID); err != nil {
			b.log.Error("failed to drop guild snapshots", zap.String("guild", d.ID), zap.Error(err))
		}
		b.service.Configs.Forget(d.ID)
		b.log.Info("left guild", zap.String("guild", d.ID))
	}
}

func guildMembersChunkHandler(b *Bot) func(*discordgo.Session, *discordgo.GuildMembersChunk) {
	return func(s *discordgo.Session, d *discordgo.GuildMembersChunk) {
		if err := b.store.SetMembers(d.GuildID, d.Members); err != nil {
			b.log.Error("failed to store members", zap.String("guild", d.GuildID), zap.Error(err))
		}
	}
}

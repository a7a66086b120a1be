package guildlog

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"go.uber.org/zap"
)

// voiceStateUpdateHandler reports joins, leaves, moves and mute or stream changes. The gateway
// cache does not track voice, so the previous state comes from the snapshot cache.
func voiceStateUpdateHandler(b *Bot) func(*discordgo.Session, *discordgo.VoiceStateUpdate) {
	return func(s *discordgo.Session, d *discordgo.VoiceStateUpdate) {
		if d.VoiceState == nil || d.GuildID == "" {
			return
		}
		gid, uid := d.GuildID, d.UserID
		before, err := b.store.GetVoiceState(gid, uid)
		b.snapshotFailed("failed to get voice state", gid, err)
		if before == nil {
			before = d.BeforeUpdate
		}
		if err := b.store.SetVoiceState(d.VoiceState); err != nil {
			b.log.Error("failed to store voice state", zap.String("guild", gid), zap.Error(err))
		}

		ctx, cancel := b.eventContext()
		defer cancel()
		cfg, err := b.service.Configs.Get(ctx, gid)
		if err != nil {
			b.log.Warn("failed to load guild config", zap.String("guild", gid), zap.Error(err))
			return
		}
		if !cfg.Enabled {
			return
		}
		if cfg.VoiceLogIgnore {
			channelID := d.ChannelID
			if channelID == "" && before != nil {
				channelID = before.ChannelID
			}
			subject := eventlog.Subject{
				UserID:    uid,
				RoleIDs:   b.memberRoles(gid, uid, d.Member),
				ChannelID: channelID,
			}
			if cfg.Ignores(subject) {
				return
			}
		}

		var u *discordgo.User
		if d.Member != nil {
			u = d.Member.User
		}
		if u == nil {
			u = b.user(ctx, gid, uid)
		}
		channel := func(id string) *discordgo.Channel {
			return b.channel(ctx, gid, id)
		}
		occupancy := func(id string) int {
			return b.store.VoiceOccupancy(gid, id)
		}
		b.service.Dispatch(ctx, gid, eventlog.Voice, format.VoiceStateChanged(u, before, d.VoiceState, channel, occupancy))
	}
}

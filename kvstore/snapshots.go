package kvstore

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

func memberKey(gid, uid string) string  { return fmt.Sprintf("member:%s:%s", gid, uid) }
func channelKey(gid, cid string) string { return fmt.Sprintf("channel:%s:%s", gid, cid) }
func roleKey(gid, rid string) string    { return fmt.Sprintf("role:%s:%s", gid, rid) }
func guildKey(gid string) string        { return fmt.Sprintf("guild:%s:", gid) }
func emojisKey(gid string) string       { return fmt.Sprintf("emojis:%s:", gid) }
func stickersKey(gid string) string     { return fmt.Sprintf("stickers:%s:", gid) }
func voiceKey(gid, uid string) string   { return fmt.Sprintf("voice:%s:%s", gid, uid) }
func stageKey(gid, id string) string    { return fmt.Sprintf("stage:%s:%s", gid, id) }
func eventKey(gid, id string) string    { return fmt.Sprintf("event:%s:%s", gid, id) }

func (s *Store) SetMember(m *discordgo.Member) error {
	if m == nil || m.User == nil {
		return nil
	}
	return s.set(memberKey(m.GuildID, m.User.ID), m)
}

func (s *Store) GetMember(gid, uid string) (*discordgo.Member, error) {
	return get[discordgo.Member](s, memberKey(gid, uid))
}

func (s *Store) DeleteMember(gid, uid string) error {
	return s.delete(memberKey(gid, uid))
}

func (s *Store) SetChannel(ch *discordgo.Channel) error {
	stored := *ch
	stored.Messages = nil
	stored.Members = nil
	return s.set(channelKey(ch.GuildID, ch.ID), &stored)
}

func (s *Store) GetChannel(gid, cid string) (*discordgo.Channel, error) {
	return get[discordgo.Channel](s, channelKey(gid, cid))
}

func (s *Store) DeleteChannel(gid, cid string) error {
	return s.delete(channelKey(gid, cid))
}

func (s *Store) SetRole(gid string, r *discordgo.Role) error {
	return s.set(roleKey(gid, r.ID), r)
}

func (s *Store) GetRole(gid, rid string) (*discordgo.Role, error) {
	return get[discordgo.Role](s, roleKey(gid, rid))
}

func (s *Store) DeleteRole(gid, rid string) error {
	return s.delete(roleKey(gid, rid))
}

// SetGuild keeps the guild's own settings. Members, channels, roles and the other collections
// are stored under their own keys.
func (s *Store) SetGuild(g *discordgo.Guild) error {
	return s.set(guildKey(g.ID), guildSettings(g))
}

func (s *Store) GetGuild(gid string) (*discordgo.Guild, error) {
	return get[discordgo.Guild](s, guildKey(gid))
}

func guildSettings(g *discordgo.Guild) *discordgo.Guild {
	stored := *g
	stored.Roles = nil
	stored.Emojis = nil
	stored.Stickers = nil
	stored.Members = nil
	stored.Presences = nil
	stored.Channels = nil
	stored.Threads = nil
	stored.VoiceStates = nil
	stored.StageInstances = nil
	return &stored
}

func (s *Store) SetEmojis(gid string, emojis []*discordgo.Emoji) error {
	if emojis == nil {
		emojis = []*discordgo.Emoji{}
	}
	return s.set(emojisKey(gid), emojis)
}

func (s *Store) GetEmojis(gid string) ([]*discordgo.Emoji, error) {
	e, err := get[[]*discordgo.Emoji](s, emojisKey(gid))
	if err != nil {
		return nil, err
	}
	return *e, nil
}

func (s *Store) SetStickers(gid string, stickers []*discordgo.Sticker) error {
	if stickers == nil {
		stickers = []*discordgo.Sticker{}
	}
	return s.set(stickersKey(gid), stickers)
}

func (s *Store) GetStickers(gid string) ([]*discordgo.Sticker, error) {
	st, err := get[[]*discordgo.Sticker](s, stickersKey(gid))
	if err != nil {
		return nil, err
	}
	return *st, nil
}

// SetVoiceState stores vs, or removes the user's state when they left voice.
func (s *Store) SetVoiceState(vs *discordgo.VoiceState) error {
	if vs.ChannelID == "" {
		return s.delete(voiceKey(vs.GuildID, vs.UserID))
	}
	stored := *vs
	stored.Member = nil
	return s.set(voiceKey(vs.GuildID, vs.UserID), &stored)
}

func (s *Store) GetVoiceState(gid, uid string) (*discordgo.VoiceState, error) {
	return get[discordgo.VoiceState](s, voiceKey(gid, uid))
}

// VoiceOccupancy counts the users whose last known voice channel in gid is cid.
func (s *Store) VoiceOccupancy(gid, cid string) int {
	prefix := []byte(fmt.Sprintf("voice:%s:", gid))
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var vs discordgo.VoiceState
			err := it.Item().Value(func(v []byte) error {
				return decodeGob(v, &vs)
			})
			if err != nil {
				continue
			}
			if vs.ChannelID == cid {
				n++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to count voice states", zap.String("guild", gid), zap.Error(err))
	}
	return n
}

func (s *Store) SetStageInstance(si *discordgo.StageInstance) error {
	return s.set(stageKey(si.GuildID, si.ID), si)
}

func (s *Store) GetStageInstance(gid, id string) (*discordgo.StageInstance, error) {
	return get[discordgo.StageInstance](s, stageKey(gid, id))
}

func (s *Store) DeleteStageInstance(gid, id string) error {
	return s.delete(stageKey(gid, id))
}

func (s *Store) SetScheduledEvent(ev *discordgo.GuildScheduledEvent) error {
	return s.set(eventKey(ev.GuildID, ev.ID), ev)
}

func (s *Store) GetScheduledEvent(gid, id string) (*discordgo.GuildScheduledEvent, error) {
	return get[discordgo.GuildScheduledEvent](s, eventKey(gid, id))
}

func (s *Store) DeleteScheduledEvent(gid, id string) error {
	return s.delete(eventKey(gid, id))
}

// SeedGuild snapshots everything a guild create carries. Scheduled events are not part of the
// payload and are passed separately.
func (s *Store) SeedGuild(g *discordgo.Guild, events []*discordgo.GuildScheduledEvent) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	put := func(key string, v interface{}) error {
		enc, err := encodeGob(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		return wb.SetEntry(badger.NewEntry([]byte(key), enc))
	}

	if err := put(guildKey(g.ID), guildSettings(g)); err != nil {
		return err
	}
	emojis := g.Emojis
	if emojis == nil {
		emojis = []*discordgo.Emoji{}
	}
	if err := put(emojisKey(g.ID), emojis); err != nil {
		return err
	}
	stickers := g.Stickers
	if stickers == nil {
		stickers = []*discordgo.Sticker{}
	}
	if err := put(stickersKey(g.ID), stickers); err != nil {
		return err
	}
	for _, r := range g.Roles {
		if err := put(roleKey(g.ID, r.ID), r); err != nil {
			return err
		}
	}
	for _, ch := range append(append([]*discordgo.Channel{}, g.Channels...), g.Threads...) {
		stored := *ch
		stored.GuildID = g.ID
		stored.Messages = nil
		stored.Members = nil
		if err := put(channelKey(g.ID, ch.ID), &stored); err != nil {
			return err
		}
	}
	for _, m := range g.Members {
		if m.User == nil {
			continue
		}
		stored := *m
		stored.GuildID = g.ID
		if err := put(memberKey(g.ID, m.User.ID), &stored); err != nil {
			return err
		}
	}
	for _, vs := range g.VoiceStates {
		stored := *vs
		stored.GuildID = g.ID
		stored.Member = nil
		if err := put(voiceKey(g.ID, vs.UserID), &stored); err != nil {
			return err
		}
	}
	for _, si := range g.StageInstances {
		if err := put(stageKey(g.ID, si.ID), si); err != nil {
			return err
		}
	}
	for _, ev := range events {
		if err := put(eventKey(g.ID, ev.ID), ev); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("seed guild %s: %w", g.ID, err)
	}
	s.log.Debug("seeded guild snapshots",
		zap.String("guild", g.ID),
		zap.Int("members", len(g.Members)),
		zap.Int("channels", len(g.Channels)),
		zap.Int("roles", len(g.Roles)))
	return nil
}

// SetMembers stores a batch of members, such as a members chunk.
func (s *Store) SetMembers(gid string, members []*discordgo.Member) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, m := range members {
		if m.User == nil {
			continue
		}
		stored := *m
		stored.GuildID = gid
		enc, err := encodeGob(&stored)
		if err != nil {
			return fmt.Errorf("encode member: %w", err)
		}
		if err := wb.SetEntry(badger.NewEntry([]byte(memberKey(gid, m.User.ID)), enc)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

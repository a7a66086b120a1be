package format

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

// VoiceStateChanged reports joins, leaves, moves and mute/deafen/stream changes. before may
// be nil when the user was not in voice. occupancy returns the current member count of a
// voice channel.
func VoiceStateChanged(u *discordgo.User, before, after *discordgo.VoiceState, channel func(id string) *discordgo.Channel, occupancy func(id string) int) *eventlog.Payload {
	if after == nil {
		return nil
	}
	if before == nil {
		before = &discordgo.VoiceState{}
	}
	who := userIDRef(after.UserID)
	if u != nil {
		who = userRef(u)
	}
	users := func(id string) string {
		limit := "∞"
		if ch := lookup(channel, id); ch != nil && ch.UserLimit > 0 {
			limit = fmt.Sprint(ch.UserLimit)
		}
		n := 0
		if occupancy != nil {
			n = occupancy(id)
		}
		return fmt.Sprintf("%v/%v", n, limit)
	}

	d := &details{}
	var title string
	switch {
	case before.ChannelID == "" && after.ChannelID != "":
		title = "User joined channel"
		d.add("User", who).
			add("Channel", namedChannelRef(lookupOrStub(channel, after.ChannelID))).
			add("Users", users(after.ChannelID))
	case before.ChannelID != "" && after.ChannelID == "":
		title = "User left channel"
		d.add("User", who).
			add("Channel", namedChannelRef(lookupOrStub(channel, before.ChannelID))).
			add("Users", users(before.ChannelID))
	case before.ChannelID != after.ChannelID:
		title = "User switched channel"
		d.add("User", who).
			add("From", namedChannelRef(lookupOrStub(channel, before.ChannelID))).
			add("To", namedChannelRef(lookupOrStub(channel, after.ChannelID))).
			add("Users", users(after.ChannelID))
	default:
		changes := voiceFlagChanges(before, after)
		if len(changes) == 0 {
			return nil
		}
		title = "Voice state update"
		d.add("User", who).
			add("Channel", namedChannelRef(lookupOrStub(channel, after.ChannelID)))
		for _, c := range changes {
			d.raw("> " + c)
		}
	}

	e := newEmbed(title, ColorBlue).WithDescription(d.String())
	if u != nil {
		e.WithThumbnail(u.AvatarURL("256"))
	}
	return single(e, eventlog.Attribution{})
}

func voiceFlagChanges(before, after *discordgo.VoiceState) []string {
	var out []string
	flag := func(name string, b, a bool) {
		if b != a {
			out = append(out, fmt.Sprintf("%v -> %v", name, a))
		}
	}
	flag("Server Mute", before.Mute, after.Mute)
	flag("Server Deafen", before.Deaf, after.Deaf)
	flag("Self Mute", before.SelfMute, after.SelfMute)
	flag("Self Deafen", before.SelfDeaf, after.SelfDeaf)
	flag("Streaming", before.SelfStream, after.SelfStream)
	flag("Video", before.SelfVideo, after.SelfVideo)
	flag("Suppressed", before.Suppress, after.Suppress)
	return out
}

func lookup(fn func(string) *discordgo.Channel, id string) *discordgo.Channel {
	if fn == nil || id == "" {
		return nil
	}
	return fn(id)
}

func lookupOrStub(fn func(string) *discordgo.Channel, id string) *discordgo.Channel {
	if ch := lookup(fn, id); ch != nil {
		return ch
	}
	return &discordgo.Channel{ID: id}
}

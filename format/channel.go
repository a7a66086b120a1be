package format

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

var channelTypeNames = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:          "Text",
	discordgo.ChannelTypeGuildVoice:         "Voice",
	discordgo.ChannelTypeGuildCategory:      "Category",
	discordgo.ChannelTypeGuildNews:          "Announcement",
	discordgo.ChannelTypeGuildStageVoice:    "Stage",
	discordgo.ChannelTypeGuildForum:         "Forum",
	discordgo.ChannelTypeGuildNewsThread:    "Announcement Thread",
	discordgo.ChannelTypeGuildPublicThread:  "Public Thread",
	discordgo.ChannelTypeGuildPrivateThread: "Private Thread",
}

func channelTypeName(t discordgo.ChannelType) string {
	if n, ok := channelTypeNames[t]; ok {
		return n
	}
	return "Unknown"
}

func channelDetails(ch *discordgo.Channel, a eventlog.Attribution) *details {
	d := &details{}
	d.add("Channel", namedChannelRef(ch)).
		add("Channel ID", ch.ID).
		addIf(ch.ParentID != "", "Category", channelRef(ch.ParentID)).
		add("By", a.Actor())
	if a.Reason != "" {
		d.add("Reason", a.Reason)
	}
	return d
}

// ChannelCreated reports a new channel of any type.
func ChannelCreated(ch *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if ch == nil {
		return nil
	}
	d := channelDetails(ch, a)
	d.add("Type", channelTypeName(ch.Type))
	e := newEmbed(channelTypeName(ch.Type)+" Channel Created", ColorCoral).
		WithDescription(d.String())
	return single(e, a)
}

func ChannelDeleted(ch *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if ch == nil {
		return nil
	}
	d := &details{}
	d.add("Channel", fmt.Sprintf("#%v", ch.Name)).
		add("Channel ID", ch.ID).
		add("Type", channelTypeName(ch.Type)).
		addIf(ch.ParentID != "", "Category", channelRef(ch.ParentID)).
		add("Deleted by", a.Actor())
	if a.Reason != "" {
		d.add("Reason", a.Reason)
	}
	e := newEmbed("Channel Deleted", Color(0xce3e3e)).WithDescription(d.String())
	return single(e, a)
}

// ChannelUpdated returns one embed per changed aspect of the channel, or nil when nothing
// visible changed.
// ChannelChanged reports whether ChannelUpdated would log anything for the pair.
func ChannelChanged(before, after *discordgo.Channel) bool {
	if before == nil || after == nil {
		return false
	}
	return before.Name != after.Name ||
		before.Topic != after.Topic ||
		before.NSFW != after.NSFW ||
		before.RateLimitPerUser != after.RateLimitPerUser ||
		before.Bitrate != after.Bitrate ||
		before.UserLimit != after.UserLimit ||
		before.ParentID != after.ParentID ||
		before.Type != after.Type ||
		len(overwriteChanges(before.PermissionOverwrites, after.PermissionOverwrites)) > 0
}

func ChannelUpdated(before, after *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if !ChannelChanged(before, after) {
		return nil
	}
	var changes []string
	if before.Name != after.Name {
		changes = append(changes, fmt.Sprintf("Name changed from `%v` to `%v`", before.Name, after.Name))
	}
	if before.Topic != after.Topic {
		changes = append(changes, fmt.Sprintf("Topic changed\n**Before:** %v\n**After:** %v",
			truncate(orNone(before.Topic), 400), truncate(orNone(after.Topic), 400)))
	}
	if before.NSFW != after.NSFW {
		changes = append(changes, fmt.Sprintf("NSFW set to %v", yesNo(after.NSFW)))
	}
	if before.RateLimitPerUser != after.RateLimitPerUser {
		changes = append(changes, fmt.Sprintf("Slowmode changed from %vs to %vs", before.RateLimitPerUser, after.RateLimitPerUser))
	}
	if before.Bitrate != after.Bitrate {
		changes = append(changes, fmt.Sprintf("Bitrate changed from %vkbps to %vkbps", before.Bitrate/1000, after.Bitrate/1000))
	}
	if before.UserLimit != after.UserLimit {
		changes = append(changes, fmt.Sprintf("User limit changed from %v to %v", before.UserLimit, after.UserLimit))
	}
	if before.ParentID != after.ParentID {
		changes = append(changes, fmt.Sprintf("Category changed from %v to %v", channelRef(before.ParentID), channelRef(after.ParentID)))
	}
	if before.Type != after.Type {
		changes = append(changes, fmt.Sprintf("Type changed from %v to %v", channelTypeName(before.Type), channelTypeName(after.Type)))
	}
	changes = append(changes, overwriteChanges(before.PermissionOverwrites, after.PermissionOverwrites)...)
	if len(changes) == 0 {
		return nil
	}

	p := &eventlog.Payload{}
	for _, c := range changes {
		d := channelDetails(after, a)
		d.raw(c)
		p.Embeds = append(p.Embeds, finish(newEmbed("Channel Updated", ColorGrey).WithDescription(d.String()), a))
		if len(p.Embeds) == 10 {
			break
		}
	}
	return p
}

func overwriteTarget(o *discordgo.PermissionOverwrite) string {
	if o.Type == discordgo.PermissionOverwriteTypeMember {
		return userIDRef(o.ID)
	}
	return roleRef(o.ID)
}

func overwriteChanges(before, after []*discordgo.PermissionOverwrite) []string {
	old := make(map[string]*discordgo.PermissionOverwrite, len(before))
	for _, o := range before {
		old[o.ID] = o
	}
	var out []string
	seen := make(map[string]bool, len(after))
	for _, o := range after {
		seen[o.ID] = true
		prev, ok := old[o.ID]
		if !ok {
			out = append(out, fmt.Sprintf("Overwrite added for %v%v", overwriteTarget(o), permLines(0, o.Allow, 0, o.Deny)))
			continue
		}
		if prev.Allow != o.Allow || prev.Deny != o.Deny {
			out = append(out, fmt.Sprintf("Overwrite updated for %v%v", overwriteTarget(o), permLines(prev.Allow, o.Allow, prev.Deny, o.Deny)))
		}
	}
	for _, o := range before {
		if !seen[o.ID] {
			out = append(out, fmt.Sprintf("Overwrite removed for %v", overwriteTarget(o)))
		}
	}
	return out
}

func permLines(allowBefore, allowAfter, denyBefore, denyAfter int64) string {
	var sb strings.Builder
	allowed, _ := permissionDiff(allowBefore, allowAfter)
	denied, _ := permissionDiff(denyBefore, denyAfter)
	neutral := (allowBefore &^ allowAfter &^ denyAfter) | (denyBefore &^ denyAfter &^ allowAfter)
	if names := PermissionNames(allowed); len(names) > 0 {
		sb.WriteString("\n✅ " + joinLimited(names, 400))
	}
	if names := PermissionNames(denied); len(names) > 0 {
		sb.WriteString("\n❌ " + joinLimited(names, 400))
	}
	if names := PermissionNames(neutral); len(names) > 0 {
		sb.WriteString("\n➖ " + joinLimited(names, 400))
	}
	return sb.String()
}

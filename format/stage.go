package format

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func stageDetails(s *discordgo.StageInstance, ch *discordgo.Channel) *details {
	if ch == nil {
		ch = &discordgo.Channel{ID: s.ChannelID}
	}
	d := &details{}
	d.add("Channel", namedChannelRef(ch)).
		add("Topic", "`"+s.Topic+"`")
	return d
}

func StageStarted(s *discordgo.StageInstance, ch *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if s == nil {
		return nil
	}
	d := stageDetails(s, ch)
	d.add("Started by", a.Actor())
	return single(newEmbed("Stage created", ColorCoral).WithDescription(d.String()), a)
}

func StageEnded(s *discordgo.StageInstance, ch *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if s == nil {
		return nil
	}
	d := stageDetails(s, ch)
	d.add("Ended by", a.Actor())
	return single(newEmbed("Stage ended", ColorRed).WithDescription(d.String()), a)
}

// StageTopicChanged returns nil unless the topic changed.
// StageTopicDiffers reports whether StageTopicChanged would log anything for the pair.
func StageTopicDiffers(before, after *discordgo.StageInstance) bool {
	return before != nil && after != nil && before.Topic != after.Topic
}

func StageTopicChanged(before, after *discordgo.StageInstance, ch *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if !StageTopicDiffers(before, after) {
		return nil
	}
	d := stageDetails(after, ch)
	d.add("Previous", "`"+before.Topic+"`")
	return single(newEmbed("Stage topic updated", ColorGrey).WithDescription(d.String()), a)
}

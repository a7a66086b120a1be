package format

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func threadDetails(th, parent *discordgo.Channel) *details {
	if parent == nil {
		parent = &discordgo.Channel{ID: th.ParentID}
	}
	d := &details{}
	d.add("Thread", namedChannelRef(th)).
		add("Thread ID", "`"+th.ID+"`").
		add("Channel", namedChannelRef(parent))
	return d
}

func threadMeta(th *discordgo.Channel) discordgo.ThreadMetadata {
	if th == nil || th.ThreadMetadata == nil {
		return discordgo.ThreadMetadata{}
	}
	return *th.ThreadMetadata
}

func ThreadCreated(th, parent *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if th == nil {
		return nil
	}
	d := threadDetails(th, parent)
	if m := threadMeta(th); m.AutoArchiveDuration > 0 {
		d.add("Archiving in", fmt.Sprintf("%v mins", m.AutoArchiveDuration))
	}
	if th.OwnerID != "" {
		d.add("Created by", userIDRef(th.OwnerID))
	}
	return single(newEmbed("Thread created", ColorCoral).WithDescription(d.String()), a)
}

func ThreadDeleted(th, parent *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if th == nil {
		return nil
	}
	d := &details{}
	d.add("Thread", orNone(th.Name)).
		add("Thread ID", "`"+th.ID+"`").
		add("Channel", namedChannelRef(lookupParent(th, parent))).
		add("Created", relative(snowflakeTime(th.ID))).
		add("Deleted by", a.Actor())
	return single(newEmbed("Thread deleted", ColorRed).WithDescription(d.String()), a)
}

func lookupParent(th, parent *discordgo.Channel) *discordgo.Channel {
	if parent != nil {
		return parent
	}
	return &discordgo.Channel{ID: th.ParentID}
}

// ThreadUpdated returns one embed per change, or nil when nothing changed.
// ThreadChanged reports whether ThreadUpdated would log anything for the pair.
func ThreadChanged(before, after *discordgo.Channel) bool {
	if before == nil || after == nil {
		return false
	}
	bm, am := threadMeta(before), threadMeta(after)
	return bm.Archived != am.Archived ||
		bm.Locked != am.Locked ||
		bm.AutoArchiveDuration != am.AutoArchiveDuration ||
		before.Name != after.Name ||
		before.RateLimitPerUser != after.RateLimitPerUser
}

func ThreadUpdated(before, after, parent *discordgo.Channel, a eventlog.Attribution) *eventlog.Payload {
	if !ThreadChanged(before, after) {
		return nil
	}
	bm, am := threadMeta(before), threadMeta(after)
	p := &eventlog.Payload{}
	push := func(title string, color Color, fn func(d *details)) {
		d := threadDetails(after, parent)
		if fn != nil {
			fn(d)
		}
		p.Embeds = append(p.Embeds, finish(newEmbed(title, color).WithDescription(d.String()), a))
	}

	switch {
	case bm.Archived && !am.Archived:
		push("Thread unarchived", ColorCoral, nil)
	case !bm.Archived && am.Archived:
		push("Thread archived", ColorRed, func(d *details) {
			d.add("Created", relative(snowflakeTime(after.ID)))
		})
	}
	if bm.Locked != am.Locked {
		title, color := "Thread unlocked", ColorCoral
		if am.Locked {
			title, color = "Thread locked", ColorRed
		}
		push(title, color, nil)
	}
	if before.Name != after.Name {
		push("Thread name updated", ColorGrey, func(d *details) {
			d.add("Previous name", before.Name)
		})
	}
	if before.RateLimitPerUser != after.RateLimitPerUser {
		push("Thread slowmode updated", ColorGrey, func(d *details) {
			d.add("Slowmode", fmt.Sprintf("`%vs` > `%vs`", before.RateLimitPerUser, after.RateLimitPerUser))
		})
	}
	if bm.AutoArchiveDuration != am.AutoArchiveDuration {
		push("Thread archive duration", ColorGrey, func(d *details) {
			d.add("Duration", fmt.Sprintf("`%v mins` > `%v mins`", bm.AutoArchiveDuration, am.AutoArchiveDuration))
		})
	}
	if len(p.Embeds) == 0 {
		return nil
	}
	return p
}

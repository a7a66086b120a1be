package format

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func eventDetails(ev *discordgo.GuildScheduledEvent) *details {
	d := &details{}
	d.add("Event", ev.Name)
	return d
}

func optionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Not set"
	}
	return absolute(*t)
}

func eventImageURL(ev *discordgo.GuildScheduledEvent) string {
	if ev.Image == "" {
		return ""
	}
	return discordgo.EndpointCDN + "guild-events/" + ev.ID + "/" + ev.Image + ".png"
}

func ScheduledEventCreated(ev *discordgo.GuildScheduledEvent, a eventlog.Attribution) *eventlog.Payload {
	if ev == nil {
		return nil
	}
	d := eventDetails(ev)
	d.add("Start", absolute(ev.ScheduledStartTime)).
		addIf(ev.ChannelID != "", "Channel", channelRef(ev.ChannelID)).
		add("Created by", a.Actor())
	e := newEmbed("Event created", ColorCoral).WithDescription(d.String())
	if ev.Description != "" {
		e.AddField("Description", truncate(ev.Description, fieldLimit), false)
	}
	return single(e, a)
}

func ScheduledEventDeleted(ev *discordgo.GuildScheduledEvent, a eventlog.Attribution) *eventlog.Payload {
	if ev == nil {
		return nil
	}
	d := eventDetails(ev)
	d.add("Start", absolute(ev.ScheduledStartTime)).
		add("Canceled by", a.Actor())
	return single(newEmbed("Event canceled", ColorRed).WithDescription(d.String()), a)
}

// ScheduledEventUpdated returns one embed per change, or nil when nothing changed.
// ScheduledEventChanged reports whether ScheduledEventUpdated would log anything for the pair.
// Status changes only count when the event started, ended or was canceled.
func ScheduledEventChanged(before, after *discordgo.GuildScheduledEvent) bool {
	if before == nil || after == nil {
		return false
	}
	if before.Status != after.Status {
		switch after.Status {
		case discordgo.GuildScheduledEventStatusActive,
			discordgo.GuildScheduledEventStatusCompleted,
			discordgo.GuildScheduledEventStatusCanceled:
			return true
		}
	}
	return before.Name != after.Name ||
		before.Description != after.Description ||
		!before.ScheduledStartTime.Equal(after.ScheduledStartTime) ||
		optionalTime(before.ScheduledEndTime) != optionalTime(after.ScheduledEndTime) ||
		before.Image != after.Image
}

func ScheduledEventUpdated(before, after *discordgo.GuildScheduledEvent, a eventlog.Attribution) *eventlog.Payload {
	if !ScheduledEventChanged(before, after) {
		return nil
	}
	p := &eventlog.Payload{}
	push := func(title string, color Color, fn func(d *details)) *discordgo.MessageEmbed {
		d := eventDetails(after)
		fn(d)
		m := finish(newEmbed(title, color).WithDescription(d.String()), a)
		p.Embeds = append(p.Embeds, m)
		return m
	}

	if before.Name != after.Name {
		push("Event name updated", ColorGrey, func(d *details) {
			d.add("New Name", "`"+after.Name+"`").add("Previous", "`"+before.Name+"`")
		})
	}
	if before.Description != after.Description {
		push("Event description updated", ColorGrey, func(d *details) {
			d.add("Description", "`"+truncate(orNone(after.Description), 800)+"`").
				add("Previous", "`"+truncate(orNone(before.Description), 800)+"`")
		})
	}
	if before.Status != after.Status {
		switch after.Status {
		case discordgo.GuildScheduledEventStatusActive:
			push("Event started", ColorTeal, func(d *details) { d.add("Status", "Active") })
		case discordgo.GuildScheduledEventStatusCompleted:
			push("Event ended", Color(0xce3e3e), func(d *details) { d.add("Status", "Completed") })
		case discordgo.GuildScheduledEventStatusCanceled:
			push("Event canceled", ColorRed, func(d *details) { d.add("Status", "Canceled") })
		}
	}
	if !before.ScheduledStartTime.Equal(after.ScheduledStartTime) {
		push("Event start time updated", ColorGrey, func(d *details) {
			d.add("Start time", absolute(after.ScheduledStartTime)).
				add("Previous", absolute(before.ScheduledStartTime))
		})
	}
	if optionalTime(before.ScheduledEndTime) != optionalTime(after.ScheduledEndTime) {
		push("Event end time updated", ColorGrey, func(d *details) {
			d.add("End time", optionalTime(after.ScheduledEndTime)).
				add("Previous", optionalTime(before.ScheduledEndTime))
		})
	}
	if before.Image != after.Image {
		m := push("Event image updated", ColorGrey, func(d *details) {
			if u := eventImageURL(before); u != "" {
				d.add("Old Image", "[Old image link]("+u+")")
			} else {
				d.add("Old Image", "None")
			}
		})
		if u := eventImageURL(after); u != "" {
			m.Image = &discordgo.MessageEmbedImage{URL: u}
		}
	}
	if len(p.Embeds) == 0 {
		return nil
	}
	return p
}

// ScheduledEventSubscription reports a user subscribing to or leaving an event.
func ScheduledEventSubscription(ev *discordgo.GuildScheduledEvent, u *discordgo.User, userID string, subscribed bool) *eventlog.Payload {
	name := "Unknown"
	if ev != nil {
		name = ev.Name
	}
	who := userIDRef(userID)
	if u != nil {
		who = userRef(u)
	}
	title, color := "Unsubscribed from event", ColorRed
	if subscribed {
		title, color = "Subscribed to event", ColorCoral
	}
	d := &details{}
	d.add("Event", name).add("User", who)
	e := newEmbed(title, color).WithDescription(d.String())
	if u != nil {
		e.WithThumbnail(u.AvatarURL("256"))
	}
	return single(e, eventlog.Attribution{})
}

package format

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func auditChange(e *discordgo.AuditLogEntry, key discordgo.AuditLogChangeKey) (before, after interface{}, ok bool) {
	if e == nil {
		return nil, nil, false
	}
	for _, c := range e.Changes {
		if c != nil && c.Key != nil && *c.Key == key {
			return c.OldValue, c.NewValue, true
		}
	}
	return nil, nil, false
}

func auditString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return fmt.Sprintf("%.0f", s)
	default:
		return fmt.Sprint(s)
	}
}

func webhookKind(t discordgo.WebhookType) string {
	if t == discordgo.WebhookTypeChannelFollower {
		return "Follower"
	}
	return "Incoming"
}

// WebhookChanged renders a webhook audit entry. hook is the current webhook and is nil once
// deleted. Returns nil when a carries no webhook entry.
func WebhookChanged(a eventlog.Attribution, hook *discordgo.Webhook, channelID string) *eventlog.Payload {
	e := a.Entry
	if e == nil || e.ActionType == nil {
		return nil
	}
	name := ""
	if hook != nil {
		name = hook.Name
	}
	if _, n, ok := auditChange(e, discordgo.AuditLogChangeKeyName); ok && name == "" {
		name = auditString(n)
	}
	if o, _, ok := auditChange(e, discordgo.AuditLogChangeKeyName); ok && name == "" {
		name = auditString(o)
	}

	base := func() *details {
		d := &details{}
		d.add("Webhook", orNone(name)).
			add("Webhook ID", e.TargetID).
			add("Channel", channelRef(channelID))
		return d
	}
	reason := func(d *details) {
		if a.Reason != "" {
			d.add("Reason", a.Reason)
		}
	}

	p := &eventlog.Payload{}
	push := func(title string, color Color, d *details) {
		p.Embeds = append(p.Embeds, finish(newEmbed(title, color).WithDescription(d.String()), a))
	}

	switch *e.ActionType {
	case discordgo.AuditLogActionWebhookCreate:
		d := base()
		if hook != nil {
			d.add("Type", webhookKind(hook.Type))
		}
		d.add("Created by", a.Actor())
		reason(d)
		push("Webhook Created", ColorCoral, d)
	case discordgo.AuditLogActionWebhookDelete:
		d := base()
		d.add("Deleted by", a.Actor())
		reason(d)
		push("Webhook Deleted", ColorRed, d)
	case discordgo.AuditLogActionWebhookUpdate:
		if o, _, ok := auditChange(e, discordgo.AuditLogChangeKeyName); ok {
			d := base()
			d.add("Previous Name", orNone(auditString(o)))
			push("Webhook Name Updated", ColorGrey, d)
		}
		if o, n, ok := auditChange(e, discordgo.AuditLogChangeKeyChannelID); ok {
			d := &details{}
			d.add("Webhook", fmt.Sprintf("%v (%v)", orNone(name), e.TargetID)).
				add("New Channel", channelRef(auditString(n))).
				add("Previous Channel", channelRef(auditString(o)))
			push("Webhook Channel Updated", ColorGrey, d)
		}
		if o, _, ok := auditChange(e, discordgo.AuditLogChangeKeyAvatarHash); ok {
			prev := "Not set"
			if auditString(o) != "" {
				prev = "Available"
			}
			d := base()
			d.add("Previous Avatar", prev)
			push("Webhook Avatar Updated", ColorGrey, d)
		}
	}
	if len(p.Embeds) == 0 {
		return nil
	}
	return p
}

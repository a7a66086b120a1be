package format

import (
	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

// ApplicationChanged renders a bot add or integration create/delete entry. app is the
// application's bot user when known.
func ApplicationChanged(a eventlog.Attribution, app *discordgo.User, integration *discordgo.Integration) *eventlog.Payload {
	e := a.Entry
	if e == nil || e.ActionType == nil {
		return nil
	}
	name := e.TargetID
	switch {
	case app != nil:
		name = userRef(app)
	case integration != nil:
		name = integration.Name
	default:
		if _, n, ok := auditChange(e, discordgo.AuditLogChangeKeyName); ok {
			name = auditString(n)
		} else if o, _, ok := auditChange(e, discordgo.AuditLogChangeKeyName); ok {
			name = auditString(o)
		}
	}

	d := &details{}
	d.add("Application", orNone(name)).
		add("Application ID", e.TargetID)
	if integration != nil && integration.Type != "" {
		d.add("Type", integration.Type)
	}

	var title string
	var color Color
	switch *e.ActionType {
	case discordgo.AuditLogActionBotAdd, discordgo.AuditLogActionIntegrationCreate:
		title, color = "Application Added", ColorCoral
		d.add("Added by", a.Actor())
	case discordgo.AuditLogActionIntegrationDelete:
		title, color = "Application removed", ColorRed
		d.add("Removed by", a.Actor())
	default:
		return nil
	}
	if a.Reason != "" {
		d.add("Reason", a.Reason)
	}
	e2 := newEmbed(title, color).WithDescription(d.String())
	if app != nil {
		e2.WithThumbnail(app.AvatarURL("256"))
	}
	return single(e2, a)
}

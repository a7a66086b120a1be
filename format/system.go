package format

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
)

func onOff(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

// LoggingStatus announces logging being switched on or off.
func LoggingStatus(enabled bool, by *discordgo.User) *eventlog.Payload {
	d := &details{}
	d.add("Status", onOff(enabled)).
		add("Changed by", userRef(by))
	color := ColorRed
	if enabled {
		color = ColorGreen
	}
	return single(newEmbed("Logging Status", color).WithDescription(d.String()), eventlog.Attribution{})
}

// SettingChanged announces a change to one of the ignore switches, e.g. "Ignore embeds".
func SettingChanged(setting string, on bool, by *discordgo.User) *eventlog.Payload {
	d := &details{}
	d.add("Setting", setting).
		add("Status", onOff(on)).
		add("Changed by", userRef(by))
	return single(newEmbed("Logging Setting Updated", ColorBlue).WithDescription(d.String()), eventlog.Attribution{})
}

func mentionList(ids []string, ref func(string) string) string {
	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, ref(id))
	}
	return joinLimited(refs, rolesLimit)
}

// Status summarizes a guild's configuration for the status command.
func Status(c *eventlog.GuildConfig, viewRoleID string) *discordgo.MessageEmbed {
	d := &details{}
	d.add("Logging", onOff(c.Enabled)).
		add("Category", channelRef(c.CategoryID))
	if viewRoleID != "" {
		d.add("View role", roleRef(viewRoleID))
	} else {
		d.add("View role", "None")
	}
	d.add("Ignore embeds", yesNo(c.IgnoreEmbeds)).
		add("Voice logs follow ignore lists", yesNo(c.VoiceLogIgnore))

	var bound []string
	for _, t := range eventlog.EventTypes {
		ch, ok := c.Channels[t]
		if !ok {
			bound = append(bound, fmt.Sprintf("%v %v: Not set", t.Emoji(), t.Title()))
			continue
		}
		hook := ""
		if c.Webhooks[t] == "" {
			hook = " (no webhook yet)"
		}
		bound = append(bound, fmt.Sprintf("%v %v: %v%v", t.Emoji(), t.Title(), channelRef(ch), hook))
	}

	return newEmbed("Logging Configuration", ColorBlue).
		WithDescription(d.String()).
		AddField("Log channels", truncate(strings.Join(bound, "\n"), fieldLimit), false).
		AddField("Ignored channels", mentionList(c.IgnoredChannels, channelRef), false).
		AddField("Ignored users", mentionList(c.IgnoredUsers, userIDRef), false).
		AddField("Ignored roles", mentionList(c.IgnoredRoles, roleRef), false).
		Build()
}

// SetupSummary describes the outcome of automatic setup.
func SetupSummary(r *eventlog.SetupReport) *discordgo.MessageEmbed {
	d := &details{}
	d.add("View role", roleRef(r.RoleID)).
		add("Category", channelRef(r.CategoryID)).
		add("Channels created", fmt.Sprint(len(r.Created))).
		add("Channels reused", fmt.Sprint(len(r.Channels)-len(r.Created)))

	e := newEmbed("Logging Setup Complete", ColorGreen).WithDescription(d.String())
	if len(r.Created) > 0 {
		e.AddField("Created", typeChannels(r.Created, r.Channels), false)
	}
	if len(r.NoWebhook) > 0 {
		e.AddField("Missing webhooks", typeChannels(r.NoWebhook, r.Channels)+
			"\nGrant Manage Webhooks and they will be created on the first log message.", false)
	}
	return e.Build()
}

func typeChannels(types []eventlog.EventType, channels map[eventlog.EventType]string) string {
	lines := make([]string, 0, len(types))
	for _, t := range types {
		lines = append(lines, fmt.Sprintf("%v %v", t.Emoji(), channelRef(channels[t])))
	}
	return truncate(strings.Join(lines, "\n"), fieldLimit)
}

// Help is the usage guide.
func Help() *discordgo.MessageEmbed {
	types := make([]string, 0, len(eventlog.EventTypes))
	for _, t := range eventlog.EventTypes {
		types = append(types, "`"+t.String()+"`")
	}
	return builders.NewEmbedBuilder().
		WithTitle("Logging Help").
		WithOkColor().
		WithDescription("Server events are posted to one channel per log type through webhooks.").
		AddField("Setup", "`/logging setup-auto` creates a private category with a channel for every log type\n"+
			"`/logging set` points one log type at a channel\n"+
			"`/logging disable` stops one log type", false).
		AddField("Control", "`/logging toggle` switches all logging on or off\n"+
			"`/logging status` shows the configuration\n"+
			"`/logging clear` removes every channel binding", false).
		AddField("Ignoring", "`/ignore channel|user|role` skips events from them\n"+
			"`/ignore remove` undoes that\n"+
			"`/ignore embeds` skips messages with embeds\n"+
			"`/ignore voice` makes voice logs follow the ignore lists", false).
		AddField("Log types", strings.Join(types, ", "), false).
		Build()
}

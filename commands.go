package guildlog

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/format"
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"github.com/intrntsrfr/meido/pkg/mio/discord"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
	"go.uber.org/zap"
)

// commandTimeout bounds a command. Automatic setup creates many channels and gets the longest.
const (
	commandTimeout = 15 * time.Second
	setupTimeout   = 2 * time.Minute
)

type module struct {
	*bot.ModuleBase
	gb        *Bot
	startTime time.Time
}

func NewModule(b *Bot) *module {
	logger := b.logger.Named("commands")
	return &module{
		ModuleBase: bot.NewModule(b.Bot, "logging", logger),
		gb:         b,
		startTime:  time.Now(),
	}
}

func (m *module) Hook() error {
	return m.RegisterApplicationCommands(
		newInfoSlash(m),
		newLoggingSlash(m),
		newIgnoreSlash(m),
	)
}

func newInfoSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "info").
		Type(discordgo.ChatApplicationCommand).
		Description("Get information about the bot")

	run := func(d *discord.DiscordApplicationCommand) {
		embed := builders.NewEmbedBuilder().
			WithTitle("Info").
			WithOkColor().
			AddField("Golang version", runtime.Version(), false).
			AddField("Running since", fmt.Sprintf("<t:%v:R>", m.startTime.Unix()), false).
			AddField("Total guilds", fmt.Sprintf("%v", d.Discord.GuildCount()), false).
			AddField("Cached configs", fmt.Sprintf("%v", m.gb.service.Configs.Len()), false)
		_ = d.RespondEmbed(embed.Build())
	}

	return cmd.Execute(run).Build()
}

func typeChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(eventlog.EventTypes))
	for _, t := range eventlog.EventTypes {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  t.Emoji() + " " + t.Title(),
			Value: t.String(),
		})
	}
	return choices
}

func stateOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "state",
		Description: "On or off",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: "on", Value: "on"},
			{Name: "off", Value: "off"},
		},
	}
}

func newLoggingSlash(m *module) *bot.ModuleApplicationCommand {
	typeOption := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "type",
			Description: "The log type",
			Required:    true,
			Choices:     typeChoices(),
		}
	}

	cmd := bot.NewModuleApplicationCommandBuilder(m, "logging").
		Type(discordgo.ChatApplicationCommand).
		Description("Configure server logging").
		NoDM().
		Permissions(discordgo.PermissionAdministrator).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "setup-auto",
			Description: "Create a log category with one channel per log type",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Send a log type to a channel",
			Options: []*discordgo.ApplicationCommandOption{
				typeOption(),
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The channel to log to",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "disable",
			Description: "Stop logging a log type",
			Options:     []*discordgo.ApplicationCommandOption{typeOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "toggle",
			Description: "Turn all logging on or off",
			Options:     []*discordgo.ApplicationCommandOption{stateOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "Show the logging configuration",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "clear",
			Description: "Disable logging and forget every log channel",
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "help",
			Description: "How to use the logging commands",
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()

		if _, ok := d.Options("setup-auto"); ok {
			// setup takes longer than an interaction may wait for its first response
			_ = d.RespondComplex(&discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
				discordgo.InteractionResponseDeferredChannelMessageWithSource)
			ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
			defer cancel()
			embed, failure := m.autoSetup(ctx, gid)
			edit := &discordgo.WebhookEdit{}
			if embed == nil {
				edit.Content = &failure
			} else {
				edit.Embeds = &[]*discordgo.MessageEmbed{embed}
			}
			if _, err := d.Sess.Real().InteractionResponseEdit(d.Interaction, edit, discordgo.WithContext(ctx)); err != nil {
				m.gb.log.Warn("failed to edit setup response", zap.String("guild", gid), zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if _, ok := d.Options("set"); ok {
			t, ok := typeValue(d, "set:type")
			chOpt, found := d.Options("set:channel")
			if !ok || !found {
				_ = d.RespondEphemeral("Unknown log type or channel")
				return
			}
			_ = d.RespondEphemeral(m.setChannel(ctx, gid, t, chOpt.ChannelValue(nil).ID))
		} else if _, ok := d.Options("disable"); ok {
			t, ok := typeValue(d, "disable:type")
			if !ok {
				_ = d.RespondEphemeral("Unknown log type")
				return
			}
			_ = d.RespondEphemeral(m.disable(ctx, gid, t))
		} else if _, ok := d.Options("toggle"); ok {
			on := false
			if opt, ok := d.Options("toggle:state"); ok {
				on = opt.StringValue() == "on"
			}
			_ = d.RespondEphemeral(m.toggle(ctx, gid, on, author(d)))
		} else if _, ok := d.Options("status"); ok {
			embed, err := m.status(ctx, gid)
			if err != nil {
				_ = d.RespondEphemeral("Failed to load the logging configuration")
				return
			}
			respondEphemeralEmbed(d, embed)
		} else if _, ok := d.Options("clear"); ok {
			_ = d.RespondEphemeral(m.clear(ctx, gid))
		} else if _, ok := d.Options("help"); ok {
			respondEphemeralEmbed(d, format.Help())
		}
	}

	return cmd.Execute(run).Build()
}

func newIgnoreSlash(m *module) *bot.ModuleApplicationCommand {
	cmd := bot.NewModuleApplicationCommandBuilder(m, "ignore").
		Type(discordgo.ChatApplicationCommand).
		Description("Manage what logging ignores").
		NoDM().
		Permissions(discordgo.PermissionAdministrator).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "channel",
			Description: "Ignore events in a channel",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "The channel to ignore",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "user",
			Description: "Ignore events caused by a user",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to ignore",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "role",
			Description: "Ignore events caused by members with a role",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "The role to ignore",
				Required:    true,
			}},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Stop ignoring a channel, user or role",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "The channel"},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "The user"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "The role"},
			},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "embeds",
			Description: "Leave embeds out of message logs",
			Options:     []*discordgo.ApplicationCommandOption{stateOption()},
		}).
		AddSubcommand(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "voice",
			Description: "Apply the ignore lists to voice logs",
			Options:     []*discordgo.ApplicationCommandOption{stateOption()},
		})

	run := func(d *discord.DiscordApplicationCommand) {
		gid := d.GuildID()
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if opt, ok := d.Options("channel:channel"); ok {
			_ = d.RespondEphemeral(m.ignore(ctx, gid, eventlog.IgnoreChannel, opt.ChannelValue(nil).ID))
		} else if opt, ok := d.Options("user:user"); ok {
			_ = d.RespondEphemeral(m.ignore(ctx, gid, eventlog.IgnoreUser, opt.UserValue(nil).ID))
		} else if opt, ok := d.Options("role:role"); ok {
			_ = d.RespondEphemeral(m.ignore(ctx, gid, eventlog.IgnoreRole, opt.RoleValue(nil, gid).ID))
		} else if _, ok := d.Options("remove"); ok {
			ids := make(map[eventlog.IgnoreKind]string)
			if opt, ok := d.Options("remove:channel"); ok {
				ids[eventlog.IgnoreChannel] = opt.ChannelValue(nil).ID
			}
			if opt, ok := d.Options("remove:user"); ok {
				ids[eventlog.IgnoreUser] = opt.UserValue(nil).ID
			}
			if opt, ok := d.Options("remove:role"); ok {
				ids[eventlog.IgnoreRole] = opt.RoleValue(nil, gid).ID
			}
			_ = d.RespondEphemeral(m.unignore(ctx, gid, ids))
		} else if opt, ok := d.Options("embeds:state"); ok {
			_ = d.RespondEphemeral(m.setIgnoreEmbeds(ctx, gid, opt.StringValue() == "on", author(d)))
		} else if opt, ok := d.Options("voice:state"); ok {
			_ = d.RespondEphemeral(m.setVoiceLogIgnore(ctx, gid, opt.StringValue() == "on", author(d)))
		}
	}

	return cmd.Execute(run).Build()
}

func typeValue(d *discord.DiscordApplicationCommand, key string) (eventlog.EventType, bool) {
	opt, ok := d.Options(key)
	if !ok {
		return "", false
	}
	return eventlog.ParseEventType(opt.StringValue())
}

func author(d *discord.DiscordApplicationCommand) *discordgo.User {
	if it := d.Interaction; it != nil {
		if it.Member != nil {
			return it.Member.User
		}
		return it.User
	}
	return nil
}

func respondEphemeralEmbed(d *discord.DiscordApplicationCommand, embed *discordgo.MessageEmbed) {
	_ = d.RespondComplex(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	}, discordgo.InteractionResponseChannelMessageWithSource)
}

// autoSetup returns the setup summary, or the reason it failed.
func (m *module) autoSetup(ctx context.Context, gid string) (*discordgo.MessageEmbed, string) {
	rep, err := m.gb.service.AutoSetup(ctx, gid, m.gb.platform)
	if err != nil {
		m.gb.log.Warn("automatic setup failed", zap.String("guild", gid), zap.Error(err))
		if errors.Is(err, eventlog.ErrPermissionDenied) {
			return nil, "I need the Manage Roles, Manage Channels and Manage Webhooks permissions to set up logging"
		}
		return nil, "Automatic setup failed, please try again later"
	}
	return format.SetupSummary(rep), ""
}

func (m *module) setChannel(ctx context.Context, gid string, t eventlog.EventType, channelID string) string {
	if _, err := m.gb.service.Bind(ctx, gid, t, channelID); err != nil {
		m.gb.log.Warn("failed to bind log channel", zap.String("guild", gid), zap.Stringer("type", t), zap.Error(err))
		if errors.Is(err, eventlog.ErrPermissionDenied) {
			return fmt.Sprintf("I need the Manage Webhooks permission in <#%v>", channelID)
		}
		return fmt.Sprintf("Failed to set up a webhook in <#%v>", channelID)
	}
	return fmt.Sprintf("%v %v will be sent to <#%v>", t.Emoji(), t.Title(), channelID)
}

func (m *module) disable(ctx context.Context, gid string, t eventlog.EventType) string {
	found, err := m.gb.service.Unbind(ctx, gid, t)
	switch {
	case err != nil:
		return "Failed to update the logging configuration"
	case !found:
		return fmt.Sprintf("%v %v are not configured", t.Emoji(), t.Title())
	}
	return fmt.Sprintf("%v %v disabled", t.Emoji(), t.Title())
}

// toggle switches logging and announces it to the system channel. The announcement of a switch
// off is dropped by the dispatcher, as the guild is disabled by then.
func (m *module) toggle(ctx context.Context, gid string, on bool, by *discordgo.User) string {
	if _, err := m.gb.service.SetEnabled(ctx, gid, on); err != nil {
		return "Failed to update the logging configuration"
	}
	m.gb.service.Dispatch(ctx, gid, eventlog.System, format.LoggingStatus(on, by))
	if on {
		return "Logging enabled"
	}
	return "Logging disabled"
}

func (m *module) status(ctx context.Context, gid string) (*discordgo.MessageEmbed, error) {
	cfg, err := m.gb.service.Configs.Get(ctx, gid)
	if err != nil {
		return nil, err
	}
	viewRole := ""
	if g := m.gb.platform.Guild(gid); g != nil {
		for _, r := range g.Roles {
			if r.Name == eventlog.LogViewRoleName {
				viewRole = r.ID
				break
			}
		}
	}
	return format.Status(cfg, viewRole), nil
}

func (m *module) clear(ctx context.Context, gid string) string {
	if err := m.gb.service.ClearSetup(ctx, gid); err != nil {
		return "Failed to clear the logging configuration"
	}
	return "Logging disabled and every log channel forgotten. The channels themselves were not deleted."
}

func (m *module) ignore(ctx context.Context, gid string, k eventlog.IgnoreKind, id string) string {
	added, err := m.gb.service.Ignore(ctx, gid, k, id)
	switch {
	case err != nil:
		return "Failed to update the ignore list"
	case !added:
		return fmt.Sprintf("That %v is already ignored", k)
	}
	return fmt.Sprintf("Now ignoring %v", mention(k, id))
}

func (m *module) unignore(ctx context.Context, gid string, ids map[eventlog.IgnoreKind]string) string {
	if len(ids) == 0 {
		return "Pick a channel, user or role to stop ignoring"
	}
	var removed, missing []string
	for _, k := range []eventlog.IgnoreKind{eventlog.IgnoreChannel, eventlog.IgnoreUser, eventlog.IgnoreRole} {
		id, ok := ids[k]
		if !ok {
			continue
		}
		ok, err := m.gb.service.Unignore(ctx, gid, k, id)
		if err != nil {
			return "Failed to update the ignore list"
		}
		if ok {
			removed = append(removed, mention(k, id))
		} else {
			missing = append(missing, mention(k, id))
		}
	}
	text := ""
	if len(removed) > 0 {
		text += fmt.Sprintf("No longer ignoring %v\n", strings.Join(removed, ", "))
	}
	if len(missing) > 0 {
		text += fmt.Sprintf("Not ignored: %v", strings.Join(missing, ", "))
	}
	return text
}

func (m *module) setIgnoreEmbeds(ctx context.Context, gid string, on bool, by *discordgo.User) string {
	if err := m.gb.service.SetIgnoreEmbeds(ctx, gid, on); err != nil {
		return "Failed to update the logging configuration"
	}
	m.gb.service.Dispatch(ctx, gid, eventlog.System, format.SettingChanged("Ignore embeds", on, by))
	if on {
		return "Embeds are now left out of message logs"
	}
	return "Embeds are now included in message logs"
}

func (m *module) setVoiceLogIgnore(ctx context.Context, gid string, on bool, by *discordgo.User) string {
	if err := m.gb.service.SetVoiceLogIgnore(ctx, gid, on); err != nil {
		return "Failed to update the logging configuration"
	}
	m.gb.service.Dispatch(ctx, gid, eventlog.System, format.SettingChanged("Voice logs follow ignore lists", on, by))
	if on {
		return "Voice logs now follow the ignore lists"
	}
	return "Voice logs no longer follow the ignore lists"
}

func mention(k eventlog.IgnoreKind, id string) string {
	switch k {
	case eventlog.IgnoreChannel:
		return "<#" + id + ">"
	case eventlog.IgnoreRole:
		return "<@&" + id + ">"
	}
	return "<@" + id + ">"
}

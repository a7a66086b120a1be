package eventlog

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Client is the platform surface used by the pipeline. Implementations report failures as
// ErrPermissionDenied, ErrNotFound or *TransientError so callers can branch on the kind.
type Client interface {
	// Self returns the bot's own user.
	Self(ctx context.Context) (*discordgo.User, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error)
	// CreateWebhook creates a webhook carrying the bot's avatar.
	CreateWebhook(ctx context.Context, channelID, name string) (*discordgo.Webhook, error)
	ExecuteWebhook(ctx context.Context, webhookID, token string, params *discordgo.WebhookParams) error
	// AuditLog returns recent entries, most recent first. An action of 0 returns every action.
	AuditLog(ctx context.Context, guildID string, action discordgo.AuditLogAction, limit int) ([]*discordgo.AuditLogEntry, error)
}

// Provisioner adds the calls used by automatic setup.
type Provisioner interface {
	Client
	GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error)
	CreateRole(ctx context.Context, guildID, name string) (*discordgo.Role, error)
	GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error)
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	SetOverwrite(ctx context.Context, channelID string, ow *discordgo.PermissionOverwrite) error
}

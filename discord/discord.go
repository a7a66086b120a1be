// Package discord is the REST side of the bot: the calls the logging pipeline makes outside
// the gateway, with every failure mapped onto the eventlog error kinds.
package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// avatarLimit bounds the bot avatar download used for new webhooks.
const avatarLimit = 1024 * 1024 * 8

type Client struct {
	sess  *discordgo.Session
	state State
	cdn   *Downloader
	log   *zap.Logger

	mu     sync.Mutex
	self   *discordgo.User
	avatar string
}

// New creates a client for the given bot token. The session is only used for REST calls and
// is never opened.
func New(token string, log *zap.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s.ShouldRetryOnRateLimit = true
	s.MaxRestRetries = 2
	return &Client{
		sess: s,
		cdn:  NewDownloader(nil),
		log:  log,
	}, nil
}

// WithState lets lookups consult the gateway cache before hitting the API.
func (c *Client) WithState(s State) *Client {
	c.state = s
	return c
}

// RecommendedShards asks Discord for the shard count suggested for this bot.
func (c *Client) RecommendedShards(ctx context.Context) (int, error) {
	resp, err := c.sess.GatewayBot(discordgo.WithContext(ctx))
	if err != nil {
		return 0, classify("gateway bot", err)
	}
	return resp.Shards, nil
}

func (c *Client) Self(ctx context.Context) (*discordgo.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.self != nil {
		return c.self, nil
	}
	u, err := c.sess.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("get self", err)
	}
	c.self = u
	return u, nil
}

func (c *Client) User(ctx context.Context, userID string) (*discordgo.User, error) {
	u, err := c.sess.User(userID, discordgo.WithContext(ctx))
	return u, classify("get user", err)
}

func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch := c.cachedChannel(channelID); ch != nil {
		return ch, nil
	}
	ch, err := c.sess.Channel(channelID, discordgo.WithContext(ctx))
	return ch, classify("get channel", err)
}

func (c *Client) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error) {
	hooks, err := c.sess.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	return hooks, classify("list webhooks", err)
}

// CreateWebhook creates a webhook named name that carries the bot's avatar. A failed avatar
// download still creates the webhook.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*discordgo.Webhook, error) {
	wh, err := c.sess.WebhookCreate(channelID, name, c.avatarURI(ctx), discordgo.WithContext(ctx))
	return wh, classify("create webhook", err)
}

func (c *Client) ExecuteWebhook(ctx context.Context, webhookID, token string, params *discordgo.WebhookParams) error {
	_, err := c.sess.WebhookExecute(webhookID, token, false, params, discordgo.WithContext(ctx))
	return classify("execute webhook", err)
}

func (c *Client) AuditLog(ctx context.Context, guildID string, action discordgo.AuditLogAction, limit int) ([]*discordgo.AuditLogEntry, error) {
	log, err := c.sess.GuildAuditLog(guildID, "", "", int(action), limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("audit log", err)
	}
	return log.AuditLogEntries, nil
}

func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, err := c.sess.GuildRoles(guildID, discordgo.WithContext(ctx))
	return roles, classify("list roles", err)
}

func (c *Client) CreateRole(ctx context.Context, guildID, name string) (*discordgo.Role, error) {
	mentionable := false
	perms := int64(0)
	r, err := c.sess.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        name,
		Mentionable: &mentionable,
		Permissions: &perms,
	}, discordgo.WithContext(ctx))
	return r, classify("create role", err)
}

func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	chs, err := c.sess.GuildChannels(guildID, discordgo.WithContext(ctx))
	return chs, classify("list channels", err)
}

func (c *Client) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	ch, err := c.sess.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	return ch, classify("create channel", err)
}

func (c *Client) SetOverwrite(ctx context.Context, channelID string, ow *discordgo.PermissionOverwrite) error {
	err := c.sess.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny, discordgo.WithContext(ctx))
	return classify("set overwrite", err)
}

func (c *Client) ScheduledEvent(ctx context.Context, guildID, eventID string) (*discordgo.GuildScheduledEvent, error) {
	ev, err := c.sess.GuildScheduledEvent(guildID, eventID, false, discordgo.WithContext(ctx))
	return ev, classify("get scheduled event", err)
}

func (c *Client) ScheduledEvents(ctx context.Context, guildID string) ([]*discordgo.GuildScheduledEvent, error) {
	evs, err := c.sess.GuildScheduledEvents(guildID, false, discordgo.WithContext(ctx))
	return evs, classify("list scheduled events", err)
}

func (c *Client) Integrations(ctx context.Context, guildID string) ([]*discordgo.Integration, error) {
	in, err := c.sess.GuildIntegrations(guildID, discordgo.WithContext(ctx))
	return in, classify("list integrations", err)
}

// Download fetches a CDN file of at most max bytes.
func (c *Client) Download(ctx context.Context, url string, max int64) ([]byte, string, error) {
	return c.cdn.Download(ctx, url, max)
}

func (c *Client) avatarURI(ctx context.Context) string {
	self, err := c.Self(ctx)
	if err != nil || self.Avatar == "" {
		return ""
	}

	c.mu.Lock()
	cached := c.avatar
	c.mu.Unlock()
	if cached != "" {
		return cached
	}

	data, ct, err := c.cdn.Download(ctx, self.AvatarURL("256"), avatarLimit)
	if err != nil {
		c.log.Debug("failed to fetch own avatar", zap.Error(err))
		return ""
	}
	uri := DataURI(ct, data)
	c.mu.Lock()
	c.avatar = uri
	c.mu.Unlock()
	return uri
}

package eventlog

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var webhookURLPattern = regexp.MustCompile(`^https://(?:(?:canary|ptb)\.)?discord(?:app)?\.com/api/(?:v\d+/)?webhooks/(\d+)/([\w-]+)$`)

// WebhookHandle identifies an executable webhook.
type WebhookHandle struct {
	ID    string
	Token string
}

// ParseWebhookURL builds a handle from a stored URL. The handle is not checked against the platform.
func ParseWebhookURL(u string) (WebhookHandle, error) {
	m := webhookURLPattern.FindStringSubmatch(u)
	if m == nil {
		return WebhookHandle{}, fmt.Errorf("%w: %q", ErrInvalidWebhookURL, u)
	}
	return WebhookHandle{ID: m[1], Token: m[2]}, nil
}

func (h WebhookHandle) URL() string {
	return "https://discord.com/api/webhooks/" + h.ID + "/" + h.Token
}

// identity lazily fetches and remembers the bot user.
type identity struct {
	client Client

	mu   sync.Mutex
	user *discordgo.User
}

func (i *identity) get(ctx context.Context) (*discordgo.User, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.user != nil {
		return i.user, nil
	}
	u, err := i.client.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch bot user: %w", err)
	}
	i.user = u
	return u, nil
}

// Resolver finds a working webhook for an event type's channel.
type Resolver struct {
	client Client
	store  *Store
	id     *identity
	log    *zap.Logger
}

func newResolver(client Client, store *Store, id *identity, log *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		store:  store,
		id:     id,
		log:    log,
	}
}

// Resolve returns the webhook for t in channelID. A cached URL is trusted as long as it parses.
// Otherwise a webhook this bot already owns in the channel is adopted, or a new one is created,
// and its URL is saved to the guild config.
func (r *Resolver) Resolve(ctx context.Context, gid string, t EventType, channelID string) (WebhookHandle, error) {
	cfg, err := r.store.Get(ctx, gid)
	if err != nil {
		return WebhookHandle{}, err
	}

	if u, ok := cfg.Webhooks[t]; ok {
		h, err := ParseWebhookURL(u)
		if err == nil {
			return h, nil
		}
		r.log.Warn("cached webhook is unusable, replacing it",
			zap.String("guild", gid), zap.Stringer("type", t), zap.Error(err))
	}

	h, err := r.Provision(ctx, t, channelID)
	if err != nil {
		return WebhookHandle{}, err
	}

	_, err = r.store.Update(ctx, gid, func(c *GuildConfig) error {
		if c.Channels[t] == channelID {
			c.Webhooks[t] = h.URL()
		}
		return nil
	})
	if err != nil {
		r.log.Warn("failed to save webhook", zap.String("guild", gid), zap.Stringer("type", t), zap.Error(err))
	}
	return h, nil
}

// Provision adopts or creates a webhook in channelID without touching the guild config.
func (r *Resolver) Provision(ctx context.Context, t EventType, channelID string) (WebhookHandle, error) {
	self, err := r.id.get(ctx)
	if err != nil {
		return WebhookHandle{}, err
	}

	hooks, err := r.client.ChannelWebhooks(ctx, channelID)
	if err != nil {
		return WebhookHandle{}, fmt.Errorf("list webhooks of %s: %w", channelID, err)
	}
	for _, wh := range hooks {
		if wh.User != nil && wh.User.ID == self.ID && wh.Token != "" {
			return WebhookHandle{ID: wh.ID, Token: wh.Token}, nil
		}
	}

	wh, err := r.client.CreateWebhook(ctx, channelID, webhookName(self, t))
	if err != nil {
		return WebhookHandle{}, fmt.Errorf("create webhook in %s: %w", channelID, err)
	}
	webhooksCreatedTotal.Inc()
	r.log.Info("created webhook", zap.String("channel", channelID), zap.Stringer("type", t), zap.String("webhook", wh.ID))
	return WebhookHandle{ID: wh.ID, Token: wh.Token}, nil
}

// Invalidate drops the cached webhook of t.
func (r *Resolver) Invalidate(ctx context.Context, gid string, t EventType) error {
	_, err := r.store.Update(ctx, gid, func(c *GuildConfig) error {
		delete(c.Webhooks, t)
		return nil
	})
	return err
}

func webhookName(self *discordgo.User, t EventType) string {
	name := fmt.Sprintf("%s %s", self.Username, t.Title())
	if r := []rune(name); len(r) > 80 {
		name = string(r[:80])
	}
	return name
}

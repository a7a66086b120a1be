package eventlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	LogViewRoleName = "log view"
	LogCategoryName = "💬│Server Logs"
)

// Bind points t at channelID, enables logging and stores a working webhook for the channel.
// Nothing is persisted when no webhook can be obtained.
func (s *Service) Bind(ctx context.Context, gid string, t EventType, channelID string) (WebhookHandle, error) {
	if !t.Valid() {
		return WebhookHandle{}, fmt.Errorf("unknown event type %q", t)
	}
	h, err := s.Resolver.Provision(ctx, t, channelID)
	if err != nil {
		return WebhookHandle{}, err
	}
	_, err = s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.Enabled = true
		c.Bind(t, channelID)
		c.Webhooks[t] = h.URL()
		return nil
	})
	if err != nil {
		return WebhookHandle{}, err
	}
	return h, nil
}

// Unbind removes the binding of t. It reports false when t was not configured.
func (s *Service) Unbind(ctx context.Context, gid string, t EventType) (bool, error) {
	var found bool
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		found = c.Unbind(t)
		return nil
	})
	return found, err
}

func (s *Service) SetEnabled(ctx context.Context, gid string, enabled bool) (*GuildConfig, error) {
	return s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.Enabled = enabled
		return nil
	})
}

// ClearSetup disables logging and forgets every binding. The stored record is kept.
func (s *Service) ClearSetup(ctx context.Context, gid string) error {
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.Clear()
		return nil
	})
	return err
}

// Ignore adds id to an ignore list. It reports false when id was already listed.
func (s *Service) Ignore(ctx context.Context, gid string, k IgnoreKind, id string) (bool, error) {
	var added bool
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		added = c.AddIgnored(k, id)
		return nil
	})
	return added, err
}

// Unignore removes id from an ignore list. It reports false when id was not listed.
func (s *Service) Unignore(ctx context.Context, gid string, k IgnoreKind, id string) (bool, error) {
	var removed bool
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		removed = c.RemoveIgnored(k, id)
		return nil
	})
	return removed, err
}

func (s *Service) SetIgnoreEmbeds(ctx context.Context, gid string, on bool) error {
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.IgnoreEmbeds = on
		return nil
	})
	return err
}

func (s *Service) SetVoiceLogIgnore(ctx context.Context, gid string, on bool) error {
	_, err := s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.VoiceLogIgnore = on
		return nil
	})
	return err
}

// SetupReport describes what AutoSetup did.
type SetupReport struct {
	RoleID     string
	CategoryID string
	Channels   map[EventType]string
	Created    []EventType
	// NoWebhook lists the types bound without a webhook. Their webhooks are created on first dispatch.
	NoWebhook []EventType
}

// AutoSetup provisions the view role, the log category and one channel per event type, then
// enables logging with every type bound. Existing role, category and channels with the expected
// names are reused, so running it twice does not duplicate anything.
func (s *Service) AutoSetup(ctx context.Context, gid string, p Provisioner) (*SetupReport, error) {
	self, err := s.id.get(ctx)
	if err != nil {
		return nil, err
	}
	log := s.log.With(zap.String("guild", gid))
	rep := &SetupReport{Channels: make(map[EventType]string, len(EventTypes))}

	role, err := findOrCreateRole(ctx, p, gid, LogViewRoleName)
	if err != nil {
		return nil, fmt.Errorf("view role: %w", err)
	}
	rep.RoleID = role.ID

	channels, err := p.GuildChannels(ctx, gid)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	overwrites := categoryOverwrites(gid, role.ID, self.ID)
	category := findChannel(channels, LogCategoryName, discordgo.ChannelTypeGuildCategory, "")
	if category == nil {
		category, err = p.CreateChannel(ctx, gid, discordgo.GuildChannelCreateData{
			Name:                 LogCategoryName,
			Type:                 discordgo.ChannelTypeGuildCategory,
			PermissionOverwrites: overwrites,
		})
		if err != nil {
			return nil, fmt.Errorf("create category: %w", err)
		}
	} else {
		for _, ow := range overwrites {
			if err := p.SetOverwrite(ctx, category.ID, ow); err != nil {
				return nil, fmt.Errorf("update category permissions: %w", err)
			}
		}
	}
	rep.CategoryID = category.ID

	hooks := make(map[EventType]string, len(EventTypes))
	for _, t := range EventTypes {
		ch := findChannel(channels, t.ChannelName(), discordgo.ChannelTypeGuildText, category.ID)
		if ch == nil {
			ch, err = p.CreateChannel(ctx, gid, discordgo.GuildChannelCreateData{
				Name:     t.ChannelName(),
				Type:     discordgo.ChannelTypeGuildText,
				Topic:    "Logs for " + t.Name() + ".",
				ParentID: category.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("create %s channel: %w", t, err)
			}
			rep.Created = append(rep.Created, t)
		}
		rep.Channels[t] = ch.ID

		h, err := s.Resolver.Provision(ctx, t, ch.ID)
		if err != nil {
			if !errors.Is(err, ErrPermissionDenied) {
				log.Warn("failed to provision webhook", zap.Stringer("type", t), zap.Error(err))
			}
			rep.NoWebhook = append(rep.NoWebhook, t)
			continue
		}
		hooks[t] = h.URL()
	}

	_, err = s.Configs.Update(ctx, gid, func(c *GuildConfig) error {
		c.Enabled = true
		c.CategoryID = category.ID
		for t, ch := range rep.Channels {
			c.Bind(t, ch)
		}
		for t, u := range hooks {
			c.Webhooks[t] = u
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("automatic setup finished", zap.Int("created", len(rep.Created)), zap.Int("without_webhook", len(rep.NoWebhook)))
	return rep, nil
}

func findOrCreateRole(ctx context.Context, p Provisioner, gid, name string) (*discordgo.Role, error) {
	roles, err := p.GuildRoles(ctx, gid)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == name {
			return r, nil
		}
	}
	return p.CreateRole(ctx, gid, name)
}

func findChannel(channels []*discordgo.Channel, name string, typ discordgo.ChannelType, parentID string) *discordgo.Channel {
	for _, ch := range channels {
		if ch.Type != typ || ch.Name != name {
			continue
		}
		if parentID != "" && ch.ParentID != parentID {
			continue
		}
		return ch
	}
	return nil
}

// categoryOverwrites hides the category from @everyone, gives the view role read access and
// lets the bot post and manage webhooks. The @everyone role shares the guild's id.
func categoryOverwrites(gid, roleID, botID string) []*discordgo.PermissionOverwrite {
	return []*discordgo.PermissionOverwrite{
		{
			ID:   gid,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
		{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
			Deny:  discordgo.PermissionSendMessages,
		},
		{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageWebhooks,
		},
	}
}

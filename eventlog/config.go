package eventlog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// GuildConfig is the logging configuration of one guild. It is normalized once when decoded,
// so read sites never need to fill in defaults.
type GuildConfig struct {
	Enabled    bool
	CategoryID string
	// Channels maps an event type to its destination channel.
	Channels map[EventType]string
	// Webhooks caches the webhook URL used for each bound type. An entry may be stale.
	Webhooks map[EventType]string

	IgnoreEmbeds    bool
	IgnoredChannels []string
	IgnoredUsers    []string
	IgnoredRoles    []string
	// VoiceLogIgnore makes voice events respect the ignore lists.
	VoiceLogIgnore bool
}

// NewGuildConfig returns the default configuration: disabled, nothing bound, nothing ignored.
func NewGuildConfig() *GuildConfig {
	return &GuildConfig{
		Channels:        make(map[EventType]string),
		Webhooks:        make(map[EventType]string),
		IgnoredChannels: []string{},
		IgnoredUsers:    []string{},
		IgnoredRoles:    []string{},
	}
}

func (c *GuildConfig) Clone() *GuildConfig {
	out := *c
	out.Channels = make(map[EventType]string, len(c.Channels))
	for k, v := range c.Channels {
		out.Channels[k] = v
	}
	out.Webhooks = make(map[EventType]string, len(c.Webhooks))
	for k, v := range c.Webhooks {
		out.Webhooks[k] = v
	}
	out.IgnoredChannels = slices.Clone(c.IgnoredChannels)
	out.IgnoredUsers = slices.Clone(c.IgnoredUsers)
	out.IgnoredRoles = slices.Clone(c.IgnoredRoles)
	return &out
}

// Bind points t at channelID. Any cached webhook for t is dropped, since it belongs to the old channel.
func (c *GuildConfig) Bind(t EventType, channelID string) {
	if c.Channels[t] != channelID {
		delete(c.Webhooks, t)
	}
	c.Channels[t] = channelID
}

// Unbind removes the channel and webhook of t, reporting whether t was bound.
func (c *GuildConfig) Unbind(t EventType) bool {
	_, ok := c.Channels[t]
	delete(c.Channels, t)
	delete(c.Webhooks, t)
	return ok
}

// OwnsWebhook reports whether webhookID is one of the cached log webhooks.
func (c *GuildConfig) OwnsWebhook(webhookID string) bool {
	if webhookID == "" {
		return false
	}
	for _, u := range c.Webhooks {
		if h, err := ParseWebhookURL(u); err == nil && h.ID == webhookID {
			return true
		}
	}
	return false
}

// Clear resets the setup while keeping the ignore lists.
func (c *GuildConfig) Clear() {
	c.Enabled = false
	c.CategoryID = ""
	c.Channels = make(map[EventType]string)
	c.Webhooks = make(map[EventType]string)
}

// IgnoreKind selects one of the ignore lists.
type IgnoreKind int

const (
	IgnoreChannel IgnoreKind = iota
	IgnoreUser
	IgnoreRole
)

func (k IgnoreKind) String() string {
	switch k {
	case IgnoreChannel:
		return "channel"
	case IgnoreUser:
		return "user"
	case IgnoreRole:
		return "role"
	}
	return "unknown"
}

func (c *GuildConfig) list(k IgnoreKind) *[]string {
	switch k {
	case IgnoreUser:
		return &c.IgnoredUsers
	case IgnoreRole:
		return &c.IgnoredRoles
	default:
		return &c.IgnoredChannels
	}
}

// AddIgnored adds id to the list of kind k. It returns false when id was already there.
func (c *GuildConfig) AddIgnored(k IgnoreKind, id string) bool {
	l := c.list(k)
	if id == "" || slices.Contains(*l, id) {
		return false
	}
	*l = append(*l, id)
	return true
}

// RemoveIgnored removes id from the list of kind k. It returns false when id was not there.
func (c *GuildConfig) RemoveIgnored(k IgnoreKind, id string) bool {
	l := c.list(k)
	i := slices.Index(*l, id)
	if i < 0 {
		return false
	}
	*l = slices.Delete(*l, i, i+1)
	return true
}

// Ignores reports whether an event with the given subject is suppressed.
// A disabled guild ignores everything.
func (c *GuildConfig) Ignores(s Subject) bool {
	if !c.Enabled {
		return true
	}
	if s.ChannelID != "" && slices.Contains(c.IgnoredChannels, s.ChannelID) {
		return true
	}
	if s.UserID != "" && slices.Contains(c.IgnoredUsers, s.UserID) {
		return true
	}
	for _, r := range s.RoleIDs {
		if slices.Contains(c.IgnoredRoles, r) {
			return true
		}
	}
	return false
}

// snowflake accepts ids stored either as JSON numbers or strings.
type snowflake string

func (s *snowflake) UnmarshalJSON(b []byte) error {
	v := strings.Trim(string(b), `"`)
	if v == "null" || v == "" {
		*s = ""
		return nil
	}
	if _, err := strconv.ParseUint(v, 10, 64); err != nil {
		return fmt.Errorf("invalid id %q", v)
	}
	*s = snowflake(v)
	return nil
}

type storedConfig struct {
	CategoryID      *snowflake           `json:"log_category_id"`
	Channels        map[string]snowflake `json:"log_channel_ids"`
	Webhooks        map[string]*string   `json:"webhooks"`
	Enabled         bool                 `json:"logging_enabled"`
	IgnoreEmbeds    bool                 `json:"ignore_embeds"`
	IgnoredChannels []snowflake          `json:"ignored_channels"`
	IgnoredUsers    []snowflake          `json:"ignored_users"`
	IgnoredRoles    []snowflake          `json:"ignored_roles"`
	VoiceLogIgnore  bool                 `json:"voice_log_ignore"`
}

// DecodeConfig parses a stored blob. Missing keys take their defaults, unknown event types and
// empty ids are dropped, and a webhook without a channel binding is discarded.
func DecodeConfig(data []byte) (*GuildConfig, error) {
	var sc storedConfig
	if err := sonic.ConfigStd.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode guild config: %w", err)
	}

	c := NewGuildConfig()
	c.Enabled = sc.Enabled
	c.IgnoreEmbeds = sc.IgnoreEmbeds
	c.VoiceLogIgnore = sc.VoiceLogIgnore
	if sc.CategoryID != nil {
		c.CategoryID = string(*sc.CategoryID)
	}
	for k, v := range sc.Channels {
		t, ok := ParseEventType(k)
		if !ok || v == "" {
			continue
		}
		c.Channels[t] = string(v)
	}
	for k, v := range sc.Webhooks {
		t, ok := ParseEventType(k)
		if !ok || v == nil || *v == "" {
			continue
		}
		if _, bound := c.Channels[t]; !bound {
			continue
		}
		c.Webhooks[t] = *v
	}
	c.IgnoredChannels = uniqueIDs(sc.IgnoredChannels)
	c.IgnoredUsers = uniqueIDs(sc.IgnoredUsers)
	c.IgnoredRoles = uniqueIDs(sc.IgnoredRoles)
	return c, nil
}

// EncodeConfig produces the stored form of c. Keys are sorted so equal configs encode equally.
func EncodeConfig(c *GuildConfig) ([]byte, error) {
	sc := storedConfig{
		Channels:        make(map[string]snowflake, len(c.Channels)),
		Webhooks:        make(map[string]*string, len(c.Webhooks)),
		Enabled:         c.Enabled,
		IgnoreEmbeds:    c.IgnoreEmbeds,
		IgnoredChannels: toSnowflakes(c.IgnoredChannels),
		IgnoredUsers:    toSnowflakes(c.IgnoredUsers),
		IgnoredRoles:    toSnowflakes(c.IgnoredRoles),
		VoiceLogIgnore:  c.VoiceLogIgnore,
	}
	if c.CategoryID != "" {
		id := snowflake(c.CategoryID)
		sc.CategoryID = &id
	}
	for k, v := range c.Channels {
		sc.Channels[string(k)] = snowflake(v)
	}
	for k, v := range c.Webhooks {
		url := v
		sc.Webhooks[string(k)] = &url
	}
	return sonic.ConfigStd.Marshal(&sc)
}

func uniqueIDs(in []snowflake) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		if id == "" || slices.Contains(out, string(id)) {
			continue
		}
		out = append(out, string(id))
	}
	return out
}

func toSnowflakes(in []string) []snowflake {
	out := make([]snowflake, len(in))
	for i, id := range in {
		out[i] = snowflake(id)
	}
	return out
}

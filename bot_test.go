package guildlog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/database"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/guildlog/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

const testGuild = "1"

type sent struct {
	webhookID string
	params    *discordgo.WebhookParams
}

// fakePlatform is a single guild. Every created webhook accepts messages.
type fakePlatform struct {
	mu sync.Mutex

	self         *discordgo.User
	channels     map[string]*discordgo.Channel
	hooks        map[string][]*discordgo.Webhook
	roles        []*discordgo.Role
	users        map[string]*discordgo.User
	audit        []*discordgo.AuditLogEntry
	integrations []*discordgo.Integration
	files        map[string][]byte
	members      int
	nextID       int

	executed []sent
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		self:     &discordgo.User{ID: "100", Username: "guildlog", Bot: true},
		channels: make(map[string]*discordgo.Channel),
		hooks:    make(map[string][]*discordgo.Webhook),
		users:    make(map[string]*discordgo.User),
		files:    make(map[string][]byte),
		nextID:   5000,
	}
}

func (p *fakePlatform) addChannel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[id] = &discordgo.Channel{ID: id, GuildID: testGuild, Name: "chan-" + id, Type: discordgo.ChannelTypeGuildText}
}

// addAudit records an entry made now by userID, newest first like the platform returns them.
func (p *fakePlatform) addAudit(action discordgo.AuditLogAction, targetID, userID string) *discordgo.AuditLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	ms := time.Now().UnixMilli() - 1420070400000
	e := &discordgo.AuditLogEntry{
		ID:         strconv.FormatInt(ms<<22|int64(p.nextID), 10),
		ActionType: &action,
		TargetID:   targetID,
		UserID:     userID,
	}
	p.audit = append([]*discordgo.AuditLogEntry{e}, p.audit...)
	return e
}

func (p *fakePlatform) addHook(channelID string, wh *discordgo.Webhook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks[channelID] = append(p.hooks[channelID], wh)
}

func (p *fakePlatform) sent() []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sent(nil), p.executed...)
}

// sentTo returns the messages delivered to webhooks in channelID.
func (p *fakePlatform) sentTo(channelID string) []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sent
	for _, s := range p.executed {
		for _, wh := range p.hooks[channelID] {
			if wh.ID == s.webhookID {
				out = append(out, s)
			}
		}
	}
	return out
}

func (p *fakePlatform) Self(context.Context) (*discordgo.User, error) {
	return p.self, nil
}

func (p *fakePlatform) Channel(_ context.Context, id string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[id]
	if !ok {
		return nil, eventlog.ErrNotFound
	}
	return ch, nil
}

func (p *fakePlatform) ChannelWebhooks(_ context.Context, id string) ([]*discordgo.Webhook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[id]; !ok {
		return nil, eventlog.ErrNotFound
	}
	return append([]*discordgo.Webhook(nil), p.hooks[id]...), nil
}

func (p *fakePlatform) CreateWebhook(_ context.Context, channelID, name string) (*discordgo.Webhook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := strconv.Itoa(p.nextID)
	wh := &discordgo.Webhook{ID: id, Token: "token-" + id, Name: name, ChannelID: channelID, User: p.self}
	p.hooks[channelID] = append(p.hooks[channelID], wh)
	return wh, nil
}

func (p *fakePlatform) ExecuteWebhook(_ context.Context, id, _ string, params *discordgo.WebhookParams) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executed = append(p.executed, sent{webhookID: id, params: params})
	return nil
}

func (p *fakePlatform) AuditLog(_ context.Context, _ string, action discordgo.AuditLogAction, limit int) ([]*discordgo.AuditLogEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*discordgo.AuditLogEntry
	for _, e := range p.audit {
		if action != 0 && *e.ActionType != action {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *fakePlatform) GuildRoles(context.Context, string) ([]*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*discordgo.Role(nil), p.roles...), nil
}

func (p *fakePlatform) CreateRole(_ context.Context, _ string, name string) (*discordgo.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	r := &discordgo.Role{ID: strconv.Itoa(p.nextID), Name: name}
	p.roles = append(p.roles, r)
	return r, nil
}

func (p *fakePlatform) GuildChannels(context.Context, string) ([]*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*discordgo.Channel, 0, len(p.channels))
	for _, ch := range p.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (p *fakePlatform) CreateChannel(_ context.Context, gid string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	ch := &discordgo.Channel{ID: strconv.Itoa(p.nextID), GuildID: gid, Name: data.Name, Type: data.Type, ParentID: data.ParentID}
	p.channels[ch.ID] = ch
	return ch, nil
}

func (p *fakePlatform) SetOverwrite(context.Context, string, *discordgo.PermissionOverwrite) error {
	return nil
}

func (p *fakePlatform) User(_ context.Context, id string) (*discordgo.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return nil, eventlog.ErrNotFound
	}
	return u, nil
}

func (p *fakePlatform) ScheduledEvent(context.Context, string, string) (*discordgo.GuildScheduledEvent, error) {
	return nil, eventlog.ErrNotFound
}

func (p *fakePlatform) ScheduledEvents(context.Context, string) ([]*discordgo.GuildScheduledEvent, error) {
	return nil, nil
}

func (p *fakePlatform) Integrations(context.Context, string) ([]*discordgo.Integration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*discordgo.Integration(nil), p.integrations...), nil
}

func (p *fakePlatform) Download(_ context.Context, url string, _ int64) ([]byte, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.files[url]
	if !ok {
		return nil, "", errors.New("status 404")
	}
	return data, "image/png", nil
}

func (p *fakePlatform) Guild(gid string) *discordgo.Guild {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &discordgo.Guild{ID: gid, Roles: append([]*discordgo.Role(nil), p.roles...)}
}

func (p *fakePlatform) MemberCount(string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.members
}

type harness struct {
	bot      *Bot
	platform *fakePlatform
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := NewLogger(zapcore.DebugLevel, "console")
	log := zaptest.NewLogger(t)

	db, err := database.Open(&database.Config{Log: log, Driver: "json", Path: filepath.Join(t.TempDir(), "guilds.json")})
	require.NoError(t, err)

	p := newFakePlatform()
	store, err := kvstore.Open(kvstore.Options{Dir: t.TempDir(), Logger: logger.Badger()}, p, log.Named("kvstore"))
	require.NoError(t, err)

	svc := eventlog.NewService(db, p, log)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, svc.Shutdown())
	})
	return &harness{bot: newBot(svc, store, p, logger), platform: p}
}

// configure enables logging and binds each type to its channel.
func (h *harness) configure(t *testing.T, bindings map[eventlog.EventType]string, fn func(*eventlog.GuildConfig)) {
	t.Helper()
	for _, cid := range bindings {
		h.platform.addChannel(cid)
	}
	_, err := h.bot.service.Configs.Update(context.Background(), testGuild, func(c *eventlog.GuildConfig) error {
		c.Enabled = true
		for et, cid := range bindings {
			c.Bind(et, cid)
		}
		if fn != nil {
			fn(c)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestMemberJoinIsLogged(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Member: "20"}, nil)
	h.platform.members = 57

	u := &discordgo.User{ID: "175928847299117063", Username: "newcomer"}
	guildMemberAddHandler(h.bot)(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: testGuild, User: u}})

	out := h.platform.sentTo("20")
	require.Len(t, out, 1)
	assert.Len(t, h.platform.sent(), 1)
	require.NotEmpty(t, out[0].params.Embeds)

	created, err := discordgo.SnowflakeTimestamp(u.ID)
	require.NoError(t, err)
	desc := out[0].params.Embeds[0].Description
	assert.Contains(t, desc, fmt.Sprintf("<t:%d:F>", created.Unix()))
	assert.Contains(t, desc, "57")

	m, err := h.bot.store.GetMember(testGuild, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "newcomer", m.User.Username)
}

func TestMemberJoinIgnoredUser(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Member: "20"}, func(c *eventlog.GuildConfig) {
		c.AddIgnored(eventlog.IgnoreUser, "7")
	})

	guildMemberAddHandler(h.bot)(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: testGuild, User: &discordgo.User{ID: "7"}}})
	assert.Empty(t, h.platform.sent())
}

func TestMemberJoinDisabledGuild(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Member: "20"}, func(c *eventlog.GuildConfig) {
		c.Enabled = false
	})

	guildMemberAddHandler(h.bot)(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: testGuild, User: &discordgo.User{ID: "7"}}})
	assert.Empty(t, h.platform.sent())
}

func TestMessageDeleteRespectsIgnoredChannel(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Message: "30"}, func(c *eventlog.GuildConfig) {
		c.AddIgnored(eventlog.IgnoreChannel, "42")
	})
	h.platform.addChannel("42")
	h.platform.addChannel("43")

	author := &discordgo.User{ID: "7", Username: "talker"}
	for i, cid := range []string{"42", "43"} {
		msg := &discordgo.Message{
			ID:        strconv.Itoa(900 + i),
			ChannelID: cid,
			GuildID:   testGuild,
			Author:    author,
			Content:   "hello from " + cid,
			Timestamp: time.Now(),
		}
		messageCreateHandler(h.bot)(nil, &discordgo.MessageCreate{Message: msg})
	}

	messageDeleteHandler(h.bot)(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "900", ChannelID: "42", GuildID: testGuild}})
	assert.Empty(t, h.platform.sent())

	messageDeleteHandler(h.bot)(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "901", ChannelID: "43", GuildID: testGuild}})
	out := h.platform.sentTo("30")
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].params.Embeds)
	require.NotEmpty(t, out[0].params.Embeds[0].Fields)
	assert.Equal(t, "hello from 43", out[0].params.Embeds[0].Fields[0].Value)

	_, err := h.bot.store.GetMessage(testGuild, "43", "901")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestMessageDeleteUnknownMessage(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Message: "30"}, nil)

	messageDeleteHandler(h.bot)(nil, &discordgo.MessageDelete{Message: &discordgo.Message{ID: "1", ChannelID: "43", GuildID: testGuild}})
	assert.Empty(t, h.platform.sent())
}

func TestToggleAnnouncesOnlyWhenEnabled(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.System: "10"}, nil)
	m := &module{gb: h.bot}
	by := &discordgo.User{ID: "7", Username: "admin"}
	ctx := context.Background()

	assert.Equal(t, "Logging disabled", m.toggle(ctx, testGuild, false, by))
	cfg, err := h.bot.service.Configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, h.platform.sent())

	assert.Equal(t, "Logging enabled", m.toggle(ctx, testGuild, true, by))
	cfg, err = h.bot.service.Configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Len(t, h.platform.sentTo("10"), 1)
}

func TestIgnoreCommandMessages(t *testing.T) {
	h := newHarness(t)
	m := &module{gb: h.bot}
	ctx := context.Background()

	assert.Equal(t, "Now ignoring <#42>", m.ignore(ctx, testGuild, eventlog.IgnoreChannel, "42"))
	assert.Equal(t, fmt.Sprintf("That %v is already ignored", eventlog.IgnoreChannel), m.ignore(ctx, testGuild, eventlog.IgnoreChannel, "42"))

	text := m.unignore(ctx, testGuild, map[eventlog.IgnoreKind]string{eventlog.IgnoreChannel: "42", eventlog.IgnoreUser: "7"})
	assert.Contains(t, text, "No longer ignoring <#42>")
	assert.Contains(t, text, "Not ignored:")

	cfg, err := h.bot.service.Configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, cfg.IgnoredChannels)
}

func TestSetChannelAndDisable(t *testing.T) {
	h := newHarness(t)
	h.platform.addChannel("50")
	m := &module{gb: h.bot}
	ctx := context.Background()

	assert.Contains(t, m.setChannel(ctx, testGuild, eventlog.Role, "50"), "<#50>")
	cfg, err := h.bot.service.Configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, "50", cfg.Channels[eventlog.Role])

	assert.Contains(t, m.disable(ctx, testGuild, eventlog.Role), "disabled")
	assert.Contains(t, m.disable(ctx, testGuild, eventlog.Role), "not configured")
}

func TestAutoSetupThenStatus(t *testing.T) {
	h := newHarness(t)
	m := &module{gb: h.bot}
	ctx := context.Background()

	embed, failure := m.autoSetup(ctx, testGuild)
	require.Empty(t, failure)
	require.NotNil(t, embed)

	cfg, err := h.bot.service.Configs.Get(ctx, testGuild)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Len(t, cfg.Channels, len(eventlog.EventTypes))

	status, err := m.status(ctx, testGuild)
	require.NoError(t, err)
	assert.NotNil(t, status)
}

func TestRoleUpdateWithoutChangeSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.configure(t, map[eventlog.EventType]string{eventlog.Role: "60"}, nil)
	r := &discordgo.Role{ID: "70", Name: "mods", Permissions: discordgo.PermissionKickMembers}
	require.NoError(t, h.bot.store.SetRole(testGuild, r))

	guildRoleUpdateHandler(h.bot)(nil, &discordgo.GuildRoleUpdate{GuildRole: &discordgo.GuildRole{GuildID: testGuild, Role: r}})
	assert.Empty(t, h.platform.sent())

	renamed := *r
	renamed.Name = "moderators"
	guildRoleUpdateHandler(h.bot)(nil, &discordgo.GuildRoleUpdate{GuildRole: &discordgo.GuildRole{GuildID: testGuild, Role: &renamed}})
	assert.Len(t, h.platform.sentTo("60"), 1)
}

func TestFirstReport(t *testing.T) {
	b := &Bot{}
	e := &discordgo.AuditLogEntry{ID: "1"}
	assert.True(t, b.firstReport(e))
	assert.False(t, b.firstReport(e))
	assert.False(t, b.firstReport(nil))

	b.seen.Delete("1")
	assert.True(t, b.firstReport(e))
}

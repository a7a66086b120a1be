package format

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/meido/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	prev := now
	now = func() time.Time { return testNow }
	t.Cleanup(func() { now = prev })
}

func snowflakeAt(ts time.Time) string {
	return strconv.FormatInt((ts.UnixMilli()-1420070400000)<<22, 10)
}

func field(e *discordgo.MessageEmbed, name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func known(userID string) eventlog.Attribution {
	return eventlog.Attribution{UserID: userID, Reason: "cleanup"}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	got := truncate(strings.Repeat("é", 10), 9)
	assert.LessOrEqual(t, len(got), 9)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.True(t, utf8Valid(got))
}

func utf8Valid(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

func TestJoinLimited(t *testing.T) {
	assert.Equal(t, "None", joinLimited(nil, 10))
	assert.Equal(t, "a, b", joinLimited([]string{"a", "b"}, 10))
	assert.Equal(t, "aaaa and 2 more", joinLimited([]string{"aaaa", "bbbb", "cccc"}, 6))
}

func TestDetails(t *testing.T) {
	d := &details{}
	d.add("User", "x").addIf(false, "Skipped", "y").addIf(true, "Kept", 3)
	assert.Equal(t, "> **User :** x\n> **Kept :** 3", d.String())
}

func TestMemberJoined(t *testing.T) {
	freezeClock(t)
	created := testNow.Add(-400 * 24 * time.Hour)
	m := &discordgo.Member{User: &discordgo.User{ID: snowflakeAt(created), Username: "newbie"}}

	p := MemberJoined(m, 1234, eventlog.Attribution{})
	require.NotNil(t, p)
	require.Len(t, p.Embeds, 1)
	e := p.Embed()
	assert.Equal(t, "User Joined", e.Title)
	ts := utils.IDToTimestamp(m.User.ID)
	assert.Contains(t, e.Description, fmt.Sprintf("<t:%d:R>", ts.Unix()))
	assert.Contains(t, e.Description, "> **Total members :** 1234")
	assert.NotContains(t, e.Description, "Added by")
	assert.Equal(t, testNow.Format(time.RFC3339), e.Timestamp)
	_, young := field(e, "Notice")
	assert.False(t, young)
	assert.Nil(t, e.Footer)
}

func TestBotJoinedShowsAdder(t *testing.T) {
	freezeClock(t)
	m := &discordgo.Member{User: &discordgo.User{ID: snowflakeAt(testNow.Add(-time.Hour)), Username: "helper", Bot: true}}

	e := MemberJoined(m, 5, known("77")).Embed()
	assert.Equal(t, "Bot Joined", e.Title)
	assert.Contains(t, e.Description, "> **Added by :** <@77>")
	_, young := field(e, "Notice")
	assert.True(t, young)
	require.NotNil(t, e.Footer)
	assert.Contains(t, e.Footer.Text, "77")

	assert.Nil(t, MemberJoined(nil, 1, eventlog.Attribution{}))
}

func TestMemberLeftListsRoles(t *testing.T) {
	u := &discordgo.User{ID: "5", Username: "gone"}
	e := MemberLeft(u, &discordgo.Member{Roles: []string{"1", "2"}}, 10).Embed()
	roles, ok := field(e, "Roles")
	require.True(t, ok)
	assert.Equal(t, "<@&1>, <@&2>", roles)

	e = MemberKicked(u, nil, eventlog.Attribution{}).Embed()
	assert.Contains(t, e.Description, "> **Kicked by :** Unknown")
	assert.Contains(t, e.Description, "No reason provided")
}

func TestRoleDiff(t *testing.T) {
	added, removed := RoleDiff([]string{"1", "2"}, []string{"2", "3"})
	assert.Equal(t, []string{"3"}, added)
	assert.Equal(t, []string{"1"}, removed)

	before := &discordgo.Member{Roles: []string{"1"}, User: &discordgo.User{ID: "5"}}
	assert.Nil(t, MemberRolesChanged(before, before, eventlog.Attribution{}))
	assert.Nil(t, NicknameChanged(before, before, eventlog.Attribution{}))
}

func TestTimeoutChanged(t *testing.T) {
	freezeClock(t)
	u := &discordgo.User{ID: "5"}
	until := testNow.Add(time.Hour)
	expired := testNow.Add(-time.Hour)

	on := TimeoutChanged(&discordgo.Member{User: u}, &discordgo.Member{User: u, CommunicationDisabledUntil: &until}, known("9"))
	require.NotNil(t, on)
	assert.Equal(t, "Timed out", on.Embed().Title)

	off := TimeoutChanged(&discordgo.Member{User: u, CommunicationDisabledUntil: &until}, &discordgo.Member{User: u}, known("9"))
	require.NotNil(t, off)
	assert.Equal(t, "Timeout removed", off.Embed().Title)

	assert.Nil(t, TimeoutChanged(&discordgo.Member{User: u, CommunicationDisabledUntil: &expired}, &discordgo.Member{User: u}, known("9")))
	assert.Nil(t, TimeoutChanged(&discordgo.Member{User: u, CommunicationDisabledUntil: &until}, &discordgo.Member{User: u, CommunicationDisabledUntil: &until}, known("9")))
}

func TestHighRiskRoleGranted(t *testing.T) {
	m := &discordgo.Member{User: &discordgo.User{ID: "5"}}
	safe := &discordgo.Role{ID: "1", Name: "chatter", Permissions: discordgo.PermissionSendMessages}
	admin := &discordgo.Role{ID: "2", Name: "admin", Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages}

	assert.Nil(t, HighRiskRoleGranted(m, safe, eventlog.Attribution{}))
	e := HighRiskRoleGranted(m, admin, eventlog.Attribution{}).Embed()
	perms, _ := field(e, "Permissions")
	assert.Equal(t, "Administrator", perms)
}

func TestPermissionNames(t *testing.T) {
	bits := int64(discordgo.PermissionBanMembers | discordgo.PermissionAddReactions)
	assert.Equal(t, []string{"Ban Members", "Add Reactions"}, PermissionNames(bits))
	assert.Equal(t, []string{"Ban Members"}, DangerousIn(bits))
	assert.Empty(t, DangerousIn(discordgo.PermissionSendMessages))
}

func TestMemberBannedAttachesHistory(t *testing.T) {
	freezeClock(t)
	u := &discordgo.User{ID: "5", Username: "spammer"}
	history := []*discordgo.Message{
		{ID: snowflakeAt(testNow.Add(-time.Minute)), ChannelID: "20", Content: "second"},
		{ID: snowflakeAt(testNow.Add(-time.Hour)), ChannelID: "21", Content: "first", Attachments: []*discordgo.MessageAttachment{{ID: "1"}}},
	}
	names := map[string]string{"20": "general"}

	p := MemberBanned(u, true, known("9"), history, func(id string) string { return names[id] })
	require.Len(t, p.Files, 1)
	assert.Equal(t, fmt.Sprintf("24h_ban_log_5_%d.txt", testNow.Unix()), p.Files[0].Name)
	log := string(p.Files[0].Data)
	assert.Less(t, strings.Index(log, "first"), strings.Index(log, "second"))
	assert.Contains(t, log, "Channel: general (20)")
	assert.Contains(t, log, "Channel: 21 (21)")
	assert.Contains(t, log, "Message had attachment")
	total, _ := field(p.Embed(), "Total messages")
	assert.Equal(t, "2", total)

	p = MemberBanned(u, false, eventlog.Attribution{}, nil, nil)
	assert.Empty(t, p.Files)
	assert.Contains(t, p.Embed().Description, "User was not in the server")
}

func TestMessageDeleted(t *testing.T) {
	author := &discordgo.User{ID: "5", Username: "talker"}
	ch := &discordgo.Channel{ID: "40", Name: "general"}

	t.Run("short content", func(t *testing.T) {
		m := &discordgo.Message{ID: "1", GuildID: "1", ChannelID: "40", Author: author, Content: "hello"}
		p := MessageDeleted(m, ch, nil, false)
		require.NotNil(t, p)
		msg, _ := field(p.Embed(), "Message")
		assert.Equal(t, "hello", msg)
		assert.Empty(t, p.Files)
	})
	t.Run("long content goes to a file", func(t *testing.T) {
		long := strings.Repeat("x", 2000)
		m := &discordgo.Message{ID: "1", ChannelID: "40", Author: author, Content: long}
		p := MessageDeleted(m, ch, nil, false)
		msg, _ := field(p.Embed(), "Message")
		assert.Equal(t, tooLongNote, msg)
		require.Len(t, p.Files, 1)
		assert.Equal(t, long, string(p.Files[0].Data))
	})
	t.Run("attachments are re-hosted", func(t *testing.T) {
		m := &discordgo.Message{ID: "1", ChannelID: "40", Author: author,
			Attachments: []*discordgo.MessageAttachment{{Filename: "a.png", URL: "https://cdn/a.png"}}}
		files := []eventlog.File{{Name: "a.png", ContentType: "image/png", Data: []byte{1}}}
		p := MessageDeleted(m, ch, files, false)
		require.Len(t, p.Files, 1)
		_, ok := field(p.Embed(), "1 Attachment(s)")
		assert.True(t, ok)
	})
	t.Run("embeds ignored", func(t *testing.T) {
		m := &discordgo.Message{ID: "1", ChannelID: "40", Author: author,
			Embeds: []*discordgo.MessageEmbed{{Title: "preview"}}}
		assert.Nil(t, MessageDeleted(m, ch, nil, true))
		p := MessageDeleted(m, ch, nil, false)
		msg, _ := field(p.Embed(), "Message")
		assert.Equal(t, "preview", msg)
	})
}

func TestMessageEdited(t *testing.T) {
	author := &discordgo.User{ID: "5"}
	before := &discordgo.Message{ID: "1", ChannelID: "40", Author: author, Content: "helo"}
	after := &discordgo.Message{ID: "1", ChannelID: "40", Author: author, Content: "hello"}

	assert.Nil(t, MessageEdited(before, before, nil, false))
	p := MessageEdited(before, after, nil, false)
	require.NotNil(t, p)
	b, _ := field(p.Embed(), "Before")
	a, _ := field(p.Embed(), "After")
	assert.Equal(t, "helo", b)
	assert.Equal(t, "hello", a)

	long := &discordgo.Message{ID: "1", ChannelID: "40", Author: author, Content: strings.Repeat("y", 1500)}
	p = MessageEdited(before, long, nil, false)
	require.Len(t, p.Files, 1)
	assert.Equal(t, "new_content.txt", p.Files[0].Name)
}

func TestMessagesBulkDeleted(t *testing.T) {
	freezeClock(t)
	msgs := []*discordgo.Message{
		{ID: snowflakeAt(testNow), Author: &discordgo.User{ID: "5", Username: "b"}, Content: "later"},
		{ID: snowflakeAt(testNow.Add(-time.Minute)), Author: &discordgo.User{ID: "6", Username: "a"}, Content: "earlier"},
	}
	p := MessagesBulkDeleted("40", 3, msgs, eventlog.Attribution{})
	assert.Equal(t, "3 Messages Deleted", p.Embed().Title)
	require.Len(t, p.Files, 1)
	log := string(p.Files[0].Data)
	assert.Less(t, strings.Index(log, "earlier"), strings.Index(log, "later"))
	assert.Nil(t, MessagesBulkDeleted("40", 0, nil, eventlog.Attribution{}))
}

func TestChannelUpdated(t *testing.T) {
	before := &discordgo.Channel{ID: "40", Name: "general", Topic: "a"}
	assert.Nil(t, ChannelUpdated(before, before, eventlog.Attribution{}))

	after := &discordgo.Channel{ID: "40", Name: "chat", Topic: "b",
		PermissionOverwrites: []*discordgo.PermissionOverwrite{{ID: "7", Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionSendMessages}}}
	p := ChannelUpdated(before, after, known("9"))
	require.Len(t, p.Embeds, 3)
	assert.Contains(t, p.Embeds[0].Description, "Name changed from `general` to `chat`")
	assert.Contains(t, p.Embeds[2].Description, "Overwrite added for <@&7>")
	assert.Contains(t, p.Embeds[2].Description, "❌ Send Messages")
}

func TestChannelCreatedTitle(t *testing.T) {
	e := ChannelCreated(&discordgo.Channel{ID: "1", Type: discordgo.ChannelTypeGuildVoice}, eventlog.Attribution{}).Embed()
	assert.Equal(t, "Voice Channel Created", e.Title)
}

func TestRoleUpdated(t *testing.T) {
	before := &discordgo.Role{ID: "1", Name: "mod", Permissions: discordgo.PermissionSendMessages}
	assert.Nil(t, RoleUpdated(before, before, eventlog.Attribution{}))
	assert.Nil(t, CriticalPermissionsGranted(before, before, eventlog.Attribution{}))

	after := &discordgo.Role{ID: "1", Name: "moderator", Permissions: discordgo.PermissionSendMessages | discordgo.PermissionBanMembers}
	p := RoleUpdated(before, after, eventlog.Attribution{})
	require.Len(t, p.Embeds, 2)
	assert.Equal(t, "Role Name Updated", p.Embeds[0].Title)
	assert.Contains(t, p.Embeds[1].Description, "> **Granted :** Ban Members")

	alert := CriticalPermissionsGranted(before, after, eventlog.Attribution{})
	require.NotNil(t, alert)
	perms, _ := field(alert.Embed(), "Permissions")
	assert.Equal(t, "Ban Members", perms)
}

func TestVoiceStateChanged(t *testing.T) {
	u := &discordgo.User{ID: "5", Username: "speaker"}
	channels := map[string]*discordgo.Channel{
		"60": {ID: "60", Name: "lounge", UserLimit: 5},
		"61": {ID: "61", Name: "music"},
	}
	lookup := func(id string) *discordgo.Channel { return channels[id] }
	count := func(string) int { return 2 }

	tests := []struct {
		name   string
		before *discordgo.VoiceState
		after  *discordgo.VoiceState
		title  string
	}{
		{"join", nil, &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, "User joined channel"},
		{"leave", &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, &discordgo.VoiceState{UserID: "5"}, "User left channel"},
		{"move", &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, &discordgo.VoiceState{UserID: "5", ChannelID: "61"}, "User switched channel"},
		{"mute", &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, &discordgo.VoiceState{UserID: "5", ChannelID: "60", SelfMute: true}, "Voice state update"},
		{"nothing", &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := VoiceStateChanged(u, tt.before, tt.after, lookup, count)
			if tt.title == "" {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.title, p.Embed().Title)
		})
	}

	e := VoiceStateChanged(u, nil, &discordgo.VoiceState{UserID: "5", ChannelID: "60"}, lookup, count).Embed()
	assert.Contains(t, e.Description, "> **Users :** 2/5")
}

func TestGuildUpdated(t *testing.T) {
	before := &discordgo.Guild{ID: "1", Name: "old", Features: []discordgo.GuildFeature{"NEWS"}}
	assert.Nil(t, GuildUpdated(before, before, eventlog.Attribution{}))

	after := &discordgo.Guild{ID: "1", Name: "new", AfkTimeout: 300, Features: []discordgo.GuildFeature{"COMMUNITY"}}
	e := GuildUpdated(before, after, known("9")).Embed()
	assert.Contains(t, e.Description, "> **Name :** old -> new")
	assert.Contains(t, e.Description, "> **AFK Timeout :** 0s -> 300s")
	assert.Contains(t, e.Description, "> **Features Added :** `COMMUNITY`")
	assert.Contains(t, e.Description, "> **Features Removed :** `NEWS`")
	assert.Contains(t, e.Description, "> **Updated by :** <@9>")
}

func TestEmojiChanges(t *testing.T) {
	before := []*discordgo.Emoji{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}
	after := []*discordgo.Emoji{{ID: "2", Name: "bee"}, {ID: "3", Name: "c", Animated: true}}
	c := DiffEmojis(before, after)
	require.Len(t, c.Created, 1)
	require.Len(t, c.Deleted, 1)
	require.Len(t, c.Renamed, 1)
	assert.Equal(t, "3", c.Created[0].ID)
	assert.Equal(t, "1", c.Deleted[0].ID)
	assert.True(t, DiffEmojis(before, before).Empty())

	assert.Equal(t, "emoji_3.gif", EmojiFileName(c.Created[0]))
	p := EmojiDeleted(c.Deleted[0], []byte{1, 2}, eventlog.Attribution{})
	require.Len(t, p.Files, 1)
	assert.Equal(t, "emoji_1.png", p.Files[0].Name)
	assert.Equal(t, "attachment://emoji_1.png", p.Embed().Image.URL)

	e := EmojiRenamed(c.Renamed[0][0], c.Renamed[0][1], eventlog.Attribution{}).Embed()
	assert.Contains(t, e.Description, "> **Before :** b")
}

func TestStickerChanges(t *testing.T) {
	before := []*discordgo.Sticker{
		{ID: "1", Name: "wave", FormatType: discordgo.StickerFormatTypePNG},
		{ID: "2", Name: "dance", Tags: "dancer", FormatType: discordgo.StickerFormatTypeLottie},
	}
	after := []*discordgo.Sticker{
		{ID: "2", Name: "dance", Tags: "man_dancing", FormatType: discordgo.StickerFormatTypeLottie},
		{ID: "3", Name: "party", FormatType: discordgo.StickerFormatTypeGIF},
	}
	c := DiffStickers(before, after)
	require.Len(t, c.Created, 1)
	require.Len(t, c.Deleted, 1)
	require.Len(t, c.Updated, 1)
	assert.True(t, DiffStickers(before, before).Empty())

	assert.Equal(t, discordgo.EndpointCDN+"stickers/3.gif", StickerURL(c.Created[0]))
	assert.Equal(t, "sticker_2.json", StickerFileName(after[0]))
	assert.Equal(t, "Sticker created", StickerCreated(c.Created[0], eventlog.Attribution{}).Embed().Title)

	p := StickerDeleted(c.Deleted[0], []byte{1}, known("9"))
	require.Len(t, p.Files, 1)
	assert.Equal(t, "sticker_1.png", p.Files[0].Name)
	assert.Equal(t, "attachment://sticker_1.png", p.Embed().Image.URL)
	assert.Nil(t, StickerDeleted(c.Deleted[0], nil, known("9")).Files)

	lottie := StickerDeleted(before[1], []byte("{}"), eventlog.Attribution{})
	require.Len(t, lottie.Files, 1)
	assert.Equal(t, "application/json", lottie.Files[0].ContentType)
	assert.Nil(t, lottie.Embed().Image)

	e := StickerUpdated(c.Updated[0][0], c.Updated[0][1], known("9")).Embed()
	assert.Contains(t, e.Description, "> **Emoji :** dancer -> man_dancing")
	assert.Nil(t, e.Thumbnail)
	assert.Nil(t, StickerUpdated(before[0], before[0], eventlog.Attribution{}))
}

func TestWebhookChanged(t *testing.T) {
	create := discordgo.AuditLogActionWebhookCreate
	update := discordgo.AuditLogActionWebhookUpdate
	name := discordgo.AuditLogChangeKeyName
	avatar := discordgo.AuditLogChangeKeyAvatarHash

	assert.Nil(t, WebhookChanged(eventlog.Attribution{}, nil, "40"))

	a := eventlog.Attribution{UserID: "9", Entry: &discordgo.AuditLogEntry{TargetID: "70", ActionType: &create}}
	e := WebhookChanged(a, &discordgo.Webhook{ID: "70", Name: "deploys"}, "40").Embed()
	assert.Equal(t, "Webhook Created", e.Title)
	assert.Contains(t, e.Description, "> **Type :** Incoming")

	a.Entry = &discordgo.AuditLogEntry{TargetID: "70", ActionType: &update, Changes: []*discordgo.AuditLogChange{
		{Key: &name, OldValue: "old", NewValue: "deploys"},
		{Key: &avatar, OldValue: nil, NewValue: "abc"},
	}}
	p := WebhookChanged(a, &discordgo.Webhook{ID: "70", Name: "deploys"}, "40")
	require.Len(t, p.Embeds, 2)
	assert.Equal(t, "Webhook Name Updated", p.Embeds[0].Title)
	assert.Contains(t, p.Embeds[1].Description, "Not set")
}

func TestApplicationChanged(t *testing.T) {
	add := discordgo.AuditLogActionBotAdd
	remove := discordgo.AuditLogActionIntegrationDelete
	a := eventlog.Attribution{UserID: "9", Entry: &discordgo.AuditLogEntry{TargetID: "80", ActionType: &add}}
	e := ApplicationChanged(a, &discordgo.User{ID: "80", Username: "music"}, nil).Embed()
	assert.Equal(t, "Application Added", e.Title)
	assert.Contains(t, e.Description, "> **Added by :** <@9>")

	a.Entry = &discordgo.AuditLogEntry{TargetID: "80", ActionType: &remove}
	e = ApplicationChanged(a, nil, &discordgo.Integration{Name: "music", Type: "discord"}).Embed()
	assert.Equal(t, "Application removed", e.Title)
	assert.Contains(t, e.Description, "> **Application :** music")
}

func TestThreadUpdated(t *testing.T) {
	before := &discordgo.Channel{ID: "90", ParentID: "40", Name: "bugs", ThreadMetadata: &discordgo.ThreadMetadata{}}
	assert.Nil(t, ThreadUpdated(before, before, nil, eventlog.Attribution{}))

	after := &discordgo.Channel{ID: "90", ParentID: "40", Name: "bugs", ThreadMetadata: &discordgo.ThreadMetadata{Archived: true, Locked: true}}
	p := ThreadUpdated(before, after, nil, eventlog.Attribution{})
	require.Len(t, p.Embeds, 2)
	assert.Equal(t, "Thread archived", p.Embeds[0].Title)
	assert.Equal(t, "Thread locked", p.Embeds[1].Title)
}

func TestStageAndSchedule(t *testing.T) {
	s := &discordgo.StageInstance{ChannelID: "50", Topic: "q&a"}
	assert.Nil(t, StageTopicChanged(s, s, nil, eventlog.Attribution{}))
	e := StageTopicChanged(&discordgo.StageInstance{ChannelID: "50", Topic: "intro"}, s, nil, eventlog.Attribution{}).Embed()
	assert.Contains(t, e.Description, "> **Previous :** `intro`")

	ev := &discordgo.GuildScheduledEvent{ID: "1", Name: "game night", ScheduledStartTime: testNow, Status: discordgo.GuildScheduledEventStatusScheduled}
	assert.Nil(t, ScheduledEventUpdated(ev, ev, eventlog.Attribution{}))
	started := *ev
	started.Status = discordgo.GuildScheduledEventStatusActive
	p := ScheduledEventUpdated(ev, &started, eventlog.Attribution{})
	require.Len(t, p.Embeds, 1)
	assert.Equal(t, "Event started", p.Embed().Title)

	sub := ScheduledEventSubscription(ev, nil, "5", true).Embed()
	assert.Equal(t, "Subscribed to event", sub.Title)
	assert.Contains(t, sub.Description, "<@5>")
}

func TestSystemEmbeds(t *testing.T) {
	by := &discordgo.User{ID: "5", Username: "admin"}
	assert.Contains(t, LoggingStatus(true, by).Embed().Description, "> **Status :** Enabled")
	assert.Contains(t, LoggingStatus(false, by).Embed().Description, "> **Status :** Disabled")

	c := eventlog.NewGuildConfig()
	c.Enabled = true
	c.Bind(eventlog.Member, "10")
	c.IgnoredUsers = []string{"7"}
	e := Status(c, "")
	channels, _ := field(e, "Log channels")
	assert.Contains(t, channels, "Member Logs: <#10> (no webhook yet)")
	assert.Contains(t, channels, "Role Logs: Not set")
	users, _ := field(e, "Ignored users")
	assert.Equal(t, "<@7>", users)

	rep := &eventlog.SetupReport{RoleID: "1", CategoryID: "2",
		Channels: map[eventlog.EventType]string{eventlog.Member: "10", eventlog.Role: "11"},
		Created:  []eventlog.EventType{eventlog.Role}}
	sum := SetupSummary(rep)
	assert.Contains(t, sum.Description, "> **Channels reused :** 1")

	types, _ := field(Help(), "Log types")
	assert.Contains(t, types, "`schedule`")
}

func TestChangePredicatesMatchFormatters(t *testing.T) {
	freezeClock(t)
	u := &discordgo.User{ID: "5"}
	until := testNow.Add(time.Hour)
	expired := testNow.Add(-time.Hour)
	ch := &discordgo.Channel{ID: "40", Name: "general", ThreadMetadata: &discordgo.ThreadMetadata{}}
	g := &discordgo.Guild{ID: "1", Name: "server", Features: []discordgo.GuildFeature{"NEWS"}}
	r := &discordgo.Role{ID: "2", Name: "mod"}
	ev := &discordgo.GuildScheduledEvent{ID: "3", Name: "game night", ScheduledStartTime: testNow, Status: discordgo.GuildScheduledEventStatusScheduled}

	tests := []struct {
		name    string
		changed bool
		payload func() *eventlog.Payload
	}{
		{"channel same", ChannelChanged(ch, ch), func() *eventlog.Payload { return ChannelUpdated(ch, ch, eventlog.Attribution{}) }},
		{"channel slowmode", ChannelChanged(ch, &discordgo.Channel{ID: "40", Name: "general", RateLimitPerUser: 5}),
			func() *eventlog.Payload {
				return ChannelUpdated(ch, &discordgo.Channel{ID: "40", Name: "general", RateLimitPerUser: 5}, eventlog.Attribution{})
			}},
		{"thread same", ThreadChanged(ch, ch), func() *eventlog.Payload { return ThreadUpdated(ch, ch, nil, eventlog.Attribution{}) }},
		{"thread locked", ThreadChanged(ch, &discordgo.Channel{ID: "40", Name: "general", ThreadMetadata: &discordgo.ThreadMetadata{Locked: true}}),
			func() *eventlog.Payload {
				return ThreadUpdated(ch, &discordgo.Channel{ID: "40", Name: "general", ThreadMetadata: &discordgo.ThreadMetadata{Locked: true}}, nil, eventlog.Attribution{})
			}},
		{"guild same", GuildChanged(g, g), func() *eventlog.Payload { return GuildUpdated(g, g, eventlog.Attribution{}) }},
		{"guild mfa", GuildChanged(g, &discordgo.Guild{ID: "1", Name: "server", MfaLevel: 1, Features: g.Features}),
			func() *eventlog.Payload {
				return GuildUpdated(g, &discordgo.Guild{ID: "1", Name: "server", MfaLevel: 1, Features: g.Features}, eventlog.Attribution{})
			}},
		{"guild features", GuildChanged(g, &discordgo.Guild{ID: "1", Name: "server"}),
			func() *eventlog.Payload {
				return GuildUpdated(g, &discordgo.Guild{ID: "1", Name: "server"}, eventlog.Attribution{})
			}},
		{"role same", RoleChanged(r, r), func() *eventlog.Payload { return RoleUpdated(r, r, eventlog.Attribution{}) }},
		{"role hoist", RoleChanged(r, &discordgo.Role{ID: "2", Name: "mod", Hoist: true}),
			func() *eventlog.Payload {
				return RoleUpdated(r, &discordgo.Role{ID: "2", Name: "mod", Hoist: true}, eventlog.Attribution{})
			}},
		{"timeout expired", TimeoutTransitioned(&discordgo.Member{User: u, CommunicationDisabledUntil: &expired}, &discordgo.Member{User: u}),
			func() *eventlog.Payload {
				return TimeoutChanged(&discordgo.Member{User: u, CommunicationDisabledUntil: &expired}, &discordgo.Member{User: u}, eventlog.Attribution{})
			}},
		{"timeout applied", TimeoutTransitioned(&discordgo.Member{User: u}, &discordgo.Member{User: u, CommunicationDisabledUntil: &until}),
			func() *eventlog.Payload {
				return TimeoutChanged(&discordgo.Member{User: u}, &discordgo.Member{User: u, CommunicationDisabledUntil: &until}, eventlog.Attribution{})
			}},
		{"stage same", StageTopicDiffers(&discordgo.StageInstance{Topic: "a"}, &discordgo.StageInstance{Topic: "a"}),
			func() *eventlog.Payload {
				return StageTopicChanged(&discordgo.StageInstance{Topic: "a"}, &discordgo.StageInstance{Topic: "a"}, nil, eventlog.Attribution{})
			}},
		{"event same", ScheduledEventChanged(ev, ev), func() *eventlog.Payload { return ScheduledEventUpdated(ev, ev, eventlog.Attribution{}) }},
		{"event rescheduled", ScheduledEventChanged(ev, &discordgo.GuildScheduledEvent{ID: "3", Name: "game night", ScheduledStartTime: testNow, Status: discordgo.GuildScheduledEventStatusScheduled, Image: "abc"}),
			func() *eventlog.Payload {
				return ScheduledEventUpdated(ev, &discordgo.GuildScheduledEvent{ID: "3", Name: "game night", ScheduledStartTime: testNow, Status: discordgo.GuildScheduledEventStatusScheduled, Image: "abc"}, eventlog.Attribution{})
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.changed, tt.payload() != nil)
		})
	}
	assert.False(t, ChannelChanged(nil, ch))
	assert.True(t, GuildChanged(g, &discordgo.Guild{ID: "1", Name: "server", MfaLevel: 1, Features: g.Features}))
}

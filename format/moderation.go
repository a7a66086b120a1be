package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

// MemberBanned reports a ban. history holds the user's recent messages and is attached as a
// text log when not empty; channelName resolves channel ids for that log.
func MemberBanned(u *discordgo.User, inGuild bool, a eventlog.Attribution, history []*discordgo.Message, channelName func(string) string) *eventlog.Payload {
	if u == nil {
		return nil
	}
	d := &details{}
	d.add("User", userRef(u)).
		add("User ID", u.ID).
		add("Banned by", a.Actor()).
		add("Reason", a.ReasonOr("No reason provided"))
	if !inGuild {
		d.raw("User was not in the server")
	}

	e := newEmbed("Member Banned", Color(13516350)).
		WithThumbnail(u.AvatarURL("256"))

	var log string
	if len(history) > 0 {
		log = BanLog(history, channelName)
		d.raw("24 hour message log is attached")
		e.AddField("Total messages", fmt.Sprint(len(history)), false)
	}
	e.WithDescription(d.String())

	p := single(e, a)
	if log != "" {
		p.AddTextFile(fmt.Sprintf("24h_ban_log_%v_%v.txt", u.ID, now().Unix()), log)
	}
	return p
}

// BanLog renders messages oldest first in the plain text format used for attached logs.
func BanLog(history []*discordgo.Message, channelName func(string) string) string {
	msgs := make([]*discordgo.Message, len(history))
	copy(msgs, history)
	sort.SliceStable(msgs, func(i, j int) bool {
		return snowflakeTime(msgs[i].ID).Before(snowflakeTime(msgs[j].ID))
	})

	var sb strings.Builder
	for _, m := range msgs {
		name := m.ChannelID
		if channelName != nil {
			if n := channelName(m.ChannelID); n != "" {
				name = n
			}
		}
		sb.WriteString(fmt.Sprintf("Channel: %v (%v)\nTimestamp: %v\nContent: %v\n",
			name, m.ChannelID, snowflakeTime(m.ID).Format(time.RFC1123), m.Content))
		if len(m.Attachments) > 0 {
			sb.WriteString("Message had attachment\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func MemberUnbanned(u *discordgo.User, a eventlog.Attribution) *eventlog.Payload {
	if u == nil {
		return nil
	}
	d := &details{}
	d.add("User", userRef(u)).
		add("User ID", u.ID).
		add("Unbanned by", a.Actor()).
		add("Reason", a.ReasonOr("No reason provided"))
	e := newEmbed("Member Unbanned", Color(4606610)).
		WithThumbnail(u.AvatarURL("256")).
		WithDescription(d.String())
	return single(e, a)
}

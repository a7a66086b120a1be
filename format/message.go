package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func jumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%v/%v/%v", guildID, channelID, messageID)
}

func messageDetails(m *discordgo.Message, ch *discordgo.Channel) *details {
	d := &details{}
	d.add("Channel", namedChannelRef(ch)).
		add("Message ID", fmt.Sprintf("[%v](%v)", m.ID, jumpURL(m.GuildID, m.ChannelID, m.ID))).
		add("Message author", userRef(m.Author)).
		add("Message created", relative(snowflakeTime(m.ID)))
	return d
}

// embedText flattens embeds into plain text.
func embedText(embeds []*discordgo.MessageEmbed) string {
	var parts []string
	for _, e := range embeds {
		if e == nil {
			continue
		}
		if e.Title != "" {
			parts = append(parts, e.Title)
		}
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
		for _, f := range e.Fields {
			parts = append(parts, f.Name+"\n"+f.Value)
		}
		if e.Image != nil && e.Image.URL != "" {
			parts = append(parts, e.Image.URL)
		}
		if e.Thumbnail != nil && e.Thumbnail.URL != "" {
			parts = append(parts, e.Thumbnail.URL)
		}
		if e.Footer != nil && e.Footer.Text != "" {
			parts = append(parts, e.Footer.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// MessageDeleted reports a deleted message from its cached copy. files are the attachments
// that could be fetched. Messages carrying embeds are dropped when ignoreEmbeds is set.
func MessageDeleted(m *discordgo.Message, ch *discordgo.Channel, files []eventlog.File, ignoreEmbeds bool) *eventlog.Payload {
	if m == nil || m.Author == nil {
		return nil
	}
	if len(m.Embeds) > 0 && ignoreEmbeds {
		return nil
	}

	e := newEmbed("Message Deleted", ColorRed).
		WithDescription(messageDetails(m, ch).String()).
		WithFooter(fmt.Sprintf("Message ID: %v", m.ID), "")

	var longContent string
	switch {
	case m.Content == "":
	case len(m.Content) > fieldLimit:
		e.AddField("Message", tooLongNote, false)
		longContent = m.Content
	default:
		e.AddField("Message", m.Content, false)
	}
	if text := embedText(m.Embeds); text != "" {
		name := "Embed Content"
		if m.Content == "" {
			name = "Message"
		}
		e.AddField(name, truncate(text, fieldLimit), false)
	}
	if len(m.Attachments) > 0 {
		links := make([]string, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			links = append(links, fmt.Sprintf("> [%v](%v)", a.Filename, a.URL))
		}
		e.AddField(fmt.Sprintf("%v Attachment(s)", len(m.Attachments)), truncate(strings.Join(links, ",\n"), fieldLimit), false)
		e.AddField("Total fetched attachments", fmt.Sprint(len(files)), false)
	}

	p := eventlog.NewPayload(finish(e, eventlog.Attribution{}))
	if longContent != "" {
		p.AddTextFile("deleted_content.txt", longContent)
	}
	for _, f := range files {
		p.AddFile(f.Name, f.ContentType, f.Data)
	}
	return p
}

// MessageEdited returns nil when neither content nor embeds changed.
func MessageEdited(before, after *discordgo.Message, ch *discordgo.Channel, ignoreEmbeds bool) *eventlog.Payload {
	if before == nil || after == nil || before.Author == nil {
		return nil
	}
	beforeEmbeds, afterEmbeds := embedText(before.Embeds), embedText(after.Embeds)
	if before.Content == after.Content && beforeEmbeds == afterEmbeds {
		return nil
	}
	if ignoreEmbeds && (len(before.Embeds) > 0 || len(after.Embeds) > 0) {
		return nil
	}

	e := newEmbed("Message Edited", ColorAmber).
		WithDescription(messageDetails(before, ch).String()).
		WithFooter(fmt.Sprintf("Message ID: %v", before.ID), "")
	p := &eventlog.Payload{}

	addSide := func(name, content, embeds, file string) {
		text := strings.TrimPrefix(content+"\n"+embeds, "\n")
		text = strings.TrimSuffix(text, "\n")
		switch {
		case text == "":
			return
		case len(text) > fieldLimit:
			e.AddField(name, tooLongNote, true)
			p.AddTextFile(file, text)
		default:
			e.AddField(name, text, true)
		}
	}
	addSide("Before", before.Content, beforeEmbeds, "old_content.txt")
	addSide("After", after.Content, afterEmbeds, "new_content.txt")

	p.Embeds = append(p.Embeds, finish(e, eventlog.Attribution{}))
	return p
}

// MessagesBulkDeleted reports a purge. msgs are the cached copies that were found.
func MessagesBulkDeleted(channelID string, count int, msgs []*discordgo.Message, a eventlog.Attribution) *eventlog.Payload {
	if count == 0 {
		return nil
	}
	sorted := make([]*discordgo.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return snowflakeTime(sorted[i].ID).Before(snowflakeTime(sorted[j].ID))
	})

	var sb strings.Builder
	for _, m := range sorted {
		author := "Unknown"
		authorID := ""
		if m.Author != nil {
			author, authorID = m.Author.String(), m.Author.ID
		}
		sb.WriteString(fmt.Sprintf("\nUser: %v (%v)\nContent: %v\n", author, authorID, m.Content))
		if len(m.Attachments) > 0 {
			sb.WriteString("Message had attachment\n")
		}
	}

	d := &details{}
	d.add("Channel", channelRef(channelID)).
		add("Cached messages", fmt.Sprintf("%v of %v", len(sorted), count)).
		add("Deleted by", a.Actor())
	e := newEmbed(fmt.Sprintf("%v Messages Deleted", count), ColorRed).
		WithDescription(d.String())

	p := single(e, a)
	if sb.Len() > 0 {
		p.AddTextFile(fmt.Sprintf("deleted_%v_%v.txt", channelID, now().Unix()), sb.String())
	}
	return p
}

// ReactionChanged reports a reaction being added or removed.
func ReactionChanged(r *discordgo.MessageReaction, u *discordgo.User, added bool) *eventlog.Payload {
	if r == nil {
		return nil
	}
	title := "Reaction Removed"
	if added {
		title = "Reaction Added"
	}
	who := userIDRef(r.UserID)
	if u != nil {
		who = userRef(u)
	}
	emoji := r.Emoji.Name
	if r.Emoji.ID != "" {
		emoji = r.Emoji.MessageFormat()
	}

	d := &details{}
	d.add("User", who).
		add("Channel", channelRef(r.ChannelID)).
		add("Message", fmt.Sprintf("[%v](%v)", r.MessageID, jumpURL(r.GuildID, r.ChannelID, r.MessageID))).
		add("Emoji", emoji)
	e := newEmbed(title, ColorCoral).WithDescription(d.String())
	if r.Emoji.ID != "" {
		e.WithThumbnail(emojiURL(&r.Emoji))
	}
	return single(e, eventlog.Attribution{})
}

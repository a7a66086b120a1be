package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

// GuildUpdated lists every changed server setting, or returns nil when none changed.
type guildSettings struct {
	Name, OwnerID, Icon, Splash, Banner, Description string
	VerificationLevel                                discordgo.VerificationLevel
	ExplicitContentFilter                            discordgo.ExplicitContentFilterLevel
	DefaultMessageNotifications                      discordgo.MessageNotifications
	MfaLevel                                         discordgo.MfaLevel
	PremiumTier                                      discordgo.PremiumTier
	PreferredLocale, VanityURLCode                   string
	RulesChannelID, PublicUpdatesChannelID           string
	AfkChannelID, SystemChannelID                    string
	AfkTimeout                                       int
	SystemChannelFlags                               discordgo.SystemChannelFlag
}

func settingsOf(g *discordgo.Guild) guildSettings {
	return guildSettings{
		Name: g.Name, OwnerID: g.OwnerID, Icon: g.Icon, Splash: g.Splash, Banner: g.Banner,
		Description:                 g.Description,
		VerificationLevel:           g.VerificationLevel,
		ExplicitContentFilter:       g.ExplicitContentFilter,
		DefaultMessageNotifications: g.DefaultMessageNotifications,
		MfaLevel:                    g.MfaLevel,
		PremiumTier:                 g.PremiumTier,
		PreferredLocale:             g.PreferredLocale,
		VanityURLCode:               g.VanityURLCode,
		RulesChannelID:              g.RulesChannelID,
		PublicUpdatesChannelID:      g.PublicUpdatesChannelID,
		AfkChannelID:                g.AfkChannelID,
		SystemChannelID:             g.SystemChannelID,
		AfkTimeout:                  g.AfkTimeout,
		SystemChannelFlags:          g.SystemChannelFlags,
	}
}

// GuildChanged reports whether GuildUpdated would log anything for the pair.
func GuildChanged(before, after *discordgo.Guild) bool {
	if before == nil || after == nil {
		return false
	}
	if settingsOf(before) != settingsOf(after) {
		return true
	}
	added, removed := featureDiff(before.Features, after.Features)
	return len(added) > 0 || len(removed) > 0
}

func GuildUpdated(before, after *discordgo.Guild, a eventlog.Attribution) *eventlog.Payload {
	if !GuildChanged(before, after) {
		return nil
	}
	d := &details{}
	change := func(label string, b, v interface{}) {
		if b != v {
			d.add(label, fmt.Sprintf("%v -> %v", b, v))
		}
	}
	change("Name", before.Name, after.Name)
	if before.OwnerID != after.OwnerID {
		d.add("Owner", fmt.Sprintf("%v -> %v", userIDRef(before.OwnerID), userIDRef(after.OwnerID)))
	}
	if before.Icon != after.Icon {
		d.add("Icon", "Updated")
	}
	if before.Splash != after.Splash {
		d.add("Splash", "Updated")
	}
	if before.Banner != after.Banner {
		d.add("Banner", "Updated")
	}
	if before.Description != after.Description {
		d.add("Old Description", fmt.Sprintf("```%v```", truncate(orNone(before.Description), 400))).
			add("New Description", fmt.Sprintf("```%v```", truncate(orNone(after.Description), 400)))
	}
	change("Verification Level", before.VerificationLevel, after.VerificationLevel)
	change("Explicit Content Filter", before.ExplicitContentFilter, after.ExplicitContentFilter)
	change("Default Notifications", before.DefaultMessageNotifications, after.DefaultMessageNotifications)
	change("MFA Level", before.MfaLevel, after.MfaLevel)
	change("Boost Tier", before.PremiumTier, after.PremiumTier)
	change("Preferred Locale", before.PreferredLocale, after.PreferredLocale)
	change("Vanity URL", orNone(before.VanityURLCode), orNone(after.VanityURLCode))
	channelChange := func(label, b, v string) {
		if b != v {
			d.add(label, fmt.Sprintf("%v -> %v", channelRef(b), channelRef(v)))
		}
	}
	channelChange("Rules Channel", before.RulesChannelID, after.RulesChannelID)
	channelChange("Public Updates Channel", before.PublicUpdatesChannelID, after.PublicUpdatesChannelID)
	channelChange("AFK Channel", before.AfkChannelID, after.AfkChannelID)
	channelChange("System Channel", before.SystemChannelID, after.SystemChannelID)
	if before.AfkTimeout != after.AfkTimeout {
		d.add("AFK Timeout", fmt.Sprintf("%vs -> %vs", before.AfkTimeout, after.AfkTimeout))
	}
	change("System Channel Flags", before.SystemChannelFlags, after.SystemChannelFlags)

	added, removed := featureDiff(before.Features, after.Features)
	if len(added) > 0 {
		d.add("Features Added", "`"+strings.Join(added, ", ")+"`")
	}
	if len(removed) > 0 {
		d.add("Features Removed", "`"+strings.Join(removed, ", ")+"`")
	}
	if len(d.lines) == 0 {
		return nil
	}
	d.add("Updated by", a.Actor())

	e := newEmbed("Server Updated", ColorBlue).
		WithDescription(d.String()).
		WithThumbnail(after.IconURL("256"))
	return single(e, a)
}

func featureDiff(before, after []discordgo.GuildFeature) (added, removed []string) {
	had := make(map[discordgo.GuildFeature]bool, len(before))
	for _, f := range before {
		had[f] = true
	}
	has := make(map[discordgo.GuildFeature]bool, len(after))
	for _, f := range after {
		has[f] = true
		if !had[f] {
			added = append(added, string(f))
		}
	}
	for _, f := range before {
		if !has[f] {
			removed = append(removed, string(f))
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func InviteCreated(inv *discordgo.Invite, channelID string) *eventlog.Payload {
	if inv == nil {
		return nil
	}
	expires := "Never"
	if inv.MaxAge > 0 {
		expires = relative(inv.CreatedAt.Add(secondsToDuration(inv.MaxAge)))
	}
	maxUses := "∞"
	if inv.MaxUses > 0 {
		maxUses = fmt.Sprint(inv.MaxUses)
	}
	d := &details{}
	d.add("Code", "`"+inv.Code+"`").
		add("Channel", channelRef(channelID)).
		add("Expires", expires).
		add("Max users", maxUses).
		addIf(inv.Temporary, "Temporary membership", "Yes")
	e := newEmbed("Invite created", ColorJoin).WithDescription(d.String())
	if inv.Inviter != nil {
		e.WithFooter(inv.Inviter.Username, inv.Inviter.AvatarURL("64"))
	}
	return single(e, eventlog.Attribution{})
}

func InviteDeleted(code, channelID string) *eventlog.Payload {
	d := &details{}
	d.add("Code", "`"+code+"`").
		add("Channel", channelRef(channelID))
	return single(newEmbed("Invite deleted", Color(13514294)).WithDescription(d.String()), eventlog.Attribution{})
}

// EmojiChanges is the difference between two emoji lists.
type EmojiChanges struct {
	Created []*discordgo.Emoji
	Deleted []*discordgo.Emoji
	// Renamed pairs the old and new version of emojis whose name changed.
	Renamed [][2]*discordgo.Emoji
}

func (c EmojiChanges) Empty() bool {
	return len(c.Created) == 0 && len(c.Deleted) == 0 && len(c.Renamed) == 0
}

func DiffEmojis(before, after []*discordgo.Emoji) EmojiChanges {
	var c EmojiChanges
	old := make(map[string]*discordgo.Emoji, len(before))
	for _, e := range before {
		old[e.ID] = e
	}
	seen := make(map[string]bool, len(after))
	for _, e := range after {
		seen[e.ID] = true
		prev, ok := old[e.ID]
		switch {
		case !ok:
			c.Created = append(c.Created, e)
		case prev.Name != e.Name:
			c.Renamed = append(c.Renamed, [2]*discordgo.Emoji{prev, e})
		}
	}
	for _, e := range before {
		if !seen[e.ID] {
			c.Deleted = append(c.Deleted, e)
		}
	}
	return c
}

func EmojiCreated(e *discordgo.Emoji, a eventlog.Attribution) *eventlog.Payload {
	if e == nil {
		return nil
	}
	d := &details{}
	d.add("Emoji", e.MessageFormat()).
		add("Name", e.Name).
		add("ID", e.ID).
		add("Animated", yesNo(e.Animated)).
		add("Created by", a.Actor())
	emb := newEmbed("Emoji created", ColorCoral).
		WithDescription(d.String()).
		WithThumbnail(emojiURL(e))
	return single(emb, a)
}

// EmojiDeleted reports a removed emoji. image is the re-hosted image and may be nil when it
// could not be downloaded.
func EmojiDeleted(e *discordgo.Emoji, image []byte, a eventlog.Attribution) *eventlog.Payload {
	if e == nil {
		return nil
	}
	d := &details{}
	d.add("Name", e.Name).
		add("ID", e.ID).
		add("Animated", yesNo(e.Animated)).
		add("Deleted by", a.Actor())
	emb := newEmbed("Emoji deleted", ColorRed).WithDescription(d.String())
	p := single(emb, a)
	if len(image) > 0 {
		ct := "image/png"
		if e.Animated {
			ct = "image/gif"
		}
		p.AddFile(EmojiFileName(e), ct, image)
		p.Embed().Image = &discordgo.MessageEmbedImage{URL: "attachment://" + EmojiFileName(e)}
	}
	return p
}

func EmojiRenamed(before, after *discordgo.Emoji, a eventlog.Attribution) *eventlog.Payload {
	if before == nil || after == nil || before.Name == after.Name {
		return nil
	}
	d := &details{}
	d.add("Emoji", after.MessageFormat()).
		add("Before", before.Name).
		add("After", after.Name).
		add("Updated by", a.Actor())
	emb := newEmbed("Emoji Updated", ColorGrey).
		WithDescription(d.String()).
		WithThumbnail(emojiURL(after))
	return single(emb, a)
}

// StickerChanges is the difference between two sticker lists.
type StickerChanges struct {
	Created []*discordgo.Sticker
	Deleted []*discordgo.Sticker
	// Updated pairs the old and new version of stickers whose name, description or
	// related emoji changed.
	Updated [][2]*discordgo.Sticker
}

func (c StickerChanges) Empty() bool {
	return len(c.Created) == 0 && len(c.Deleted) == 0 && len(c.Updated) == 0
}

func DiffStickers(before, after []*discordgo.Sticker) StickerChanges {
	var c StickerChanges
	old := make(map[string]*discordgo.Sticker, len(before))
	for _, st := range before {
		old[st.ID] = st
	}
	seen := make(map[string]bool, len(after))
	for _, st := range after {
		seen[st.ID] = true
		prev, ok := old[st.ID]
		switch {
		case !ok:
			c.Created = append(c.Created, st)
		case prev.Name != st.Name || prev.Description != st.Description || prev.Tags != st.Tags:
			c.Updated = append(c.Updated, [2]*discordgo.Sticker{prev, st})
		}
	}
	for _, st := range before {
		if !seen[st.ID] {
			c.Deleted = append(c.Deleted, st)
		}
	}
	return c
}

func StickerCreated(st *discordgo.Sticker, a eventlog.Attribution) *eventlog.Payload {
	if st == nil {
		return nil
	}
	d := &details{}
	d.add("Name", st.Name).
		add("ID", st.ID).
		addIf(st.Description != "", "Description", truncate(st.Description, 200)).
		addIf(st.Tags != "", "Emoji", st.Tags).
		add("Created by", a.Actor())
	emb := newEmbed("Sticker created", ColorCoral).WithDescription(d.String())
	if StickerIsImage(st) {
		emb = emb.WithThumbnail(StickerURL(st))
	}
	return single(emb, a)
}

// StickerDeleted reports a removed sticker. file is the re-hosted sticker and may be nil when
// it could not be downloaded.
func StickerDeleted(st *discordgo.Sticker, file []byte, a eventlog.Attribution) *eventlog.Payload {
	if st == nil {
		return nil
	}
	d := &details{}
	d.add("Name", st.Name).
		add("ID", st.ID).
		addIf(st.Tags != "", "Emoji", st.Tags).
		add("Deleted by", a.Actor())
	p := single(newEmbed("Sticker deleted", ColorRed).WithDescription(d.String()), a)
	if len(file) == 0 {
		return p
	}
	switch st.FormatType {
	case discordgo.StickerFormatTypeGIF:
		p.AddFile(StickerFileName(st), "image/gif", file)
	case discordgo.StickerFormatTypeLottie:
		p.AddFile(StickerFileName(st), "application/json", file)
	default:
		p.AddFile(StickerFileName(st), "image/png", file)
	}
	if StickerIsImage(st) {
		p.Embed().Image = &discordgo.MessageEmbedImage{URL: "attachment://" + StickerFileName(st)}
	}
	return p
}

func StickerUpdated(before, after *discordgo.Sticker, a eventlog.Attribution) *eventlog.Payload {
	if before == nil || after == nil {
		return nil
	}
	d := &details{}
	d.add("Sticker", after.Name).add("ID", after.ID)
	if before.Name != after.Name {
		d.add("Name", fmt.Sprintf("%v -> %v", before.Name, after.Name))
	}
	if before.Description != after.Description {
		d.add("Description", fmt.Sprintf("%v -> %v", truncate(orNone(before.Description), 200), truncate(orNone(after.Description), 200)))
	}
	if before.Tags != after.Tags {
		d.add("Emoji", fmt.Sprintf("%v -> %v", orNone(before.Tags), orNone(after.Tags)))
	}
	if len(d.lines) == 2 {
		return nil
	}
	d.add("Updated by", a.Actor())
	emb := newEmbed("Sticker Updated", ColorGrey).WithDescription(d.String())
	if StickerIsImage(after) {
		emb = emb.WithThumbnail(StickerURL(after))
	}
	return single(emb, a)
}

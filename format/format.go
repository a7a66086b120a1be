// Package format turns platform events into log notifications. Every function here is pure
// apart from reading the clock for embed timestamps, and returns nil when there is nothing
// worth reporting.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/meido/pkg/utils/builders"
)

type Color int

const (
	ColorRed    Color = 0xce3636
	ColorGreen  Color = 0x96d8a3
	ColorBlue   Color = 0x61d1ed
	ColorWhite  Color = 0xffffff
	ColorOrange Color = 0xf57f54
	ColorGrey   Color = 0xb0b0b0
	ColorCoral  Color = 0xff5858
	ColorAmber  Color = 0xffaa00
	ColorTeal   Color = 0x469292
	ColorIndigo Color = 0x464a92
)

const (
	// fieldLimit is the most text an embed field can hold.
	fieldLimit = 1024
	// rolesLimit keeps a role list well inside one field.
	rolesLimit  = 760
	descLimit   = 4096
	tooLongNote = "Content too long, so it's put in the attached .txt file"
)

var now = time.Now

// details builds the "> **Label :** value" lines used as embed descriptions.
type details struct {
	lines []string
}

func (d *details) add(label string, value interface{}) *details {
	d.lines = append(d.lines, fmt.Sprintf("> **%s :** %v", label, value))
	return d
}

func (d *details) addIf(ok bool, label string, value interface{}) *details {
	if ok {
		d.add(label, value)
	}
	return d
}

func (d *details) raw(line string) *details {
	d.lines = append(d.lines, line)
	return d
}

func (d *details) String() string {
	return truncate(strings.Join(d.lines, "\n"), descLimit)
}

func newEmbed(title string, color Color) *builders.EmbedBuilder {
	return builders.NewEmbedBuilder().
		WithTitle(title).
		WithColor(int(color))
}

// finish stamps the embed and attributes it to a, when known.
func finish(e *builders.EmbedBuilder, a eventlog.Attribution) *discordgo.MessageEmbed {
	if a.Known() {
		e.WithFooter("By user ID: "+a.UserID, "")
	}
	m := e.Build()
	m.Timestamp = now().Format(time.RFC3339)
	return m
}

func single(e *builders.EmbedBuilder, a eventlog.Attribution) *eventlog.Payload {
	return eventlog.NewPayload(finish(e, a))
}

func userRef(u *discordgo.User) string {
	if u == nil {
		return "Unknown"
	}
	return fmt.Sprintf("@%s (%s)", u.Username, u.Mention())
}

func userIDRef(id string) string {
	if id == "" {
		return "Unknown"
	}
	return "<@" + id + ">"
}

func channelRef(id string) string {
	if id == "" {
		return "None"
	}
	return "<#" + id + ">"
}

func namedChannelRef(ch *discordgo.Channel) string {
	if ch == nil {
		return "Unknown"
	}
	if ch.Name == "" {
		return ch.Mention()
	}
	return fmt.Sprintf("%s (%s)", ch.Name, ch.Mention())
}

func roleRef(id string) string {
	return "<@&" + id + ">"
}

func relative(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func absolute(t time.Time) string {
	return fmt.Sprintf("<t:%d:F>", t.Unix())
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

// joinLimited joins items with ", ", stopping before limit characters and noting how many
// items were left out.
func joinLimited(items []string, limit int) string {
	if len(items) == 0 {
		return "None"
	}
	var shown []string
	for _, it := range items {
		if len(strings.Join(append(shown, it), ", ")) > limit {
			break
		}
		shown = append(shown, it)
	}
	out := strings.Join(shown, ", ")
	if len(shown) != len(items) {
		out += fmt.Sprintf(" and %v more", len(items)-len(shown))
	}
	return out
}

func roleList(ids []string) string {
	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, roleRef(id))
	}
	return joinLimited(refs, rolesLimit)
}

func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return t
}

func emojiURL(e *discordgo.Emoji) string {
	if e.Animated {
		return discordgo.EndpointEmojiAnimated(e.ID)
	}
	return discordgo.EndpointEmoji(e.ID)
}

// EmojiFileName is the name used when re-hosting an emoji image.
func EmojiFileName(e *discordgo.Emoji) string {
	if e.Animated {
		return "emoji_" + e.ID + ".gif"
	}
	return "emoji_" + e.ID + ".png"
}

// EmojiURL is where the image of e can be downloaded.
func EmojiURL(e *discordgo.Emoji) string {
	return emojiURL(e)
}

func stickerExt(st *discordgo.Sticker) string {
	switch st.FormatType {
	case discordgo.StickerFormatTypeGIF:
		return ".gif"
	case discordgo.StickerFormatTypeLottie:
		return ".json"
	}
	return ".png"
}

// StickerURL is where the file of st can be downloaded.
func StickerURL(st *discordgo.Sticker) string {
	return discordgo.EndpointCDN + "stickers/" + st.ID + stickerExt(st)
}

// StickerFileName is the name used when re-hosting a sticker image.
func StickerFileName(st *discordgo.Sticker) string {
	return "sticker_" + st.ID + stickerExt(st)
}

// StickerIsImage reports whether the sticker file renders as an embed image. Lottie stickers
// are animation documents and do not.
func StickerIsImage(st *discordgo.Sticker) bool {
	return st.FormatType != discordgo.StickerFormatTypeLottie
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

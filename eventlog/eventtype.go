package eventlog

import "strings"

// EventType routes a notification to its destination channel.
type EventType string

const (
	System      EventType = "system"
	Member      EventType = "member"
	Message     EventType = "message"
	Thread      EventType = "thread"
	Voice       EventType = "voice"
	Stage       EventType = "stage"
	Moderation  EventType = "moderation"
	Channel     EventType = "channel"
	Server      EventType = "server"
	Schedule    EventType = "schedule"
	Webhook     EventType = "webhook"
	Role        EventType = "role"
	Application EventType = "application"
	Alert       EventType = "alert"
)

// EventTypes lists every event type in display order.
var EventTypes = []EventType{
	System, Member, Message, Thread, Voice, Stage, Moderation,
	Channel, Server, Schedule, Webhook, Role, Application, Alert,
}

type typeDetails struct {
	name  string
	emoji string
}

var details = map[EventType]typeDetails{
	System:      {"system logs", "💻"},
	Member:      {"member logs", "👤"},
	Message:     {"message logs", "💬"},
	Thread:      {"thread logs", "🧵"},
	Voice:       {"voice logs", "🔊"},
	Stage:       {"stage logs", "🎤"},
	Moderation:  {"moderation logs", "🔨"},
	Channel:     {"channel logs", "📩"},
	Server:      {"server logs", "🌐"},
	Schedule:    {"event logs", "📅"},
	Webhook:     {"webhook logs", "🔗"},
	Role:        {"role logs", "⚙️"},
	Application: {"application logs", "🤖"},
	Alert:       {"alert logs", "⚠️"},
}

// ParseEventType returns the event type named s. Only members of the closed set are accepted.
func ParseEventType(s string) (EventType, bool) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := details[t]; !ok {
		return "", false
	}
	return t, true
}

func (t EventType) String() string {
	return string(t)
}

func (t EventType) Valid() bool {
	_, ok := details[t]
	return ok
}

// Name is the human readable name, e.g. "member logs".
func (t EventType) Name() string {
	return details[t].name
}

func (t EventType) Emoji() string {
	return details[t].emoji
}

// Title is the name in title case, e.g. "Member Logs".
func (t EventType) Title() string {
	words := strings.Fields(t.Name())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ChannelName is the name used for auto-provisioned log channels.
func (t EventType) ChannelName() string {
	return t.Emoji() + "│" + strings.ReplaceAll(t.Name(), " ", "-")
}

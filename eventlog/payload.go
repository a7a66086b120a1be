package eventlog

import (
	"bytes"

	"github.com/bwmarrin/discordgo"
)

// File is an attachment sent along with a notification. Data is kept in memory so a payload
// can be delivered more than once.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Payload is a formatted notification.
type Payload struct {
	Embeds []*discordgo.MessageEmbed
	Files  []File
}

func NewPayload(embeds ...*discordgo.MessageEmbed) *Payload {
	return &Payload{Embeds: embeds}
}

func (p *Payload) AddFile(name, contentType string, data []byte) *Payload {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	p.Files = append(p.Files, File{Name: name, ContentType: contentType, Data: data})
	return p
}

func (p *Payload) AddTextFile(name, content string) *Payload {
	return p.AddFile(name, "text/plain", []byte(content))
}

// Embed returns the first embed, or nil.
func (p *Payload) Embed() *discordgo.MessageEmbed {
	if p == nil || len(p.Embeds) == 0 {
		return nil
	}
	return p.Embeds[0]
}

// params builds webhook parameters posting as user. Every call creates fresh file readers.
func (p *Payload) params(user *discordgo.User) *discordgo.WebhookParams {
	wp := &discordgo.WebhookParams{
		Embeds:          p.Embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if user != nil {
		wp.Username = user.Username
		wp.AvatarURL = user.AvatarURL("")
	}
	for _, f := range p.Files {
		wp.Files = append(wp.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return wp
}

package discord

import "github.com/bwmarrin/discordgo"

// State is the gateway cache across all shards.
type State interface {
	Guild(gid string) (*discordgo.Guild, error)
	Channel(cid string) (*discordgo.Channel, error)
}

func (c *Client) cachedChannel(cid string) *discordgo.Channel {
	if c.state == nil {
		return nil
	}
	ch, err := c.state.Channel(cid)
	if err != nil {
		return nil
	}
	return ch
}

// Guild returns the cached guild, or nil when it is not in the gateway cache.
func (c *Client) Guild(gid string) *discordgo.Guild {
	if c.state == nil {
		return nil
	}
	g, err := c.state.Guild(gid)
	if err != nil {
		return nil
	}
	return g
}

// MemberCount is the cached member count of gid, or 0 when unknown.
func (c *Client) MemberCount(gid string) int {
	if g := c.Guild(gid); g != nil {
		return g.MemberCount
	}
	return 0
}

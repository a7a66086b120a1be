package guildlog

import (
	"github.com/intrntsrfr/meido/pkg/mio/bot"
	"go.uber.org/zap"
)

func logApplicationCommandRan(b *Bot) func(cmd *bot.ApplicationCommandRan) {
	return func(cmd *bot.ApplicationCommandRan) {
		b.log.Info("Slash",
			zap.String("name", cmd.Interaction.Name()),
			zap.String("id", cmd.Interaction.ID()),
			zap.String("guildID", cmd.Interaction.GuildID()),
			zap.String("channelID", cmd.Interaction.ChannelID()),
			zap.String("userID", cmd.Interaction.AuthorID()),
		)
	}
}

func logApplicationCommandPanicked(b *Bot) func(cmd *bot.ApplicationCommandPanicked) {
	return func(cmd *bot.ApplicationCommandPanicked) {
		b.log.Error("Slash panic",
			zap.String("name", cmd.Interaction.Name()),
			zap.String("guildID", cmd.Interaction.GuildID()),
			zap.Any("interaction", cmd.Interaction.Interaction),
			zap.Any("reason", cmd.Reason),
		)
	}
}

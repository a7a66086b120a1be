package discord

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

// classify maps a discordgo error onto the eventlog taxonomy. op names the call for the
// error message.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		code := 0
		if rest.Message != nil {
			code = rest.Message.Code
		}
		switch code {
		case discordgo.ErrCodeUnknownWebhook, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild,
			discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownMember,
			discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%s: %w", op, eventlog.ErrNotFound)
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return fmt.Errorf("%s: %w", op, eventlog.ErrPermissionDenied)
		}
		if rest.Response != nil {
			switch rest.Response.StatusCode {
			case http.StatusNotFound:
				return fmt.Errorf("%s: %w", op, eventlog.ErrNotFound)
			case http.StatusForbidden, http.StatusUnauthorized:
				return fmt.Errorf("%s: %w", op, eventlog.ErrPermissionDenied)
			}
		}
		return &eventlog.TransientError{Op: op, Err: err}
	}

	// rate limits, timeouts and broken connections
	return &eventlog.TransientError{Op: op, Err: err}
}

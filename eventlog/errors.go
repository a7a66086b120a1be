package eventlog

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means the bot lacks a permission for the call. It is never retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means the target (webhook, channel, guild) no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrInvalidWebhookURL means a cached webhook URL could not be parsed.
	ErrInvalidWebhookURL = errors.New("invalid webhook url")
)

// TransientError wraps any other platform failure: rate limits, server errors, network trouble.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

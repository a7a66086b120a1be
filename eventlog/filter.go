package eventlog

import (
	"context"

	"go.uber.org/zap"
)

// Subject is what an event is about, as far as the ignore lists are concerned.
// Empty fields are not checked.
type Subject struct {
	UserID    string
	RoleIDs   []string
	ChannelID string
}

// Filter answers ignore-list questions for a guild.
type Filter struct {
	store *Store
	log   *zap.Logger
}

// IsIgnored reports whether events about s in guild gid are suppressed. It returns true when
// logging is disabled, s.ChannelID or s.UserID is ignored, or any of s.RoleIDs is ignored.
// A config that cannot be loaded suppresses the event.
func (f *Filter) IsIgnored(ctx context.Context, gid string, s Subject) bool {
	cfg, err := f.store.Get(ctx, gid)
	if err != nil {
		f.log.Warn("failed to load guild config", zap.String("guild", gid), zap.Error(err))
		return true
	}
	return cfg.Ignores(s)
}

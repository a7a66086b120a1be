package eventlog

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Attribution windows. An audit entry older than the window is never used.
const (
	WindowModeration = 5 * time.Second
	WindowMember     = 15 * time.Second
	WindowDefault    = 20 * time.Second
	WindowRole       = 60 * time.Second
)

const auditLookupLimit = 10

// Attribution names who performed an audited action.
//
// It is a guess: the audit log is matched by target and age only, so two administrators acting
// on the same target inside one window can be confused.
type Attribution struct {
	UserID string
	Reason string
	Entry  *discordgo.AuditLogEntry
}

func (a Attribution) Known() bool {
	return a.UserID != ""
}

// Actor renders the actor as a mention, or "Unknown".
func (a Attribution) Actor() string {
	if !a.Known() {
		return "Unknown"
	}
	return "<@" + a.UserID + ">"
}

// ReasonOr returns the audit reason, or def when there is none.
func (a Attribution) ReasonOr(def string) string {
	if a.Reason == "" {
		return def
	}
	return a.Reason
}

// Attribute walks entries in the given order, which the platform supplies most recent first,
// and returns the first one that satisfies match and is no older than now-window.
// When nothing qualifies the zero Attribution is returned, which renders as "Unknown".
func Attribute(entries []*discordgo.AuditLogEntry, window time.Duration, now time.Time, match func(*discordgo.AuditLogEntry) bool) Attribution {
	cutoff := now.Add(-window)
	for _, e := range entries {
		if e == nil {
			continue
		}
		ts, err := discordgo.SnowflakeTimestamp(e.ID)
		if err != nil || ts.Before(cutoff) {
			continue
		}
		if match != nil && !match(e) {
			continue
		}
		return Attribution{UserID: e.UserID, Reason: e.Reason, Entry: e}
	}
	return Attribution{}
}

// TargetIs matches entries about id.
func TargetIs(id string) func(*discordgo.AuditLogEntry) bool {
	return func(e *discordgo.AuditLogEntry) bool {
		return e.TargetID == id
	}
}

// ActionIn matches entries with one of the given actions.
func ActionIn(actions ...discordgo.AuditLogAction) func(*discordgo.AuditLogEntry) bool {
	return func(e *discordgo.AuditLogEntry) bool {
		return e.ActionType != nil && slices.Contains(actions, *e.ActionType)
	}
}

// Auditor fetches audit entries and applies Attribute to them.
type Auditor struct {
	client Client
	log    *zap.Logger
	now    func() time.Time
}

// Lookup attributes the latest action of the given type matching match.
// Fetch failures, including a missing View Audit Log permission, yield an unknown attribution.
func (a *Auditor) Lookup(ctx context.Context, gid string, action discordgo.AuditLogAction, window time.Duration, match func(*discordgo.AuditLogEntry) bool) Attribution {
	entries, err := a.client.AuditLog(ctx, gid, action, auditLookupLimit)
	if err != nil {
		a.fetchFailed(gid, err)
		return Attribution{}
	}
	return Attribute(entries, window, a.now(), match)
}

// LookupActions is Lookup over several action types. Each type is fetched with its own
// filter, so unrelated activity cannot crowd the wanted entry out of a single page; the
// pages are merged most recent first before matching.
func (a *Auditor) LookupActions(ctx context.Context, gid string, window time.Duration, match func(*discordgo.AuditLogEntry) bool, actions ...discordgo.AuditLogAction) Attribution {
	pages := make([][]*discordgo.AuditLogEntry, len(actions))
	g, gctx := errgroup.WithContext(ctx)
	for i, action := range actions {
		g.Go(func() error {
			entries, err := a.client.AuditLog(gctx, gid, action, auditLookupLimit)
			pages[i] = entries
			return err
		})
	}
	if err := g.Wait(); err != nil {
		a.fetchFailed(gid, err)
		return Attribution{}
	}
	return Attribute(mergeEntries(pages...), window, a.now(), match)
}

func (a *Auditor) fetchFailed(gid string, err error) {
	if errors.Is(err, ErrPermissionDenied) {
		a.log.Debug("no audit log access", zap.String("guild", gid))
		return
	}
	a.log.Warn("failed to fetch audit log", zap.String("guild", gid), zap.Error(err))
}

// mergeEntries flattens pages into one list ordered by descending snowflake, dropping
// duplicates and nil entries.
func mergeEntries(pages ...[]*discordgo.AuditLogEntry) []*discordgo.AuditLogEntry {
	seen := make(map[string]bool)
	var out []*discordgo.AuditLogEntry
	for _, page := range pages {
		for _, e := range page {
			if e == nil || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(x, y *discordgo.AuditLogEntry) int {
		return compareSnowflakes(y.ID, x.ID)
	})
	return out
}

// compareSnowflakes orders decimal ids numerically without parsing them.
func compareSnowflakes(x, y string) int {
	return cmp.Or(cmp.Compare(len(x), len(y)), strings.Compare(x, y))
}

// Target attributes the latest action of the given type on targetID.
func (a *Auditor) Target(ctx context.Context, gid string, action discordgo.AuditLogAction, targetID string, window time.Duration) Attribution {
	return a.Lookup(ctx, gid, action, window, TargetIs(targetID))
}

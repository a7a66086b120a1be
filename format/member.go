package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
	"github.com/intrntsrfr/meido/pkg/utils"
)

const ColorJoin Color = 11579568

// MemberJoined reports a new member. addedBy attributes bot additions.
func MemberJoined(m *discordgo.Member, memberCount int, addedBy eventlog.Attribution) *eventlog.Payload {
	if m == nil || m.User == nil {
		return nil
	}
	u := m.User
	created := utils.IDToTimestamp(u.ID)

	title := "User Joined"
	if u.Bot {
		title = "Bot Joined"
	}
	d := &details{}
	d.add("User", userRef(u)).
		add("User ID", u.ID).
		add("Account created", fmt.Sprintf("%s (%s)", relative(created), absolute(created))).
		add("Total members", strconv.Itoa(memberCount))
	if u.Bot {
		d.add("Added by", addedBy.Actor())
	}

	e := newEmbed(title, ColorJoin).
		WithThumbnail(u.AvatarURL("256")).
		WithDescription(d.String())
	if now().Sub(created) < 7*24*time.Hour {
		e.AddField("Notice", "This account is less than a week old", false)
	}
	return single(e, addedBy)
}

// MemberLeft reports a member leaving on their own. roles comes from the cached member.
func MemberLeft(u *discordgo.User, cached *discordgo.Member, memberCount int) *eventlog.Payload {
	if u == nil {
		return nil
	}
	d := &details{}
	d.add("User", userRef(u)).
		add("User ID", u.ID).
		add("Total members", strconv.Itoa(memberCount))
	if cached != nil && !cached.JoinedAt.IsZero() {
		d.add("Joined", relative(cached.JoinedAt))
	}
	e := newEmbed("User left", Color(13514294)).
		WithThumbnail(u.AvatarURL("256")).
		WithDescription(d.String())
	if cached != nil {
		e.AddField("Roles", roleList(cached.Roles), false)
	}
	return single(e, eventlog.Attribution{})
}

// MemberKicked reports a member removal that the audit log attributes to a kick.
func MemberKicked(u *discordgo.User, cached *discordgo.Member, a eventlog.Attribution) *eventlog.Payload {
	if u == nil {
		return nil
	}
	d := &details{}
	d.add("User", userRef(u)).
		add("User ID", u.ID).
		add("Kicked by", a.Actor()).
		add("Reason", a.ReasonOr("No reason provided"))
	e := newEmbed("Member Kicked", Color(13516350)).
		WithThumbnail(u.AvatarURL("256")).
		WithDescription(d.String())
	if cached != nil {
		e.AddField("Roles", roleList(cached.Roles), false)
	}
	return single(e, a)
}

// NicknameChanged returns nil when the nickname did not change.
func NicknameChanged(before, after *discordgo.Member, a eventlog.Attribution) *eventlog.Payload {
	if before == nil || after == nil || after.User == nil || before.Nick == after.Nick {
		return nil
	}
	d := &details{}
	d.add("User", userRef(after.User)).
		add("Before", orNone(before.Nick)).
		add("After", orNone(after.Nick))
	if a.Known() && a.UserID != after.User.ID {
		d.add("Changed by", a.Actor())
	}
	e := newEmbed("Nickname Updated", ColorTeal).
		WithThumbnail(after.User.AvatarURL("256")).
		WithDescription(d.String())
	return single(e, a)
}

// RoleDiff returns the role ids present only in after and only in before.
func RoleDiff(before, after []string) (added, removed []string) {
	had := make(map[string]bool, len(before))
	for _, id := range before {
		had[id] = true
	}
	has := make(map[string]bool, len(after))
	for _, id := range after {
		has[id] = true
		if !had[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !has[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// MemberRolesChanged returns nil when the role set did not change.
func MemberRolesChanged(before, after *discordgo.Member, a eventlog.Attribution) *eventlog.Payload {
	if before == nil || after == nil || after.User == nil {
		return nil
	}
	added, removed := RoleDiff(before.Roles, after.Roles)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	d := &details{}
	d.add("User", userRef(after.User)).
		add("Updated by", a.Actor())
	e := newEmbed("Role Updated", ColorGrey).
		WithThumbnail(after.User.AvatarURL("256")).
		WithDescription(d.String())
	if len(added) > 0 {
		e.AddField("Added", roleList(added), false)
	}
	if len(removed) > 0 {
		e.AddField("Removed", roleList(removed), false)
	}
	return single(e, a)
}

// HighRiskRoleGranted alerts on a role grant carrying dangerous permissions.
func HighRiskRoleGranted(m *discordgo.Member, role *discordgo.Role, a eventlog.Attribution) *eventlog.Payload {
	if m == nil || m.User == nil || role == nil {
		return nil
	}
	perms := DangerousIn(role.Permissions)
	if len(perms) == 0 {
		return nil
	}
	d := &details{}
	d.add("User", userRef(m.User)).
		add("Role", fmt.Sprintf("%s (%s)", role.Name, role.Mention())).
		add("Granted by", a.Actor())
	e := newEmbed("High-risk role granted", ColorRed).
		WithDescription(d.String()).
		AddField("Permissions", joinLimited(perms, fieldLimit), false)
	return single(e, a)
}

func timeoutUntil(m *discordgo.Member) time.Time {
	if m == nil || m.CommunicationDisabledUntil == nil {
		return time.Time{}
	}
	return *m.CommunicationDisabledUntil
}

// TimeoutTransitioned reports whether TimeoutChanged would log anything for the pair.
func TimeoutTransitioned(before, after *discordgo.Member) bool {
	if after == nil || after.User == nil {
		return false
	}
	applied, lifted := timeoutTransition(before, after)
	return applied || lifted
}

func timeoutTransition(before, after *discordgo.Member) (applied, lifted bool) {
	t := now()
	was := timeoutUntil(before)
	is := timeoutUntil(after)
	wasOn := was.After(t)
	isOn := is.After(t)
	return isOn && !is.Equal(was), wasOn && !isOn
}

// TimeoutChanged reports a timeout being applied or lifted, or nil when the timeout is unchanged.
// Expired timeouts count as no timeout.
func TimeoutChanged(before, after *discordgo.Member, a eventlog.Attribution) *eventlog.Payload {
	if after == nil || after.User == nil {
		return nil
	}
	applied, lifted := timeoutTransition(before, after)
	is := timeoutUntil(after)

	switch {
	case applied:
		d := &details{}
		d.add("User", userRef(after.User)).
			add("Until", fmt.Sprintf("%s (%s)", absolute(is), relative(is))).
			add("By", a.Actor()).
			add("Reason", a.ReasonOr("No reason provided"))
		return single(newEmbed("Timed out", ColorRed).WithDescription(d.String()), a)
	case lifted:
		d := &details{}
		d.add("User", userRef(after.User)).
			add("By", a.Actor())
		return single(newEmbed("Timeout removed", ColorIndigo).WithDescription(d.String()), a)
	}
	return nil
}

package format

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/intrntsrfr/guildlog/eventlog"
)

func colorHex(c int) string {
	return fmt.Sprintf("#%06x", c)
}

func roleDetails(r *discordgo.Role, a eventlog.Attribution) *details {
	d := &details{}
	d.add("Role", fmt.Sprintf("%v (%v)", r.Name, r.Mention())).
		add("Role ID", r.ID).
		add("By", a.Actor())
	if a.Reason != "" {
		d.add("Reason", a.Reason)
	}
	return d
}

func RoleCreated(r *discordgo.Role, a eventlog.Attribution) *eventlog.Payload {
	if r == nil {
		return nil
	}
	d := roleDetails(r, a)
	d.add("Color", colorHex(r.Color)).
		add("Hoisted", yesNo(r.Hoist)).
		add("Mentionable", yesNo(r.Mentionable))
	e := newEmbed("Role Created", ColorCoral).WithDescription(d.String())
	if perms := PermissionNames(r.Permissions); len(perms) > 0 {
		e.AddField("Permissions", joinLimited(perms, fieldLimit), false)
	}
	return single(e, a)
}

func RoleDeleted(r *discordgo.Role, a eventlog.Attribution) *eventlog.Payload {
	if r == nil {
		return nil
	}
	d := &details{}
	d.add("Role", "@"+r.Name).
		add("Role ID", r.ID).
		add("Color", colorHex(r.Color)).
		add("Deleted by", a.Actor())
	if a.Reason != "" {
		d.add("Reason", a.Reason)
	}
	return single(newEmbed("Role Deleted", ColorRed).WithDescription(d.String()), a)
}

// RoleUpdated returns one embed per changed attribute, or nil when nothing changed.
// RoleChanged reports whether RoleUpdated would log anything for the pair.
func RoleChanged(before, after *discordgo.Role) bool {
	if before == nil || after == nil {
		return false
	}
	return before.Name != after.Name ||
		before.Color != after.Color ||
		before.Hoist != after.Hoist ||
		before.Mentionable != after.Mentionable ||
		before.Icon != after.Icon ||
		before.UnicodeEmoji != after.UnicodeEmoji ||
		before.Permissions != after.Permissions
}

func RoleUpdated(before, after *discordgo.Role, a eventlog.Attribution) *eventlog.Payload {
	if !RoleChanged(before, after) {
		return nil
	}
	p := &eventlog.Payload{}
	add := func(title string, fn func(d *details)) {
		d := roleDetails(after, a)
		fn(d)
		p.Embeds = append(p.Embeds, finish(newEmbed(title, ColorGrey).WithDescription(d.String()), a))
	}

	if before.Name != after.Name {
		add("Role Name Updated", func(d *details) {
			d.add("Before", before.Name).add("After", after.Name)
		})
	}
	if before.Color != after.Color {
		add("Role Color Updated", func(d *details) {
			d.add("Before", colorHex(before.Color)).add("After", colorHex(after.Color))
		})
	}
	if before.Hoist != after.Hoist {
		add("Role Hoist Updated", func(d *details) {
			d.add("Displayed separately", yesNo(after.Hoist))
		})
	}
	if before.Mentionable != after.Mentionable {
		add("Role Mention Updated", func(d *details) {
			d.add("Mentionable", yesNo(after.Mentionable))
		})
	}
	if before.Icon != after.Icon || before.UnicodeEmoji != after.UnicodeEmoji {
		add("Role Icon Updated", func(d *details) {
			d.add("Icon", orNone(after.UnicodeEmoji+after.Icon))
		})
	}
	if before.Permissions != after.Permissions {
		granted, revoked := permissionDiff(before.Permissions, after.Permissions)
		add("Role Permissions Updated", func(d *details) {
			d.addIf(granted != 0, "Granted", joinLimited(PermissionNames(granted), 800)).
				addIf(revoked != 0, "Revoked", joinLimited(PermissionNames(revoked), 800))
		})
	}
	if len(p.Embeds) == 0 {
		return nil
	}
	return p
}

// CriticalPermissionsGranted alerts when an update grants dangerous permissions to a role.
func CriticalPermissionsGranted(before, after *discordgo.Role, a eventlog.Attribution) *eventlog.Payload {
	if before == nil || after == nil {
		return nil
	}
	granted, _ := permissionDiff(before.Permissions, after.Permissions)
	perms := DangerousIn(granted)
	if len(perms) == 0 {
		return nil
	}
	e := newEmbed("Critical Perms Granted ⚠️", ColorRed).
		WithDescription(roleDetails(after, a).String()).
		AddField("Permissions", joinLimited(perms, fieldLimit), false)
	return single(e, a)
}

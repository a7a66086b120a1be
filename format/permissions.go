package format

import "github.com/bwmarrin/discordgo"

type permission struct {
	bit  int64
	name string
}

var permissions = []permission{
	{discordgo.PermissionAdministrator, "Administrator"},
	{discordgo.PermissionManageServer, "Manage Server"},
	{discordgo.PermissionManageRoles, "Manage Roles"},
	{discordgo.PermissionManageChannels, "Manage Channels"},
	{discordgo.PermissionManageWebhooks, "Manage Webhooks"},
	{discordgo.PermissionBanMembers, "Ban Members"},
	{discordgo.PermissionKickMembers, "Kick Members"},
	{discordgo.PermissionModerateMembers, "Timeout Members"},
	{discordgo.PermissionMentionEveryone, "Mention Everyone"},
	{discordgo.PermissionViewAuditLogs, "View Audit Log"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
	{discordgo.PermissionManageThreads, "Manage Threads"},
	{discordgo.PermissionManageNicknames, "Manage Nicknames"},
	{discordgo.PermissionManageEmojis, "Manage Expressions"},
	{discordgo.PermissionManageEvents, "Manage Events"},
	{discordgo.PermissionViewGuildInsights, "View Server Insights"},
	{discordgo.PermissionCreateInstantInvite, "Create Invite"},
	{discordgo.PermissionChangeNickname, "Change Nickname"},
	{discordgo.PermissionViewChannel, "View Channels"},
	{discordgo.PermissionSendMessages, "Send Messages"},
	{discordgo.PermissionSendMessagesInThreads, "Send Messages in Threads"},
	{discordgo.PermissionCreatePublicThreads, "Create Public Threads"},
	{discordgo.PermissionCreatePrivateThreads, "Create Private Threads"},
	{discordgo.PermissionSendTTSMessages, "Send TTS Messages"},
	{discordgo.PermissionEmbedLinks, "Embed Links"},
	{discordgo.PermissionAttachFiles, "Attach Files"},
	{discordgo.PermissionReadMessageHistory, "Read Message History"},
	{discordgo.PermissionAddReactions, "Add Reactions"},
	{discordgo.PermissionUseExternalEmojis, "Use External Emojis"},
	{discordgo.PermissionUseExternalStickers, "Use External Stickers"},
	{discordgo.PermissionUseSlashCommands, "Use Application Commands"},
	{discordgo.PermissionVoiceConnect, "Connect"},
	{discordgo.PermissionVoiceSpeak, "Speak"},
	{discordgo.PermissionVoiceStreamVideo, "Video"},
	{discordgo.PermissionUseActivities, "Use Activities"},
	{discordgo.PermissionVoiceUseVAD, "Use Voice Activity"},
	{discordgo.PermissionVoicePrioritySpeaker, "Priority Speaker"},
	{discordgo.PermissionVoiceMuteMembers, "Mute Members"},
	{discordgo.PermissionVoiceDeafenMembers, "Deafen Members"},
	{discordgo.PermissionVoiceMoveMembers, "Move Members"},
	{discordgo.PermissionVoiceRequestToSpeak, "Request to Speak"},
}

// Dangerous is the set of permissions whose grant raises an alert.
const Dangerous int64 = discordgo.PermissionAdministrator |
	discordgo.PermissionManageServer |
	discordgo.PermissionManageRoles |
	discordgo.PermissionManageChannels |
	discordgo.PermissionManageWebhooks |
	discordgo.PermissionBanMembers |
	discordgo.PermissionKickMembers |
	discordgo.PermissionMentionEveryone

// PermissionNames lists the names of the permissions set in bits, most powerful first.
func PermissionNames(bits int64) []string {
	var out []string
	for _, p := range permissions {
		if bits&p.bit != 0 {
			out = append(out, p.name)
		}
	}
	return out
}

// DangerousIn returns the dangerous permissions set in bits.
func DangerousIn(bits int64) []string {
	return PermissionNames(bits & Dangerous)
}

func permissionDiff(before, after int64) (added, removed int64) {
	return after &^ before, before &^ after
}

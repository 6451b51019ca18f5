// Package messages holds every user-visible notice string in one place.
package messages

const (
	MsgReasonFlood        = "flood (repeated identical messages)"
	MsgReasonCaps         = "excessive capitalization"
	MsgReasonZalgo        = "obfuscated (Zalgo) text"
	MsgReasonZalgoRepeat  = "repeated use of obfuscated (Zalgo) text"
	MsgReasonMimicry      = "repeating the bot's messages"
	MsgReasonForwardedAd  = "advertising (forward from a public channel)"
	MsgReasonLink         = "posting a link while the link ban is active"
	MsgReasonGlobalBan    = "globally blacklisted user"
	MsgReasonGlobalBanFor = "globally blacklisted user (originally: %s)"
	MsgReasonBannedWord   = "use of a banned word: %q"
	MsgReasonEditedWord   = "editing a message into spam (word: %q)"
	MsgReasonBannedAvatar = "banned avatar (%s)"
	MsgReasonBioWord      = "banned word in profile bio: %q"
	MsgReasonNickWord     = "banned word in display name: %q"

	MsgUserBanned   = "🚫 %s was automatically banned. Reason: %s."
	MsgUserRemoved  = "🚫 %s is globally blacklisted and was removed from this chat."
	MsgUserMuted    = "🔇 %s was muted for %s after repeated violations."
	MsgUserWarned   = "⚠️ %s, you received a warning for: %s. Warning %d of %d."
	MsgZalgoWarning = "⚠️ %s, please do not use excessive combining marks (Zalgo text). Your message was deleted. A repeat violation leads to a ban."
	MsgMimicWarning = "⚠️ %s, please do not repeat the bot's messages. Your message was deleted. A repeat violation leads to a mute."

	MsgCaptchaChallenge = "Welcome, %s!\n\nTo get access to the chat, please confirm you are not a bot. This message disappears in %s."
	MsgCaptchaButton    = "I'm not a bot"
	MsgCaptchaPassed    = "✅ Verification passed. Welcome!"
	MsgCaptchaNotYours  = "This button is not for you."
	MsgMediaRestricted  = "ℹ️ %s, sending media, links and stickers is restricted for the first %s."

	MsgProposalTitle    = "User %s (ID %d) was automatically banned in chat %d.\nReason: %s\n\nAdd this user to the global blacklist?"
	MsgProposalApprove  = "✅ Yes, ban globally"
	MsgProposalReject   = "❌ No"
	MsgProposalApproved = "✅ User %d added to the global blacklist."
	MsgProposalRejected = "❌ Global ban rejected."
	MsgProposalInvalid  = "❌ This request is expired or invalid."
	MsgProposalHistory  = "\n\nWarnings for this user in the last 7 days: %d."

	MsgLinkInBioTitle   = "⚠️ Link found in a profile bio, moderation required.\nChat: %d\nUser: %s (ID %d)\n\nBio:\n%s\n\nThe user is temporarily restricted. Choose an action."
	MsgLinkInBioBan     = "🚫 Ban"
	MsgLinkInBioRestore = "✅ Restore access"
	MsgLinkBanApplied   = "🚫 %s was banned by an administrator for a link in their profile."
	MsgLinkBanRestored  = "✅ %s had their access restored after review and was whitelisted."

	MsgDailyReport = "📊 Moderation report, last 24 hours\n\n🚫 Bans: %d\n🔇 Mutes: %d\n👥 Members tracked: %d"

	MsgNotAdmin     = "⛔ You do not have permission to run this command."
	MsgCommandUsage = "Usage: %s"
	MsgWordAdded    = "✅ Added %q to the %s list."
	MsgWordRemoved  = "✅ Removed %q from the %s list."
	MsgWordMissing  = "❌ %q is not in the %s list."
	MsgToggleOn     = "✅ %s enabled for this chat."
	MsgToggleOff    = "✅ %s disabled for this chat."

	MsgTargetRequired     = "❌ Reply to the user's message or pass their numeric ID."
	MsgBadDuration        = "❌ Could not parse the duration, use forms like 30m or 2h."
	MsgManualBan          = "🚫 %s was banned by an administrator."
	MsgManualUnban        = "✅ User %d was unbanned."
	MsgManualUnmute       = "✅ User %d was unmuted."
	MsgAvatarBanListed    = "✅ The user's current avatar was added to the ban list."
	MsgAvatarBanFailed    = "❌ Could not fetch an avatar for that user."
	MsgWhitelisted        = "✅ User %d was whitelisted."
	MsgUnwhitelisted      = "✅ User %d was removed from the whitelist."
	MsgGlobalUnbanDone    = "✅ Global ban lifted for user %d."
	MsgGlobalUnbanMissing = "❌ User %d is not in the global blacklist."
)

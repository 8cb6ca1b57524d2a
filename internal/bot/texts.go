package bot

// Reply keyboard labels. They are registered as command aliases.
const (
	labelCreateVCF  = "📂 Create VCF"
	labelProfile    = "👤 Profile"
	labelContact    = "📩 Contact for Key"
	labelPutKey     = "🔑 Put Key"
	labelMainMenu   = "🔙 Main Menu"
	labelAddKey     = "➕ Add Key"
	labelManageKeys = "🔑 Manage Keys & Plans"
	labelStats      = "📊 User Stats"
	labelSearch     = "🔍 Search User"
	labelBan        = "🚫 Ban/Unban User"
	labelBroadcast  = "📢 Broadcast Message"
	labelToggle     = "⚙️ Bot ON/OFF"
)

const (
	textWelcome = "✨ Welcome to VCF Converter Bot ✨\n👋 Hello dost!\n\n" +
		"🚀 Pehle sabhi channels join karo aur fir ✅ Verify dabao."
	textVerifyButton    = "✅ Verify"
	textJoinChannel     = "Join %s"
	textVerified        = "🎉 Verification Successful!\n✅ Ab aap bot use kar sakte ho 🚀"
	textNotJoined       = "❌ Pehle sabhi channels join karo!"
	textVerifyError     = "⚠️ Error: membership check failed, try again later."
	textMainMenu        = "🏠 Main Menu:"
	textUnknown         = "❓ Samajh nahi aaya. Kripya menu buttons use karein."
	textMaintenance     = "⚠️ Bot is under maintenance. Please try again later."
	textInternalError   = "⚠️ Something went wrong, please try again later."
	textNotRegistered   = "⚠️ You are not registered. Send /start first."
	textProfile         = "👤 Profile\n\n🆔 %d\n📛 %s\n🔑 Plan: %s"
	textContactAdmin    = "📞 Key ke liye contact admin:\n👤 %s"
	textContactNoAdmin  = "📞 Key ke liye admin se contact karein."
	textCancelled       = "❎ Cancelled."
	textNothingToCancel = "Nothing to cancel."

	textEnterKey      = "🔑 Please enter your subscription key:"
	textKeyAsText     = "🔑 Please send the key as a text message."
	textInvalidKey    = "❌ Invalid Key"
	textKeyUsed       = "❌ Key already used or disabled"
	textKeyRedeemed   = "🎉 Congratulations!\n✅ Your plan is active for %d days.\n🗓️ Expiry Date: %s"
	textPlanInactive  = "❌ Your plan is not active. Please put a valid key."
	textBannedUser    = "🚫 You are banned."
	textSendFile      = "📂 Please send me your file (txt/csv) with numbers line by line."
	textExpectFile    = "📎 Please send the numbers as a file (txt/csv), not as text."
	textExpectText    = "✍️ Please answer with a text message."
	textFileTooLarge  = "❌ File is too large. Maximum size is %d KB."
	textNotText       = "❌ Could not read the file. Please send a plain text (UTF-8) file."
	textNoNumbers     = "❌ The file has no numbers. Send a file with one number per line."
	textDownloadFail  = "⚠️ Could not download the file, please send it again."
	textFileReceived  = "📝 File received! (%d numbers)\nNow send me a contact name (same for all numbers)."
	textAskVCFName    = "👌 Contact name set!\nNow send me a name for the VCF file (without extension)."
	textAskChunkSize  = "📊 Ab batao ek file me kitne contacts chahiye? (e.g. 50)"
	textAskStartIndex = "🔢 Thik hai! Ab batao indexing kis number se start ho? (e.g. 1 ya 1000)"
	textEmptyText     = "❌ This cannot be empty, please send it again."
	textInvalidNumber = "❌ Please send a valid number."
	textChunkPositive = "❌ The number of contacts per file must be at least 1."
	textFileCaption   = "📂 File %d ready!\n👤 %s\n📊 %d contacts"
	textAllDone       = "✅ Sabhi VCF files ban gayi 🎉"
	textSessionGone   = "⌛ Your session expired. Tap 📂 Create VCF to start again."

	textAdminPanel      = "🛠️ Admin Panel"
	textSelectDuration  = "🔑 Select duration:"
	textDayOne          = "1 Day"
	textDays            = "%d Days"
	textKeyGenerated    = "✅ Key Generated\n\n```\n%s\n```\n📅 Validity: %d Days"
	textBadDuration     = "Unsupported duration"
	textAskDisableKey   = "🔧 Send me a key to disable:"
	textKeyDisabled     = "✅ Key %s disabled."
	textKeyNotFound     = "❌ Key %s not found."
	textStats           = "📊 Bot User Stats\n\n👥 Total Users: %d\n✅ With Plan: %d\n🟢 Active Now: %d\n🚫 Banned: %d"
	textAskSearchUser   = "🔍 Enter User ID to search:"
	textSearchResult    = "👤 *User:* %s\n🆔 *ID:* `%d`\n🔑 *Plan:* %s\n🚫 *Banned:* %s"
	textUserNotFound    = "❌ User not found"
	textAskToggleBan    = "🚫 Enter User ID to toggle Ban/Unban:"
	textUserBanned      = "🚫 User %d banned."
	textUserUnbanned    = "✅ User %d unbanned."
	textAskBroadcast    = "📢 Send me the message to broadcast:"
	textBroadcastBody   = "📢 Broadcast:\n\n%s"
	textBroadcastDone   = "✅ Broadcast sent to %d of %d users."
	textBroadcastFailed = "\n⚠️ Failed: %d (%s)"
	textBroadcastError  = "⚠️ Broadcast stopped early: %d of %d delivered."
	textBotState        = "⚙️ Bot is now %s"
	textBotLive         = "🚀 Bot is now LIVE again!"
)

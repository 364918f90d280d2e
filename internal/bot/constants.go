package bot

import "time"

// Command names
const (
	CommandStartConversation = "start-conversation"
	CommandClearMemory       = "clear-memory"
	CommandSpeak             = "speak"
	CommandSpeakMessage      = "Speak"

	OptionText    = "text"
	OptionReplied = "replied"
)

// User-facing messages
const (
	MsgModelError      = "Sorry, I couldn't process your request."
	MsgJoinRequired    = "Please join the required server to use my commands."
	MsgNoTextToSpeak   = "❌ Could not find text content to speak."
	MsgVoiceSent       = "✅ Voice file sent! Check the channel reply."
	MsgVoicePlayed     = "✅ Finished speaking in your voice channel."
	MsgVoiceDisabled   = "❌ Voice is disabled."
	MsgInternalError   = "❌ An internal error occurred. I failed, but I did not crash. Please try again."
	MsgUnexpectedError = "❌ An unexpected error occurred. Please try again."
)

// Discord lookups
const (
	RecentMessageScan  = 50
	DiscordCallTimeout = 15 * time.Second
)

// commandPrefixes mark text meant for other bots.
var commandPrefixes = []string{"/", "!"}

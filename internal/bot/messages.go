package bot

const (
	msgWelcome = `✍️ Editor Bot

Send me any text, or a UTF-8 .txt file, and I will return it edited.
Use /instructions to change what "edited" means for you, for example:
"Translate this text from Persian to English".

/help lists the limits and every command.`

	msgHelpFmt = `👋 Editor Bot

Supported languages: %s

How it works
• Send text here, or a .txt file encoded as UTF-8.
• The edited result comes back in this chat.

Custom instruction
• /instructions - your next message becomes your editing instruction.

Engine
• /openai or /gemini switches the engine for your account. The default is %s.

Limits
• Maximum length: %d words
• Minimum interval between requests: %d seconds

Other
• /language - choose your preferred language
• /send_text - how to submit text`

	msgSendText           = "Send the text or a .txt file."
	msgAskInstruction     = "✍️ Send your editing instruction. Your next message will be saved."
	msgInstructionSaved   = "✅ Instruction saved."
	msgInstructionCleared = "✅ Instruction cleared; the default instruction applies again."
	msgAskLanguageFmt     = "Choose a language: %s"
	msgInvalidLanguage    = "⛔ Invalid language. Pick one from the list."
	msgLanguageSavedFmt   = "✅ Your language is set to %q."
	msgProviderSavedFmt   = "✅ Your engine is set to %s (for your account only)."

	msgQueuedFmt        = "🧾 Your request is queued. Position: %d"
	msgLanguageMismatch = "⚠️ The text language (%s) differs from your setting (%s). Use /language if needed."
	msgEmptyText        = "⛔ The text is empty."
	msgTooManyWordsFmt  = "⛔ The text is too long. At most %d words are allowed."
	msgRateLimitedFmt   = "⏳ Leave at least %d seconds between requests. (Remaining: %ds)"
	msgQueueFull        = "⛔ The queue is full right now. Please try again in a few minutes."
	msgNotTextFile      = "⛔ Only .txt files are accepted."
	msgDocumentTooLarge = "⛔ The file is too large."
	msgSubmitFailed     = "⛔ Your request could not be queued. Please try again."
	msgUnknownCommand   = "Unknown command. See /help."

	msgAccessDenied       = "⛔ Access denied."
	msgSettingsHeader     = "⚙️ Settings:"
	msgSetSettingUsage    = "Usage: /set_setting key value"
	msgSettingSavedFmt    = "✅ Setting %q saved as %q."
	msgForceProviderUsage = "Usage: /force_provider openai|gemini"
	msgForceProviderFmt   = "✅ The default engine is set to %s."
	msgStatsFmt           = "📊 Stats:\n• Users: %d\n• Jobs: %d (pending: %d, processing: %d, done: %d, error: %d)\n• Failovers: %d"
	msgQueueStatusFmt     = "🧾 Queue: waiting = %d, processing = %d, workers = %d"
	msgKeysFmt            = "🔐 Keys - OpenAI: %d | Gemini: %d"
	msgInternalError      = "⛔ Something went wrong. Please try again later."
)

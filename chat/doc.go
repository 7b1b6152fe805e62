// Package chat exposes the bot's commands in Twitch chat.
//
// It connects to Twitch IRC as TWITCH_BOT_USERNAME, joins every channel in
// TWITCH_CHANNELS and treats messages starting with TWITCH_COMMAND_PREFIX
// (default "!") as commands, e.g. "!teams 2 6 Alice,Bob,Charlie,Diana,Eve,Frank".
//
// Twitch chat is plain text: rich replies are flattened and packed into
// messages of at most 500 characters, and file uploads are not supported, so
// "!embed" only works when the YouTube fallback is configured.
//
// Credentials: the IRC client requires an OAuth token with chat:read and
// chat:edit scopes. The "oauth:" prefix is added when missing.
package chat

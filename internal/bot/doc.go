// Package bot provides the Discord event router for the leveling bot.
//
// It bridges go-sarah's bot framework with Discord using discordgo for the
// underlying API integration: inbound message events are converted into
// sarah.Input for command dispatch, sarah.Output is delivered as Discord
// messages, and guild events (member joins and departures, message deletions
// and edits, voice activity) are rendered into log-channel embeds. The
// message handler also drives the experience-grant path against the ledger.
package bot

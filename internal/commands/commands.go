// Package commands registers the bot's prefix-triggered commands with the
// go-sarah framework: rank, leaderboard, ping, info, clear and rules.
package commands

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/guildtools/levelbot/internal/bot"
	"github.com/guildtools/levelbot/internal/ledger"
	"github.com/guildtools/levelbot/internal/leveling"
)

// clearCooldown throttles the clear command to one use per user.
const clearCooldown = 15 * time.Second

// Templated user-visible error messages.
const (
	msgNoPermission     = "❌ You do not have permission to use this command."
	msgBotMissingPerms  = "❌ I don't have the required permissions to perform this command."
	msgGuildOnly        = "❌ This command can only be used in a server."
	msgUnexpectedError  = "❌ An unexpected error occurred. Please try again later."
	msgCooldownTemplate = "❌ This command is on cooldown. Please try again in %.1f seconds."
)

// API abstracts the discordgo.Session methods the commands issue directly.
// *discordgo.Session satisfies this interface.
type API interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	HeartbeatLatency() time.Duration
}

// Deps carries everything the command handlers need: the command prefix, the
// Discord API surface, the session's state cache, the experience ledger and
// the channel restriction for the rules command.
type Deps struct {
	Prefix         string
	API            API
	State          *discordgo.State
	Store          *ledger.Store
	RulesChannelID string

	clearCooldowns *leveling.Cooldowns
}

// Register builds all command props and registers them with go-sarah.
func Register(d *Deps) {
	if d.clearCooldowns == nil {
		d.clearCooldowns = leveling.NewCooldowns(clearCooldown)
	}

	sarah.RegisterCommandProps(d.pingProps())
	sarah.RegisterCommandProps(d.infoProps())
	sarah.RegisterCommandProps(d.rankProps())
	sarah.RegisterCommandProps(d.leaderboardProps())
	sarah.RegisterCommandProps(d.clearProps())
	sarah.RegisterCommandProps(d.rulesProps())
}

// pattern builds the match pattern for a command and its aliases, anchored to
// the configured prefix.
func (d *Deps) pattern(names ...string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(d.Prefix) + `(` + strings.Join(names, `|`) + `)(\s+|$)`)
}

// event extracts the originating Discord event from a sarah.Input. It fails
// for inputs that did not come through the Discord adapter.
func event(input sarah.Input) (*discordgo.MessageCreate, error) {
	di, ok := input.(*bot.Input)
	if !ok {
		return nil, errors.New("input did not originate from the Discord adapter")
	}
	return di.Event, nil
}

// member resolves a guild member, preferring the session's state cache and
// falling back to the API. It returns nil when the user cannot be resolved,
// e.g. when they already left the guild.
func (d *Deps) member(guildID, userID string) *discordgo.Member {
	if d.State != nil {
		if m, err := d.State.Member(guildID, userID); err == nil && m != nil && m.User != nil {
			return m
		}
	}

	m, err := d.API.GuildMember(guildID, userID)
	if err != nil || m == nil || m.User == nil {
		return nil
	}
	return m
}

// hasChannelPermission reports whether the user holds the given permission in
// the channel.
func (d *Deps) hasChannelPermission(userID, channelID string, permission int64) (bool, error) {
	perms, err := d.API.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false, err
	}
	return perms&permission != 0, nil
}

// displayName picks the best human-readable name for a member.
func displayName(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	return userDisplayName(m.User)
}

// userDisplayName picks the best human-readable name for a bare user.
func userDisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// isForbidden reports whether the error is a Discord 403 response, i.e. the
// bot itself lacks a permission.
func isForbidden(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
}

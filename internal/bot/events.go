package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// Embed accent colors.
const (
	colorGreen  = 0x57F287
	colorRed    = 0xED4245
	colorOrange = 0xE67E22
	colorBlue   = 0x3498DB
	colorPurple = 0x9B59B6
)

// handleReady logs the bot identity and sets the presence on the initial
// connection. Later Ready events from gateway reconnects only log a line.
func (a *Adapter) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	if a.readyOnce {
		logger.Infof("Bot reconnected.")
		return
	}
	a.readyOnce = true

	logger.Infof("Bot logged in as %s (ID: %s)", r.User.Username, r.User.ID)
	logger.Infof("Connected to %d guilds", len(r.Guilds))

	if err := a.session.UpdateListeningStatus(a.config.CommandPrefix + "help"); err != nil {
		logger.Warnf("Failed to set presence: %+v", err)
	}
}

func (a *Adapter) handleResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	logger.Infof("Gateway session resumed.")
}

// handleMemberAdd posts a welcome embed to the configured welcome channel.
func (a *Adapter) handleMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	channelID := a.config.WelcomeChannelID
	if channelID == "" || m.User == nil {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📥 Welcome to the Server!",
		Description: fmt.Sprintf("Welcome, %s! We're happy to have you.", m.User.Mention()),
		Color:       colorGreen,
		Timestamp:   embedTimestamp(),
	}
	if m.User.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("")}
	}
	if g := stateGuild(s, m.GuildID); g != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s • Total Members: %d", g.Name, g.MemberCount),
		}
	}

	a.sendEmbed(channelID, embed)
}

// handleMemberRemove posts a goodbye embed to the configured goodbye channel.
func (a *Adapter) handleMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	channelID := a.config.GoodbyeChannelID
	if channelID == "" || m.User == nil {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📤 A Member Left",
		Description: fmt.Sprintf("**%s** has left the server.", m.User.Username),
		Color:       colorRed,
		Timestamp:   embedTimestamp(),
	}
	if m.User.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("")}
	}
	if g := stateGuild(s, m.GuildID); g != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s • Total Members: %d", g.Name, g.MemberCount),
		}
	}

	a.sendEmbed(channelID, embed)
}

// handleMessageDelete posts a log embed for a deleted message. The content
// is only available when the message was still in the session's state cache.
// A best-effort audit log query attributes the deletion to a moderator.
func (a *Adapter) handleMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	channelID := a.config.LogChannelID
	if channelID == "" {
		return
	}

	deleted := m.BeforeDelete
	if deleted == nil || deleted.Author == nil || deleted.Author.Bot || deleted.Content == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🗑️ Message Deleted",
		Description: fmt.Sprintf("A message sent by **%s** in %s was deleted.", deleted.Author.Mention(), channelMention(m.ChannelID)),
		Color:       colorOrange,
		Timestamp:   embedTimestamp(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Message Content", Value: codeBlock(deleted.Content)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "User ID: " + deleted.Author.ID},
	}

	if executorID := a.deletionExecutor(m.GuildID, deleted.Author.ID); executorID != "" && executorID != deleted.Author.ID {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Deleted By",
			Value: fmt.Sprintf("<@%s>", executorID),
		})
	}

	a.sendEmbed(channelID, embed)
}

// deletionExecutor looks up who deleted a message authored by the given user
// from the guild audit log. It returns an empty string when the audit log is
// inaccessible or holds no matching entry, so callers degrade silently when
// the bot lacks the View Audit Log permission.
func (a *Adapter) deletionExecutor(guildID, authorID string) string {
	auditLog, err := a.session.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionMessageDelete), 5)
	if err != nil {
		logger.Debugf("Audit log lookup failed for guild %s: %+v", guildID, err)
		return ""
	}

	for _, entry := range auditLog.AuditLogEntries {
		if entry.TargetID == authorID {
			return entry.UserID
		}
	}
	return ""
}

// handleMessageUpdate posts a before/after log embed for an edited message.
func (a *Adapter) handleMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	channelID := a.config.LogChannelID
	if channelID == "" {
		return
	}

	before := m.BeforeUpdate
	if before == nil || m.Author == nil || m.Author.Bot || before.Content == m.Content || m.Content == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "✏️ Message Edited",
		Description: fmt.Sprintf("**%s** edited their message in %s.", m.Author.Mention(), channelMention(m.ChannelID)),
		Color:       colorBlue,
		Timestamp:   embedTimestamp(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Original Message", Value: codeBlock(before.Content)},
			{Name: "New Message", Value: codeBlock(m.Content)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "User ID: " + m.Author.ID},
	}

	a.sendEmbed(channelID, embed)
}

// handleVoiceStateUpdate posts a log embed when a member joins, leaves or
// switches voice channels.
func (a *Adapter) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	channelID := a.config.LogChannelID
	if channelID == "" {
		return
	}
	if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
		return
	}

	var beforeChannel string
	if v.BeforeUpdate != nil {
		beforeChannel = v.BeforeUpdate.ChannelID
	}
	if beforeChannel == v.ChannelID {
		return
	}

	mention := fmt.Sprintf("<@%s>", v.UserID)

	var embed *discordgo.MessageEmbed
	switch {
	case beforeChannel == "":
		embed = &discordgo.MessageEmbed{
			Title:       "🔊 Joined Voice Channel",
			Description: fmt.Sprintf("%s joined the voice channel %s.", mention, channelMention(v.ChannelID)),
			Color:       colorBlue,
		}
	case v.ChannelID == "":
		embed = &discordgo.MessageEmbed{
			Title:       "🔇 Left Voice Channel",
			Description: fmt.Sprintf("%s left the voice channel %s.", mention, channelMention(beforeChannel)),
			Color:       colorOrange,
		}
	default:
		embed = &discordgo.MessageEmbed{
			Title:       "🔁 Switched Voice Channel",
			Description: fmt.Sprintf("%s switched voice channels.", mention),
			Color:       colorPurple,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "From Channel", Value: channelMention(beforeChannel)},
				{Name: "To Channel", Value: channelMention(v.ChannelID)},
			},
		}
	}

	embed.Timestamp = embedTimestamp()
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "User ID: " + v.UserID}

	a.sendEmbed(channelID, embed)
}

// sendEmbed delivers a log embed, logging delivery failures instead of
// propagating them. A broken log channel must never take an event handler
// down.
func (a *Adapter) sendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := a.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		logger.Errorf("Failed to send embed to %s: %+v", channelID, err)
	}
}

func stateGuild(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s == nil || s.State == nil {
		return nil
	}
	g, err := s.State.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}

func channelMention(channelID string) string {
	return "<#" + channelID + ">"
}

func codeBlock(content string) string {
	return "```" + content + "```"
}

func embedTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

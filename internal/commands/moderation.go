package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/guildtools/levelbot/internal/bot"
)

const (
	// clearMax caps a single bulk deletion, matching Discord's API limit.
	clearMax = 100

	// clearDefault is the number of messages deleted when no amount is given.
	clearDefault = 5

	// confirmationTTL is how long the clear confirmation stays visible.
	confirmationTTL = 5 * time.Second
)

func (d *Deps) clearProps() *sarah.CommandProps {
	pattern := d.pattern("clear", "purge")

	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("clear").
		MatchPattern(pattern).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.clear(input, sarah.StripMessage(pattern, input.Message()))
		}).
		Instruction(fmt.Sprintf("Input %sclear [amount] to bulk-delete messages (requires Manage Messages).", d.Prefix)).
		MustBuild()
}

func (d *Deps) clear(input sarah.Input, arg string) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}
	if ev.GuildID == "" {
		return bot.NewResponse(input, msgGuildOnly)
	}

	allowed, err := d.hasChannelPermission(ev.Author.ID, ev.ChannelID, discordgo.PermissionManageMessages)
	if err != nil {
		logger.Errorf("Failed to resolve permissions for %s in %s: %+v", ev.Author.ID, ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}
	if !allowed {
		return bot.NewResponse(input, msgNoPermission)
	}

	amount := clearDefault
	if arg != "" {
		amount, err = strconv.Atoi(arg)
		if err != nil {
			return bot.NewResponse(input, "❌ Amount must be an integer.")
		}
	}
	if amount < 1 || amount > clearMax {
		return bot.NewResponse(input, fmt.Sprintf("❌ Amount must be between 1 and %d.", clearMax))
	}

	if !d.clearCooldowns.Eligible(ev.GuildID, ev.Author.ID) {
		remaining := d.clearCooldowns.Remaining(ev.GuildID, ev.Author.ID)
		return bot.NewResponse(input, fmt.Sprintf(msgCooldownTemplate, remaining.Seconds()))
	}
	d.clearCooldowns.Mark(ev.GuildID, ev.Author.ID)

	// +1 to include the command message itself.
	deleted, err := d.purgeChannel(ev.ChannelID, amount+1)
	if err != nil {
		if isForbidden(err) {
			return bot.NewResponse(input, msgBotMissingPerms)
		}
		logger.Errorf("Clear command failed in %s: %+v", ev.ChannelID, err)
		return bot.NewResponse(input, fmt.Sprintf("❌ Failed to delete messages: %v", err))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🧹 Messages Cleared",
		Description: fmt.Sprintf("Successfully deleted %d messages.", deleted-1),
		Color:       colorGreenBright,
	}

	confirmation, err := d.API.ChannelMessageSendEmbed(ev.ChannelID, embed)
	if err != nil {
		logger.Errorf("Failed to send clear confirmation to %s: %+v", ev.ChannelID, err)
		return nil, nil
	}

	// The confirmation cleans itself up so the channel stays tidy.
	time.AfterFunc(confirmationTTL, func() {
		if err := d.API.ChannelMessageDelete(ev.ChannelID, confirmation.ID); err != nil {
			logger.Debugf("Failed to delete clear confirmation %s: %+v", confirmation.ID, err)
		}
	})

	logger.Infof("Clear command executed by %s - Deleted %d messages.", ev.Author.Username, deleted-1)
	return nil, nil
}

// purgeChannel bulk-deletes up to limit recent messages from the channel and
// returns how many were removed.
func (d *Deps) purgeChannel(channelID string, limit int) (int, error) {
	messages, err := d.API.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}

	if err := d.API.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (d *Deps) rulesProps() *sarah.CommandProps {
	pattern := d.pattern("rules")

	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("rules").
		MatchPattern(pattern).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.rules(input, sarah.StripMessage(pattern, input.Message()))
		}).
		Instruction(fmt.Sprintf("Input %srules <text> in the rules channel to repost the server rules (requires Administrator).", d.Prefix)).
		MustBuild()
}

func (d *Deps) rules(input sarah.Input, rulesText string) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}
	if ev.GuildID == "" {
		return bot.NewResponse(input, msgGuildOnly)
	}

	allowed, err := d.hasChannelPermission(ev.Author.ID, ev.ChannelID, discordgo.PermissionAdministrator)
	if err != nil {
		logger.Errorf("Failed to resolve permissions for %s in %s: %+v", ev.Author.ID, ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}
	if !allowed {
		return bot.NewResponse(input, msgNoPermission)
	}

	if d.RulesChannelID == "" || ev.ChannelID != d.RulesChannelID {
		return bot.NewResponse(input, "❌ This command can only be used in the designated rules channel.")
	}

	if strings.TrimSpace(rulesText) == "" {
		return bot.NewResponse(input, fmt.Sprintf("❌ Please provide the rules to post.\nExample: `%srules No spamming.`", d.Prefix))
	}

	// Wipe the channel so the reposted rules stand alone.
	if _, err := d.purgeChannel(ev.ChannelID, clearMax); err != nil {
		if isForbidden(err) {
			return bot.NewResponse(input, msgBotMissingPerms)
		}
		logger.Errorf("Failed to purge rules channel %s: %+v", ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}

	embed := &discordgo.MessageEmbed{
		Title: "📜 • Server Rules • 📜",
		Color: colorGold,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Last updated by " + userDisplayName(ev.Author),
		},
	}
	if d.State != nil {
		if g, err := d.State.Guild(ev.GuildID); err == nil && g.Icon != "" {
			embed.Author = &discordgo.MessageEmbedAuthor{Name: g.Name, IconURL: g.IconURL("")}
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("")}
		}
	}

	if _, err := d.API.ChannelMessageSendEmbed(ev.ChannelID, embed); err != nil {
		logger.Errorf("Failed to post rules header to %s: %+v", ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}

	// Separate plain-text message so long rules stay readable.
	if _, err := d.API.ChannelMessageSend(ev.ChannelID, formatRules(rulesText)); err != nil {
		logger.Errorf("Failed to post rules text to %s: %+v", ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}

	logger.Infof("Server rules updated by %s.", ev.Author.Username)
	return nil, nil
}

// formatRules normalizes the raw rules text into paragraph-separated lines.
func formatRules(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}

package commands

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/guildtools/levelbot/internal/bot"
	"github.com/guildtools/levelbot/internal/ledger"
	"github.com/guildtools/levelbot/internal/leveling"
)

const (
	colorGold  = 0xF1C40F
	topEntries = 10
)

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)
var userIDPattern = regexp.MustCompile(`^\d+$`)

func (d *Deps) rankProps() *sarah.CommandProps {
	pattern := d.pattern("rank")

	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("rank").
		MatchPattern(pattern).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.rank(input, sarah.StripMessage(pattern, input.Message()))
		}).
		Instruction(fmt.Sprintf("Input %srank [user] to see a user's level and experience.", d.Prefix)).
		MustBuild()
}

func (d *Deps) rank(input sarah.Input, arg string) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}
	if ev.GuildID == "" {
		return bot.NewResponse(input, msgGuildOnly)
	}

	targetID, ok := parseUserArgument(arg, ev.Author.ID)
	if !ok {
		return bot.NewResponse(input, "❌ Please mention a user or give a user ID.\nExample: `"+d.Prefix+"rank @someone`")
	}

	target := d.member(ev.GuildID, targetID)
	targetName := targetID
	if target != nil {
		targetName = displayName(target)
	}

	data, err := d.Store.Load()
	if err != nil {
		logger.Errorf("Failed to load ledger for rank command: %+v", err)
		return bot.NewResponse(input, msgUnexpectedError)
	}

	if !data.Has(ev.GuildID, targetID) {
		return bot.NewResponse(input, fmt.Sprintf("%s has not earned any XP yet.", targetName))
	}

	rec := data.Get(ev.GuildID, targetID)
	needed := leveling.Threshold(rec.Level)

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🏆 Rank for %s", targetName),
		Color: colorGold,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Level", Value: fmt.Sprintf("`%d`", rec.Level), Inline: true},
			{Name: "XP", Value: fmt.Sprintf("`%d / %d`", rec.XP, needed), Inline: true},
			{Name: "Progress to Next Level", Value: "[" + leveling.ProgressBar(rec.XP, rec.Level) + "]"},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Requested by " + userDisplayName(ev.Author),
		},
	}
	if target != nil && target.User.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.User.AvatarURL("")}
	}

	return bot.NewResponse(input, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

// parseUserArgument resolves the optional command argument to a user ID.
// An empty argument defaults to the invoking user.
func parseUserArgument(arg, defaultID string) (string, bool) {
	if arg == "" {
		return defaultID, true
	}
	if m := mentionPattern.FindStringSubmatch(arg); m != nil {
		return m[1], true
	}
	if userIDPattern.MatchString(arg) {
		return arg, true
	}
	return "", false
}

func (d *Deps) leaderboardProps() *sarah.CommandProps {
	pattern := d.pattern("leaderboard", "lb")

	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("leaderboard").
		MatchPattern(pattern).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.leaderboard(input)
		}).
		Instruction(fmt.Sprintf("Input %sleaderboard to see the server's top 10 users.", d.Prefix)).
		MustBuild()
}

func (d *Deps) leaderboard(input sarah.Input) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}
	if ev.GuildID == "" {
		return bot.NewResponse(input, msgGuildOnly)
	}

	data, err := d.Store.Load()
	if err != nil {
		logger.Errorf("Failed to load ledger for leaderboard command: %+v", err)
		return bot.NewResponse(input, msgUnexpectedError)
	}

	entries := rankedEntries(data, ev.GuildID)
	if len(entries) == 0 {
		return bot.NewResponse(input, "There is no XP data for this server yet.")
	}
	if len(entries) > topEntries {
		entries = entries[:topEntries]
	}

	description := ""
	for i, e := range entries {
		name := fmt.Sprintf("Unknown User (ID: %s)", e.userID)
		if m := d.member(ev.GuildID, e.userID); m != nil {
			name = displayName(m)
		}
		description += fmt.Sprintf("%s **%s** - Level %d (%d XP)\n", positionMarker(i), name, e.rec.Level, e.rec.XP)
	}

	title := "🏆 Leaderboard"
	if d.State != nil {
		if g, err := d.State.Guild(ev.GuildID); err == nil {
			title = fmt.Sprintf("🏆 Leaderboard for %s", g.Name)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorGold,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Requested by " + userDisplayName(ev.Author),
		},
	}

	return bot.NewResponse(input, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

type rankedEntry struct {
	userID string
	rec    ledger.Record
}

// rankedEntries returns the guild's records sorted by level, then experience,
// both descending. User ID breaks remaining ties so the ordering is stable
// across invocations.
func rankedEntries(data ledger.Ledger, guildID string) []rankedEntry {
	users := data[guildID]

	entries := make([]rankedEntry, 0, len(users))
	for userID, rec := range users {
		entries = append(entries, rankedEntry{userID: userID, rec: rec})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.rec.Level != b.rec.Level {
			return a.rec.Level > b.rec.Level
		}
		if a.rec.XP != b.rec.XP {
			return a.rec.XP > b.rec.XP
		}
		return a.userID < b.userID
	})

	return entries
}

// positionMarker renders medals for the top three positions and plain
// numbering below that.
func positionMarker(index int) string {
	switch index {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("**#%d**", index+1)
	}
}

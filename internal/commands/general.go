package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/guildtools/levelbot/internal/bot"
)

const (
	colorGreenBright = 0x57F287
	colorBlurple     = 0x5865F2
)

func (d *Deps) pingProps() *sarah.CommandProps {
	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("ping").
		MatchPattern(d.pattern("ping")).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.ping(input)
		}).
		Instruction(fmt.Sprintf("Input %sping to measure the bot's latency.", d.Prefix)).
		MustBuild()
}

// ping measures the REST round-trip by timing a probe message, then edits the
// probe into an embed that also reports the gateway heartbeat latency.
func (d *Deps) ping(input sarah.Input) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	probe, err := d.API.ChannelMessageSend(ev.ChannelID, "🏓 Pinging...")
	if err != nil {
		logger.Errorf("Failed to send ping probe to %s: %+v", ev.ChannelID, err)
		return bot.NewResponse(input, msgUnexpectedError)
	}
	roundTrip := time.Since(start)

	embed := &discordgo.MessageEmbed{
		Title: "🏓 Pong!",
		Color: colorGreenBright,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Response Time", Value: fmt.Sprintf("%.2fms", float64(roundTrip.Microseconds())/1000), Inline: true},
			{Name: "WebSocket Latency", Value: fmt.Sprintf("%.2fms", float64(d.API.HeartbeatLatency().Microseconds())/1000), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Requested by " + userDisplayName(ev.Author),
		},
	}

	edit := discordgo.NewMessageEdit(ev.ChannelID, probe.ID).
		SetContent("").
		SetEmbeds([]*discordgo.MessageEmbed{embed})
	if _, err := d.API.ChannelMessageEditComplex(edit); err != nil {
		logger.Errorf("Failed to edit ping probe in %s: %+v", ev.ChannelID, err)
	}

	// The probe message carries the result; nothing further to respond with.
	return nil, nil
}

func (d *Deps) infoProps() *sarah.CommandProps {
	return sarah.NewCommandPropsBuilder().
		BotType(bot.DISCORD).
		Identifier("info").
		MatchPattern(d.pattern("info", "about")).
		Func(func(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return d.info(input)
		}).
		Instruction(fmt.Sprintf("Input %sinfo to display information about the bot.", d.Prefix)).
		MustBuild()
}

func (d *Deps) info(input sarah.Input) (*sarah.CommandResponse, error) {
	ev, err := event(input)
	if err != nil {
		return nil, err
	}

	guildCount := 0
	if d.State != nil {
		guildCount = len(d.State.Guilds)
	}

	embed := &discordgo.MessageEmbed{
		Title: "🤖 Bot Information",
		Color: colorBlurple,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "📊 Statistics",
				Value:  fmt.Sprintf("Servers: %d", guildCount),
				Inline: true,
			},
			{
				Name:   "🔧 Status",
				Value:  fmt.Sprintf("Latency: %.2fms\nPrefix: `%s`", float64(d.API.HeartbeatLatency().Microseconds())/1000, d.Prefix),
				Inline: true,
			},
			{
				Name:   "📋 Version",
				Value:  "discordgo: " + discordgo.VERSION,
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Requested by " + userDisplayName(ev.Author),
		},
	}
	if d.State != nil && d.State.User != nil && d.State.User.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: d.State.User.AvatarURL("")}
	}

	return bot.NewResponse(input, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/guildtools/levelbot/internal/config"
	"github.com/guildtools/levelbot/internal/ledger"
	"github.com/guildtools/levelbot/internal/leveling"
)

const (
	// DISCORD is a designated sarah.BotType for Discord integration.
	DISCORD sarah.BotType = "discord"
)

// DefaultIntents declares the Gateway Intents the bot requires: guild
// messages for commands and experience grants, members for join/leave
// embeds, and voice states for voice activity embeds.
const DefaultIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

// session is an internal interface that abstracts the discordgo.Session
// methods used by the Adapter. This allows mocking the session in tests.
// *discordgo.Session satisfies this interface.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, options ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error)
	UpdateListeningStatus(name string) error
}

// ChannelID represents a Discord channel as sarah.OutputDestination.
type ChannelID string

var _ sarah.OutputDestination = ChannelID("")

// AdapterOption defines a function signature for Adapter's functional options.
type AdapterOption func(adapter *Adapter)

// WithSession creates an AdapterOption with the given *discordgo.Session.
// Use this to inject a pre-configured session.
// If this option is not given, NewAdapter creates a new session from Config.Token.
func WithSession(session *discordgo.Session) AdapterOption {
	return func(adapter *Adapter) {
		adapter.session = session
	}
}

// Adapter is a sarah.Adapter implementation for Discord. Besides command
// dispatch it owns the guild event handlers and the experience-grant path.
type Adapter struct {
	config    *config.Config
	session   session
	store     *ledger.Store
	cooldowns *leveling.Cooldowns

	// grantXP produces the experience amount for one qualifying message.
	// Replaced in tests for determinism.
	grantXP func() int

	// readyOnce distinguishes the initial Ready event from reconnects.
	readyOnce bool
}

var _ sarah.Adapter = (*Adapter)(nil)

// NewAdapter creates a new Adapter with the given configuration, ledger
// store and options.
func NewAdapter(cfg *config.Config, store *ledger.Store, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config:    cfg,
		store:     store,
		cooldowns: leveling.NewCooldowns(leveling.GrantCooldown),
		grantXP:   leveling.RandomGrant,
	}

	for _, opt := range options {
		opt(adapter)
	}

	if adapter.session == nil {
		if cfg.Token == "" {
			return nil, ErrEmptyToken
		}

		s, err := discordgo.New("Bot " + cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord session: %w", err)
		}
		s.Identify.Intents = DefaultIntents
		adapter.session = s
	}

	return adapter, nil
}

// BotType returns a designated BotType for Discord integration.
func (a *Adapter) BotType() sarah.BotType {
	return DISCORD
}

// Run establishes a connection with Discord and blocks until the context is
// canceled. All gateway event handlers are registered before the session is
// opened.
func (a *Adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(s, m, enqueueInput)
	})
	a.session.AddHandler(a.handleReady)
	a.session.AddHandler(a.handleResumed)
	a.session.AddHandler(a.handleMemberAdd)
	a.session.AddHandler(a.handleMemberRemove)
	a.session.AddHandler(a.handleMessageDelete)
	a.session.AddHandler(a.handleMessageUpdate)
	a.session.AddHandler(a.handleVoiceStateUpdate)

	err := a.session.Open()
	if err != nil {
		notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to open Discord session: %s", err.Error())))
		return
	}

	// Block until the context is canceled.
	<-ctx.Done()

	if closeErr := a.session.Close(); closeErr != nil {
		logger.Errorf("Failed to close Discord session: %+v", closeErr)
	}
}

// handleMessage processes an incoming Discord message: it drives the
// experience-grant path and routes the message to enqueueInput for command
// dispatch.
func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate, enqueueInput func(sarah.Input) error) {
	input, err := MessageToInput(m)
	if err != nil {
		// MessageToInput returns ErrNoAuthor for system messages with no author.
		logger.Debugf("Skipping message: %+v", err)
		return
	}

	// Ignore messages from the bot itself.
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	a.grantExperience(m)

	if s.State != nil && s.State.User != nil && mentionsUser(m, s.State.User.ID) {
		logger.Infof("Bot mentioned by %s in channel %s: %.100s", m.Author.Username, m.ChannelID, m.Content)
	}

	var enqueueErr error
	trimmed := strings.TrimSpace(input.Message())
	if trimmed == a.config.CommandPrefix+"help" {
		enqueueErr = enqueueInput(sarah.NewHelpInput(input))
	} else {
		enqueueErr = enqueueInput(input)
	}
	if enqueueErr != nil {
		logger.Errorf("Failed to enqueue input: %+v", enqueueErr)
	}
}

// grantExperience awards experience for one qualifying message and announces
// a level-up to the originating channel. Bot authors, messages outside a
// guild and command invocations never earn experience. The whole
// read-modify-write runs inside a single Store.Update so concurrent grants
// for the same user cannot clobber each other.
func (a *Adapter) grantExperience(m *discordgo.MessageCreate) {
	if m.Author.Bot || m.GuildID == "" || strings.HasPrefix(m.Content, a.config.CommandPrefix) {
		return
	}

	if !a.cooldowns.Eligible(m.GuildID, m.Author.ID) {
		return
	}
	a.cooldowns.Mark(m.GuildID, m.Author.ID)

	amount := a.grantXP()

	var leveledUp bool
	var newLevel int
	_, err := a.store.Update(func(l ledger.Ledger) {
		rec := l.Get(m.GuildID, m.Author.ID)
		leveledUp = leveling.ApplyGrant(&rec, amount)
		newLevel = rec.Level
		l.Set(m.GuildID, m.Author.ID, rec)
	})
	if err != nil {
		logger.Errorf("Failed to grant experience to %s in guild %s: %+v", m.Author.ID, m.GuildID, err)
		return
	}

	if leveledUp {
		text := fmt.Sprintf("🎉 Congratulations %s, you reached **level %d**!", m.Author.Mention(), newLevel)
		if _, err := a.session.ChannelMessageSend(m.ChannelID, text); err != nil {
			logger.Errorf("Failed to announce level-up in %s: %+v", m.ChannelID, err)
		}
	}
}

// mentionsUser reports whether the message mentions the given user.
func mentionsUser(m *discordgo.MessageCreate, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// SendMessage sends the given message to Discord.
func (a *Adapter) SendMessage(_ context.Context, output sarah.Output) {
	destination, ok := output.Destination().(ChannelID)
	if !ok {
		logger.Errorf("Destination is not instance of ChannelID. %#v.", output.Destination())
		return
	}

	channelID := string(destination)

	switch content := output.Content().(type) {
	case string:
		_, err := a.session.ChannelMessageSend(channelID, content)
		if err != nil {
			logger.Errorf("Failed to send message to %s: %+v", channelID, err)
		}

	case *discordgo.MessageSend:
		_, err := a.session.ChannelMessageSendComplex(channelID, content)
		if err != nil {
			logger.Errorf("Failed to send complex message to %s: %+v", channelID, err)
		}

	case *sarah.CommandHelps:
		lines := make([]string, 0, len(*content))
		for _, h := range *content {
			lines = append(lines, fmt.Sprintf("**%s**: %s", h.Identifier, h.Instruction))
		}
		text := strings.Join(lines, "\n")
		_, err := a.session.ChannelMessageSend(channelID, text)
		if err != nil {
			logger.Errorf("Failed to send help message to %s: %+v", channelID, err)
		}

	default:
		logger.Warnf("Unexpected output %#v", output)
	}
}

// Input is a sarah.Input implementation that represents a received Discord message.
type Input struct {
	Event     *discordgo.MessageCreate
	senderKey string
	text      string
	sentAt    time.Time
	channelID ChannelID
}

var _ sarah.Input = (*Input)(nil)

// SenderKey returns a unique key representing the sender in the channel.
func (i *Input) SenderKey() string {
	return i.senderKey
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.text
}

// SentAt returns when the message was sent.
func (i *Input) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the Discord channel where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}

// MessageToInput converts a *discordgo.MessageCreate event to *Input.
func MessageToInput(m *discordgo.MessageCreate) (*Input, error) {
	if m.Author == nil {
		return nil, ErrNoAuthor
	}

	return &Input{
		Event:     m,
		senderKey: fmt.Sprintf("%s_%s", m.ChannelID, m.Author.ID),
		text:      m.Content,
		sentAt:    m.Timestamp,
		channelID: ChannelID(m.ChannelID),
	}, nil
}

// NewResponse creates a *sarah.CommandResponse with the given content, which
// may be a plain string or a *discordgo.MessageSend for embed responses.
func NewResponse(input sarah.Input, content interface{}) (*sarah.CommandResponse, error) {
	if _, ok := input.(*Input); !ok {
		return nil, fmt.Errorf("%T is not a *bot.Input", input)
	}

	return &sarah.CommandResponse{
		Content: content,
	}, nil
}

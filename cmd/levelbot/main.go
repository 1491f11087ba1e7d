// Command levelbot runs a Discord guild bot that awards experience points
// for chat activity, persists them in a JSON ledger, and serves a small set
// of utility and moderation commands.
//
// Usage:
//
//	export DISCORD_BOT_TOKEN="your-bot-token"
//	go run ./cmd/levelbot
//
// Then, in a channel where the bot is present, type:
//
//	!rank
//	!leaderboard
//	!ping
//	!help
package main

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	flag "github.com/spf13/pflag"

	"github.com/guildtools/levelbot/internal/bot"
	"github.com/guildtools/levelbot/internal/commands"
	"github.com/guildtools/levelbot/internal/config"
	"github.com/guildtools/levelbot/internal/ledger"
)

// messageCacheSize controls how many recent messages the session state keeps
// so that deletion and edit logs can show the original content.
const messageCacheSize = 200

func main() {
	ledgerPath := flag.String("ledger", "", "ledger file path, overrides LEDGER_PATH")
	logLevel := flag.String("log-level", "", "log level, overrides LOG_LEVEL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	if *ledgerPath != "" {
		cfg.LedgerPath = *ledgerPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	setupLogger(cfg)

	store := ledger.NewStore(cfg.LedgerPath)

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create Discord session: %s\n", err)
		os.Exit(1)
	}
	session.Identify.Intents = bot.DefaultIntents
	session.State.MaxMessageCount = messageCacheSize

	adapter, err := bot.NewAdapter(cfg, store, bot.WithSession(session))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create adapter: %s\n", err)
		os.Exit(1)
	}

	// In-memory user context storage for conversational state management.
	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	sarah.RegisterBot(sarah.NewBot(adapter, sarah.BotWithStorage(storage)))

	commands.Register(&commands.Deps{
		Prefix:         cfg.CommandPrefix,
		API:            session,
		State:          session.State,
		Store:          store,
		RulesChannelID: cfg.RulesChannelID,
	})

	// Shut down cleanly on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = sarah.Run(ctx, sarah.NewConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run: %s\n", err)
		os.Exit(1)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")

	<-ctx.Done()

	logger.Infof("Shutting down...")
}

// setupLogger applies the configured log level and optional log file.
func setupLogger(cfg *config.Config) {
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		logger.SetOutputLevel(logger.DebugLevel)
	case "WARN", "WARNING":
		logger.SetOutputLevel(logger.WarnLevel)
	case "ERROR":
		logger.SetOutputLevel(logger.ErrorLevel)
	default:
		logger.SetOutputLevel(logger.InfoLevel)
	}

	if cfg.LogFile == "" {
		return
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warnf("Could not open log file %s: %+v", cfg.LogFile, err)
		return
	}

	w := io.MultiWriter(os.Stdout, f)
	logger.SetLogger(logger.NewWithStandardLogger(stdlog.New(w, "", stdlog.LstdFlags|stdlog.LUTC)))
}

// Package config loads the bot's runtime configuration from environment
// variables.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ErrMissingToken indicates that no bot token was provided. Startup cannot
// proceed without one.
var ErrMissingToken = errors.New("DISCORD_BOT_TOKEN must be set")

// Config contains every environment-sourced setting the bot reads.
// Channel IDs are optional; an empty ID disables the corresponding feature.
type Config struct {
	// Token is the Discord bot token used for authentication.
	Token string `env:"DISCORD_BOT_TOKEN"`

	// CommandPrefix triggers command dispatch. Messages starting with the
	// prefix never earn experience.
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`

	// LedgerPath is the location of the JSON experience ledger.
	LedgerPath string `env:"LEDGER_PATH" envDefault:"levels.json"`

	// LogChannelID receives message-deletion/edit and voice activity embeds.
	LogChannelID string `env:"LOG_CHANNEL_ID"`

	// WelcomeChannelID receives a greeting embed when a member joins.
	WelcomeChannelID string `env:"WELCOME_CHANNEL_ID"`

	// GoodbyeChannelID receives an embed when a member leaves.
	GoodbyeChannelID string `env:"GOODBYE_CHANNEL_ID"`

	// RulesChannelID is the only channel where the rules command may run.
	RulesChannelID string `env:"RULES_CHANNEL_ID"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	// LogFile, when set, duplicates log output into the given file.
	LogFile string `env:"LOG_FILE"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	return &cfg, nil
}

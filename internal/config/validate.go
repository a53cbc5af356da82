package config

import (
	"errors"
	"fmt"
)

// Validate checks settings every command relies on.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Server.QueueSize <= 0 {
		return errors.New("server.queue_size must be positive")
	}
	a := c.Analysis
	if a.BatchSize <= 0 || a.MaxReleases <= 0 || a.MaxHigh <= 0 || a.MaxMedium <= 0 || a.DisplayMedium <= 0 {
		return errors.New("analysis limits must be positive")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	return nil
}

// ValidateServe checks the settings the webhook server needs on top of
// Validate.
func (c Config) ValidateServe() error {
	if c.Slack.BotToken == "" {
		return errors.New("slack.bot_token is required (SLACK_BOT_TOKEN)")
	}
	if c.Slack.SigningSecret == "" {
		return errors.New("slack.signing_secret is required (SLACK_SIGNING_SECRET)")
	}
	return nil
}

// ServerAddr returns host:port for the HTTP listener.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	out.Slack.BotToken = mask(c.Slack.BotToken)
	out.Slack.SigningSecret = mask(c.Slack.SigningSecret)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

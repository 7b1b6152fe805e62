// Package config loads environment variables into the typed Config used across the bot.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Transport credentials are optional at load time; use ValidateTransports before serving.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the chat upload ceiling for non-boosted accounts (25 MiB).
const DefaultMaxUploadBytes int64 = 25 * 1024 * 1024

type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	// HTTP (health/metrics)
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	EnablePprof bool   `env:"ENABLE_PPROF"`
	PprofAddr   string `env:"PPROF_ADDR" envDefault:"localhost:6060"`

	// Slack (socket mode)
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SlackAppToken string `env:"SLACK_APP_TOKEN"`
	SlackAPIBase  string `env:"SLACK_API_BASE"`

	// Twitch chat
	TwitchChannels      []string `env:"TWITCH_CHANNELS" envSeparator:","`
	TwitchBotUsername   string   `env:"TWITCH_BOT_USERNAME"`
	TwitchOAuthToken    string   `env:"TWITCH_OAUTH_TOKEN"`
	TwitchCommandPrefix string   `env:"TWITCH_COMMAND_PREFIX" envDefault:"!"`

	// Downloads
	DownloadDir            string        `env:"DOWNLOAD_DIR" envDefault:"downloads"`
	YTDLPPath              string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	MaxUploadBytes         int64         `env:"MAX_UPLOAD_BYTES"`
	DownloadMaxAttempts    int           `env:"DOWNLOAD_MAX_ATTEMPTS" envDefault:"3"`
	DownloadBackoffBase    time.Duration `env:"DOWNLOAD_BACKOFF_BASE" envDefault:"2s"`
	DownloadTimeout        time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"5m"`
	MaxConcurrentDownloads int           `env:"MAX_CONCURRENT_DOWNLOADS" envDefault:"2"`

	// Teams
	MaxTeams int `env:"MAX_TEAMS" envDefault:"20"`

	// Per-user command rate limit
	RateLimitEnabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitCommands int           `env:"RATE_LIMIT_COMMANDS" envDefault:"10"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// YouTube fallback for videos over the upload ceiling
	YTClientID     string `env:"YT_CLIENT_ID"`
	YTClientSecret string `env:"YT_CLIENT_SECRET"`
	YTRefreshToken string `env:"YT_REFRESH_TOKEN"`
	YTRedirectURI  string `env:"YT_REDIRECT_URI" envDefault:"http://localhost:8080/auth/youtube/callback"`
	YTScopes       string `env:"YT_SCOPES" envDefault:"https://www.googleapis.com/auth/youtube.upload"`
	YTPrivacy      string `env:"YT_PRIVACY" envDefault:"unlisted"`

	// Tracing
	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file, then the process environment, and applies defaults.
// Variables already set in the environment win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// local dev convenience only; a missing file is fine
		_ = godotenv.Load(f)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.TwitchChannels = cleanChannels(cfg.TwitchChannels)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges. It does not require any credentials.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxTeams <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TEAMS must be positive, got %d", c.MaxTeams))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.DownloadMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("DOWNLOAD_MAX_ATTEMPTS must be positive, got %d", c.DownloadMaxAttempts))
	}
	if c.MaxConcurrentDownloads <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be positive, got %d", c.MaxConcurrentDownloads))
	}
	if c.RateLimitEnabled && (c.RateLimitCommands <= 0 || c.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_COMMANDS and RATE_LIMIT_WINDOW must be positive when rate limiting is enabled"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// SlackEnabled reports whether both Slack tokens are present.
func (c *Config) SlackEnabled() bool { return c.SlackBotToken != "" && c.SlackAppToken != "" }

// TwitchEnabled reports whether Twitch chat credentials and at least one channel are present.
func (c *Config) TwitchEnabled() bool {
	return len(c.TwitchChannels) > 0 && c.TwitchBotUsername != "" && c.TwitchOAuthToken != ""
}

// YouTubeEnabled reports whether the oversize fallback uploader can be built.
func (c *Config) YouTubeEnabled() bool {
	return c.YTClientID != "" && c.YTClientSecret != "" && c.YTRefreshToken != ""
}

// ValidateTransports checks that at least one chat transport is configured.
func (c *Config) ValidateTransports() error {
	if c.SlackEnabled() || c.TwitchEnabled() {
		return nil
	}
	return errors.New("no chat transport configured: set SLACK_BOT_TOKEN and SLACK_APP_TOKEN, or TWITCH_CHANNELS, TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN")
}

func cleanChannels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ch := range in {
		ch = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
		if ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

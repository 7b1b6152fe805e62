package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "downloads", cfg.DownloadDir)
	assert.Equal(t, DefaultMaxUploadBytes, cfg.MaxUploadBytes)
	assert.Equal(t, 20, cfg.MaxTeams)
	assert.Equal(t, 2*time.Second, cfg.DownloadBackoffBase)
	assert.Equal(t, "unlisted", cfg.YTPrivacy)
	assert.Equal(t, "!", cfg.TwitchCommandPrefix)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 10, cfg.RateLimitCommands)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_TEAMS", "8")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("DOWNLOAD_TIMEOUT", "90s")
	t.Setenv("TWITCH_CHANNELS", " #Foo, bar ,,")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxTeams)
	assert.Equal(t, int64(1<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, []string{"foo", "bar"}, cfg.TwitchChannels)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("YTDLP_PATH=/opt/yt-dlp\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("YTDLP_PATH") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/yt-dlp", cfg.YTDLPPath)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"non-numeric teams", "MAX_TEAMS", "lots"},
		{"zero teams", "MAX_TEAMS", "0"},
		{"bad format", "LOG_FORMAT", "xml"},
		{"bad duration", "DOWNLOAD_TIMEOUT", "soon"},
		{"zero concurrency", "MAX_CONCURRENT_DOWNLOADS", "0"},
		{"zero rate limit", "RATE_LIMIT_COMMANDS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(noEnvFile(t))
			assert.Error(t, err)
		})
	}
}

func TestValidateTransports(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateTransports())

	cfg.SlackBotToken = "xoxb-1"
	assert.Error(t, cfg.ValidateTransports(), "bot token alone is not enough for socket mode")
	cfg.SlackAppToken = "xapp-1"
	assert.NoError(t, cfg.ValidateTransports())

	cfg = &Config{TwitchChannels: []string{"chan"}, TwitchBotUsername: "bot", TwitchOAuthToken: "oauth:token"}
	assert.True(t, cfg.TwitchEnabled())
	assert.NoError(t, cfg.ValidateTransports())
}

func TestYouTubeEnabled(t *testing.T) {
	cfg := &Config{YTClientID: "id", YTClientSecret: "secret"}
	assert.False(t, cfg.YouTubeEnabled())
	cfg.YTRefreshToken = "refresh"
	assert.True(t, cfg.YouTubeEnabled())
}

func TestRateLimitDisabledSkipsValidation(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_COMMANDS", "0")
	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)
	assert.False(t, cfg.RateLimitEnabled)
}

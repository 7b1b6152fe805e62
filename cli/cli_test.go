package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/teambot/config"
	"github.com/onnwee/teambot/media"
	"github.com/onnwee/teambot/teams"
	"github.com/onnwee/teambot/twitchapi"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts := &Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
	cmd := newRootCommand(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	if opts.closeLog != nil {
		_ = opts.closeLog()
	}
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestTeamsCommandSeeded(t *testing.T) {
	first, err := run(t, "teams", "--teams", "2", "--seed", "42", "Alice, Bob", "Charlie, Diana")
	require.NoError(t, err)
	second, err := run(t, "teams", "--teams", "2", "--seed", "42", "Alice, Bob", "Charlie, Diana")
	require.NoError(t, err)

	assert.Equal(t, first, second, "same seed must give the same draw")
	assert.Contains(t, first, "🎲 Random Teams Generated!")
	assert.Contains(t, first, "📊 Summary: Total People: 4, Number of Teams: 2, Team Size Range: 2-2 people")
	assert.Contains(t, first, "👥 Team 1 (2 members): ")
	assert.Contains(t, first, "👥 Team 2 (2 members): ")
	assert.NotContains(t, first, "Requested by")
}

func TestTeamsCommandReportsDuplicatesAndUneven(t *testing.T) {
	out, err := run(t, "teams", "-n", "2", "a,b,c,a")
	require.NoError(t, err)
	assert.Contains(t, out, "Total People: 3")
	assert.Contains(t, out, "💡 Note")
	assert.Contains(t, out, "1 duplicate name(s) were removed.")
}

func TestTeamsCommandErrors(t *testing.T) {
	_, err := run(t, "teams", "--teams", "3", "a,b")
	assert.ErrorIs(t, err, teams.ErrInsufficientPeople)

	_, err = run(t, "teams", "--teams", "0", "a,b")
	assert.ErrorIs(t, err, teams.ErrInvalidTeamCount)

	_, err = run(t, "teams", "--teams", "21", "a,b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum 20 teams")

	_, err = run(t, "teams", " , ")
	assert.ErrorIs(t, err, teams.ErrEmptyInput)

	_, err = run(t, "teams")
	assert.Error(t, err, "names are required")
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	_, err := run(t, "fetch", "ftp://example.com/video.mp4")
	assert.ErrorIs(t, err, media.ErrInvalidURL)
}

func TestYouTubeTokenRequiresClient(t *testing.T) {
	t.Setenv("YT_CLIENT_ID", "")
	t.Setenv("YT_CLIENT_SECRET", "")
	_, err := run(t, "youtube-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YT_CLIENT_ID")
}

func TestServeRequiresTransport(t *testing.T) {
	err := runServe(context.Background(), &config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "no chat transport configured"))
}

func TestStartupAttrs(t *testing.T) {
	cfg := &config.Config{MaxTeams: 20, MaxConcurrentDownloads: 3, SlackBotToken: "xoxb-1", SlackAppToken: "xapp-1"}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("teambot started", startupAttrs(cfg, newDownloader(cfg, logger))...)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, Version, rec["version"])
	assert.Equal(t, true, rec["slack"])
	assert.Equal(t, false, rec["twitch"])
	assert.EqualValues(t, 20, rec["max_teams"])
	assert.EqualValues(t, 3, rec["download_slots"])
	assert.Equal(t, false, rec["tracing"])
}

func TestConnectedCheck(t *testing.T) {
	up := false
	check := connectedCheck("twitch", func() bool { return up })
	assert.Equal(t, "twitch", check.Name)
	assert.EqualError(t, check.Fn(context.Background()), "twitch not connected")
	up = true
	assert.NoError(t, check.Fn(context.Background()))
}

func TestContextFallbacks(t *testing.T) {
	assert.NotNil(t, LoggerFromContext(context.Background()))
	assert.NotNil(t, ConfigFromContext(context.Background()))
}

func TestCheckTwitchToken(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"login": "teambot", "scopes": []string{"chat:read", "chat:edit"}, "expires_in": 60})
	}))
	defer srv.Close()

	v := &twitchapi.Validator{BaseURL: srv.URL}
	cfg := &config.Config{TwitchOAuthToken: "oauth:abc", TwitchBotUsername: "TeamBot"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.NoError(t, checkTwitchToken(context.Background(), v, cfg, logger))

	status = http.StatusUnauthorized
	assert.ErrorIs(t, checkTwitchToken(context.Background(), v, cfg, logger), twitchapi.ErrInvalidToken)

	status = http.StatusInternalServerError
	assert.NoError(t, checkTwitchToken(context.Background(), v, cfg, logger), "lookup failures only warn")
}

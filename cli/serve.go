package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/teambot/bot"
	"github.com/onnwee/teambot/chat"
	"github.com/onnwee/teambot/config"
	"github.com/onnwee/teambot/media"
	"github.com/onnwee/teambot/server"
	"github.com/onnwee/teambot/slackbot"
	"github.com/onnwee/teambot/telemetry"
	"github.com/onnwee/teambot/twitchapi"
	"github.com/onnwee/teambot/youtubeapi"
)

// newServeCommand creates the "serve" subcommand that connects to chat and handles commands.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the configured chat transports and handle commands",
		Long: `Connects to Slack (SLACK_BOT_TOKEN + SLACK_APP_TOKEN) and/or Twitch chat
(TWITCH_CHANNELS, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN) and serves
/healthz, /readyz and /metrics on HTTP_ADDR. Shutdown is graceful on SIGINT/SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, ConfigFromContext(cmd.Context()), LoggerFromContext(cmd.Context()))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.ValidateTransports(); err != nil {
		return err
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(cfg.OTELEndpoint, "teambot", Version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing()

	dl := newDownloader(cfg, logger)
	if err := dl.Available(); err != nil {
		logger.Warn("yt-dlp not available; embed commands will fail until it is installed", slog.Any("err", err))
	}

	var fallback bot.Uploader
	yt, err := youtubeapi.New(cfg)
	switch {
	case err == nil:
		fallback = yt
		logger.Info("youtube fallback enabled for oversize videos", slog.String("privacy", cfg.YTPrivacy))
	case errors.Is(err, youtubeapi.ErrNotConfigured):
		logger.Info("youtube fallback disabled (missing YT_CLIENT_ID, YT_CLIENT_SECRET or YT_REFRESH_TOKEN)")
	default:
		return err
	}

	var limiter *bot.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = bot.NewRateLimiter(cfg.RateLimitCommands, cfg.RateLimitWindow)
	}

	b := bot.New(bot.Options{
		Downloader:     dl,
		Fallback:       fallback,
		MaxTeams:       cfg.MaxTeams,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      limiter,
		Logger:         logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	checks := []server.Check{{Name: "yt-dlp", Fn: func(context.Context) error { return dl.Available() }}}

	if cfg.SlackEnabled() {
		sc, err := slackbot.New(cfg, b, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sc.Run(gctx) })
		checks = append(checks, connectedCheck("slack", sc.Connected))
	}
	if cfg.TwitchEnabled() {
		if err := checkTwitchToken(ctx, &twitchapi.Validator{}, cfg, logger); err != nil {
			return err
		}
		tc, err := chat.New(cfg, b, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return tc.Run(gctx) })
		checks = append(checks, connectedCheck("twitch", tc.Connected))
	}
	if limiter != nil {
		g.Go(func() error { return limiter.Run(gctx) })
	}

	g.Go(func() error {
		return server.Start(gctx, cfg.HTTPAddr, server.NewMux(server.Options{Checks: checks, Logger: logger}), logger)
	})
	if cfg.EnablePprof {
		g.Go(func() error {
			logger.Info("pprof profiling enabled", slog.String("addr", cfg.PprofAddr))
			return server.Start(gctx, cfg.PprofAddr, http.DefaultServeMux, logger)
		})
	}

	logger.Info("teambot started", startupAttrs(cfg, dl)...)
	err = g.Wait()
	logger.Info("shutdown complete")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startupAttrs(cfg *config.Config, dl *media.Downloader) []any {
	return []any{
		slog.String("version", Version),
		slog.Bool("slack", cfg.SlackEnabled()),
		slog.Bool("twitch", cfg.TwitchEnabled()),
		slog.Int("max_teams", cfg.MaxTeams),
		slog.Int("download_slots", dl.Capacity()),
		slog.Bool("tracing", telemetry.TracingEnabled()),
	}
}

func newDownloader(cfg *config.Config, logger *slog.Logger) *media.Downloader {
	return media.NewDownloader(media.Options{
		Dir:           cfg.DownloadDir,
		Binary:        cfg.YTDLPPath,
		MaxAttempts:   cfg.DownloadMaxAttempts,
		BackoffBase:   cfg.DownloadBackoffBase,
		Timeout:       cfg.DownloadTimeout,
		MaxConcurrent: cfg.MaxConcurrentDownloads,
		Logger:        logger,
	})
}

// connectedCheck turns a transport's connection flag into a readiness check.
func connectedCheck(name string, connected func() bool) server.Check {
	return server.Check{Name: name, Fn: func(context.Context) error {
		if !connected() {
			return fmt.Errorf("%s not connected", name)
		}
		return nil
	}}
}

// checkTwitchToken fails on a rejected chat token and warns about a wrong
// login or missing chat scopes. Lookup errors are not fatal.
func checkTwitchToken(ctx context.Context, v *twitchapi.Validator, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	info, err := v.Validate(ctx, cfg.TwitchOAuthToken)
	switch {
	case errors.Is(err, twitchapi.ErrInvalidToken):
		return fmt.Errorf("TWITCH_OAUTH_TOKEN: %w", err)
	case err != nil:
		logger.Warn("twitch token validation skipped", slog.Any("err", err))
		return nil
	}
	if !strings.EqualFold(info.Login, cfg.TwitchBotUsername) {
		logger.Warn("twitch token belongs to a different account", slog.String("login", info.Login), slog.String("expected", cfg.TwitchBotUsername))
	}
	if missing := info.MissingScopes(twitchapi.ChatScopes...); len(missing) > 0 {
		logger.Warn("twitch token is missing chat scopes", slog.Any("missing", missing))
	}
	if exp := info.ExpiresAt(time.Now()); !exp.IsZero() {
		logger.Info("twitch token valid", slog.String("login", info.Login), slog.Time("expires_at", exp))
	}
	return nil
}

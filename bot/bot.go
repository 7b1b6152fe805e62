// Package bot is the platform-neutral command layer. Transports turn their
// native events into a Request and provide a Responder; the Bot looks up the
// command, runs it with a correlation id, span and metrics, and reports
// failures back to the user.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/teambot/media"
	"github.com/onnwee/teambot/telemetry"
)

// ErrUnknownCommand is returned by Dispatch when no command matches.
var ErrUnknownCommand = errors.New("unknown command")

const defaultFailureText = "❌ An error occurred while processing your command."

// Request is one command invocation from a chat transport.
type Request struct {
	Command   string
	Args      string // raw text after the command name
	UserID    string
	UserName  string
	ChannelID string
	Transport string // "slack", "twitch", "cli"
	Prefix    string // how users invoke commands on this transport, e.g. "/" or "!"
}

// Handler runs a command. User-facing validation problems are replied to
// directly and return nil; a returned error triggers the generic failure reply.
type Handler func(ctx context.Context, req Request, r Responder) error

type Command struct {
	Name        string
	Description string
	Usage       string
	// FailureText replaces the generic reply sent when Handler returns an error.
	FailureText string
	Handler     Handler
}

// Downloader fetches a remote video to local disk.
type Downloader interface {
	Download(ctx context.Context, rawURL string) (*media.Video, error)
}

// Uploader publishes a local video elsewhere and returns a link to it.
type Uploader interface {
	Upload(ctx context.Context, path, title, description string) (string, error)
}

type Options struct {
	Downloader     Downloader
	Fallback       Uploader // optional, used for videos over MaxUploadBytes
	MaxTeams       int
	MaxUploadBytes int64
	RateLimit      *RateLimiter // optional, keyed by transport and user id
	Logger         *slog.Logger
}

type Bot struct {
	opts     Options
	commands map[string]Command
	logger   *slog.Logger
}

// New returns a Bot with the built-in commands registered.
func New(opts Options) *Bot {
	if opts.MaxTeams <= 0 {
		opts.MaxTeams = 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 * 1024 * 1024
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	b := &Bot{
		opts:     opts,
		commands: make(map[string]Command),
		logger:   opts.Logger.With(slog.String("component", "bot")),
	}
	b.Register(Command{
		Name:        "teams",
		Description: "Generate random teams from a list of people",
		Usage:       "teams <num_teams> <num_people> <comma,separated,names>",
		FailureText: "❌ An unexpected error occurred while generating teams.",
		Handler:     b.handleTeams,
	})
	b.Register(Command{
		Name:        "teamhelp",
		Description: "Show help for team generation commands",
		Usage:       "teamhelp",
		Handler:     b.handleTeamHelp,
	})
	b.Register(Command{
		Name:        "embed",
		Description: "Embed a video from a URL (YouTube, TikTok, Instagram)",
		Usage:       "embed <url>",
		FailureText: "❌ Failed to process the video.",
		Handler:     b.handleEmbed,
	})
	b.Register(Command{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Usage:       "ping",
		Handler: func(ctx context.Context, _ Request, r Responder) error {
			return r.Reply(ctx, Text("Pong!"))
		},
	})
	return b
}

// Register adds or replaces a command. Names are case-insensitive.
func (b *Bot) Register(cmd Command) {
	cmd.Name = strings.ToLower(cmd.Name)
	b.commands[cmd.Name] = cmd
}

// Lookup returns the command registered under name.
func (b *Bot) Lookup(name string) (Command, bool) {
	cmd, ok := b.commands[strings.ToLower(strings.TrimSpace(name))]
	return cmd, ok
}

// Commands returns the registered commands sorted by name.
func (b *Bot) Commands() []Command {
	out := make([]Command, 0, len(b.commands))
	for _, c := range b.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the command named in req. Handler errors and panics are
// logged, recorded on the span and metrics, and answered with the command's
// failure text; the error is still returned to the transport.
func (b *Bot) Dispatch(ctx context.Context, req Request, r Responder) (err error) {
	cmd, ok := b.Lookup(req.Command)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}

	if rl := b.opts.RateLimit; rl != nil {
		if ok, notify := rl.Check(req.Transport + ":" + req.UserID); !ok {
			b.logger.Warn("rate limit exceeded",
				slog.String("command", cmd.Name),
				slog.String("transport", req.Transport),
				slog.String("user", req.UserName),
			)
			telemetry.ObserveCommand(cmd.Name, req.Transport, "rate_limited", 0)
			// Ephemeral is ignored on some transports; one reply per window
			// keeps a spamming user from flooding the channel.
			if !notify {
				return nil
			}
			return r.Reply(ctx, Message{
				Text:      fmt.Sprintf("⏳ Slow down! You can run %s.", rl.Describe()),
				Ephemeral: true,
			})
		}
	}

	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "teambot/bot", "command."+cmd.Name, telemetry.CommandAttrs(cmd.Name, req.Transport, req.ChannelID)...)
	defer span.End()

	logger := telemetry.LoggerWithCorr(ctx, b.logger).With(
		slog.String("command", cmd.Name),
		slog.String("transport", req.Transport),
		slog.String("user", req.UserName),
		slog.String("channel", req.ChannelID),
	)
	logger.Info("command received", slog.String("args", req.Args))

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.Name, rec)
			logger.Error("command panic", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
		}
		telemetry.SetSpanStatus(span, err)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			logger.Error("command failed", slog.Any("err", err), slog.Duration("duration", time.Since(start)))
			text := cmd.FailureText
			if text == "" {
				text = defaultFailureText
			}
			if rerr := r.Reply(ctx, Failure(text)); rerr != nil {
				logger.Warn("failure reply not delivered", slog.Any("err", rerr))
			}
		} else {
			logger.Debug("command complete", slog.Duration("duration", time.Since(start)))
		}
		telemetry.ObserveCommand(cmd.Name, req.Transport, outcome, time.Since(start))
	}()

	return cmd.Handler(ctx, req, r)
}

// loggerFor returns the bot logger annotated with the request's correlation id.
func (b *Bot) loggerFor(ctx context.Context, req Request) *slog.Logger {
	return telemetry.LoggerWithCorr(ctx, b.logger).With(slog.String("user", req.UserName))
}

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/teambot/bot"
	"github.com/onnwee/teambot/config"
)

const (
	transport = "twitch"
	// maxLineLength is Twitch's per-message limit.
	maxLineLength = 500
	lineSeparator = " | "
)

// Dispatcher runs a command on behalf of a transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, req bot.Request, r bot.Responder) error
}

// ircClient is the subset of *twitch.Client the bot uses.
type ircClient interface {
	OnPrivateMessage(func(twitch.PrivateMessage))
	OnConnect(func())
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

type Client struct {
	irc        ircClient
	username   string
	prefix     string
	channels   []string
	dispatcher Dispatcher
	logger     *slog.Logger
	connected  atomic.Bool
	wg         sync.WaitGroup

	retryMin, retryMax time.Duration
	after              func(time.Duration) <-chan time.Time
}

// New builds an IRC client for the configured channels.
func New(cfg *config.Config, d Dispatcher, logger *slog.Logger) (*Client, error) {
	if !cfg.TwitchEnabled() {
		return nil, errors.New("twitch chat not configured: need TWITCH_CHANNELS, TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN")
	}
	token := cfg.TwitchOAuthToken
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	irc := twitch.NewClient(strings.ToLower(cfg.TwitchBotUsername), token)
	return newClient(irc, cfg.TwitchBotUsername, cfg.TwitchCommandPrefix, cfg.TwitchChannels, d, logger), nil
}

func newClient(irc ircClient, username, prefix string, channels []string, d Dispatcher, logger *slog.Logger) *Client {
	if prefix == "" {
		prefix = "!"
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		irc:        irc,
		username:   strings.ToLower(username),
		prefix:     prefix,
		channels:   channels,
		dispatcher: d,
		logger:     logger.With(slog.String("component", "twitch")),
		retryMin:   5 * time.Second,
		retryMax:   2 * time.Minute,
		after:      time.After,
	}
	return c
}

// Connected reports whether the IRC connection is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// handleMessage turns a prefixed chat line into a command.
func (c *Client) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	if strings.EqualFold(msg.User.Name, c.username) {
		return
	}
	text := strings.TrimSpace(msg.Message)
	if !strings.HasPrefix(text, c.prefix) {
		return
	}
	name, args, _ := strings.Cut(strings.TrimPrefix(text, c.prefix), " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}

	user := msg.User.DisplayName
	if user == "" {
		user = msg.User.Name
	}
	req := bot.Request{
		Command:   name,
		Args:      strings.TrimSpace(args),
		UserID:    msg.User.ID,
		UserName:  user,
		ChannelID: msg.Channel,
		Transport: transport,
		Prefix:    c.prefix,
	}
	r := &responder{irc: c.irc, channel: msg.Channel, mention: "@" + user}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.dispatcher.Dispatch(ctx, req, r)
		if errors.Is(err, bot.ErrUnknownCommand) {
			// other bots share the prefix; stay quiet
			c.logger.Debug("unknown command ignored", slog.String("command", name), slog.String("channel", msg.Channel))
		}
	}()
}

// responder flattens rich messages into chat lines.
type responder struct {
	irc     ircClient
	channel string
	mention string
}

func (r *responder) Reply(_ context.Context, msg bot.Message) error {
	lines := msg.Lines()
	if len(lines) == 0 {
		return nil
	}
	lines[0] = r.mention + " " + lines[0]
	for _, l := range packLines(lines, maxLineLength) {
		r.irc.Say(r.channel, l)
	}
	return nil
}

func (r *responder) UploadFile(context.Context, string, string, bot.Message) error {
	return bot.ErrUploadUnsupported
}

func (r *responder) CanUpload() bool { return false }

// packLines joins lines with a separator into as few messages of at most limit
// runes as possible, splitting any single line that is too long on its own.
func packLines(lines []string, limit int) []string {
	var out []string
	var cur []rune
	sep := []rune(lineSeparator)
	for _, l := range lines {
		for _, piece := range splitRunes([]rune(l), limit) {
			switch {
			case len(cur) == 0:
				cur = append(cur, piece...)
			case len(cur)+len(sep)+len(piece) <= limit:
				cur = append(append(cur, sep...), piece...)
			default:
				out = append(out, string(cur))
				cur = append([]rune(nil), piece...)
			}
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func splitRunes(r []rune, limit int) [][]rune {
	var out [][]rune
	for len(r) > limit {
		out = append(out, r[:limit])
		r = r[limit:]
	}
	return append(out, r)
}

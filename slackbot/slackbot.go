// Package slackbot connects the command layer to Slack over Socket Mode.
//
// Slash commands (/teams, /teamhelp, /embed, /ping) are acknowledged at once
// with an ephemeral "working on it" note and then dispatched in the
// background, since Slack drops acks that take longer than three seconds.
// Mentions of the bot ("@teambot teams 2 4 a,b,c,d") are handled the same way.
package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/onnwee/teambot/bot"
	"github.com/onnwee/teambot/config"
)

const transport = "slack"

// Dispatcher runs a command on behalf of a transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, req bot.Request, r bot.Responder) error
}

// api is the subset of *slack.Client used for replies.
type api interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

type ackFunc func(req socketmode.Request, payload ...any)

type Client struct {
	api        api
	sm         *socketmode.Client
	ack        ackFunc
	dispatcher Dispatcher
	logger     *slog.Logger
	connected  atomic.Bool
	wg         sync.WaitGroup
}

// New builds a Socket Mode client from the Slack tokens in cfg.
func New(cfg *config.Config, d Dispatcher, logger *slog.Logger) (*Client, error) {
	botToken := strings.TrimSpace(cfg.SlackBotToken)
	appToken := strings.TrimSpace(cfg.SlackAppToken)
	if botToken == "" {
		return nil, errors.New("missing SLACK_BOT_TOKEN")
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return nil, errors.New("SLACK_APP_TOKEN must be an app-level token (xapp-...)")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "slack"))

	opts := []slack.Option{slack.OptionAppLevelToken(appToken)}
	if base := strings.TrimSpace(cfg.SlackAPIBase); base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	client := slack.New(botToken, opts...)
	sm := socketmode.New(client, socketmode.OptionLog(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)))

	c := newClient(client, sm.Ack, d, logger)
	c.sm = sm
	return c, nil
}

func newClient(a api, ack ackFunc, d Dispatcher, logger *slog.Logger) *Client {
	return &Client{api: a, ack: ack, dispatcher: d, logger: logger}
}

// Connected reports whether the Socket Mode connection is up.
func (c *Client) Connected() bool { return c.connected.Load() }

// Run processes events until ctx is canceled, then waits for in-flight commands.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Commands are only added to wg from the event loop, so it must be
	// gone before wg.Wait.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		c.eventLoop(ctx, c.sm.Events)
	}()
	err := c.sm.RunContext(ctx)
	cancel()
	<-loopDone
	c.connected.Store(false)
	c.wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Client) eventLoop(ctx context.Context, events <-chan socketmode.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ctx, evt)
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		c.logger.Info("slack connecting")
	case socketmode.EventTypeConnected:
		c.connected.Store(true)
		c.logger.Info("slack connected")
	case socketmode.EventTypeConnectionError, socketmode.EventTypeDisconnect:
		c.connected.Store(false)
		c.logger.Warn("slack connection lost", slog.String("event", string(evt.Type)))
	case socketmode.EventTypeInvalidAuth:
		c.connected.Store(false)
		c.logger.Error("slack rejected credentials")
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			c.ack(*evt.Request, map[string]any{"response_type": "ephemeral", "text": "⏳ Working on it..."})
		}
		c.dispatch(ctx, bot.Request{
			Command:   strings.TrimPrefix(cmd.Command, "/"),
			Args:      cmd.Text,
			UserID:    cmd.UserID,
			UserName:  cmd.UserName,
			ChannelID: cmd.ChannelID,
			Transport: transport,
			Prefix:    "/",
		})
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			c.ack(*evt.Request)
		}
		ev, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || ev.Type != slackevents.CallbackEvent {
			return
		}
		mention, ok := ev.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok || mention == nil || mention.BotID != "" {
			return
		}
		name, args := splitCommand(stripMention(mention.Text))
		if name == "" {
			return
		}
		c.dispatch(ctx, bot.Request{
			Command:   name,
			Args:      args,
			UserID:    mention.User,
			UserName:  "<@" + mention.User + ">",
			ChannelID: mention.Channel,
			Transport: transport,
			Prefix:    "/",
		})
	default:
		c.logger.Debug("slack event ignored", slog.String("event", string(evt.Type)))
	}
}

func (c *Client) dispatch(ctx context.Context, req bot.Request) {
	r := &responder{api: c.api, channel: req.ChannelID, user: req.UserID}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.dispatcher.Dispatch(ctx, req, r)
		if errors.Is(err, bot.ErrUnknownCommand) {
			_ = r.Reply(ctx, bot.Message{Text: fmt.Sprintf("Unknown command `%s`. Try `/teamhelp`.", req.Command), Ephemeral: true})
		}
	}()
}

var mentionRe = regexp.MustCompile(`^\s*<@[A-Z0-9]+(\|[^>]*)?>\s*`)

func stripMention(text string) string { return mentionRe.ReplaceAllString(text, "") }

// splitCommand splits "teams 2 4 a,b" into "teams" and "2 4 a,b".
func splitCommand(text string) (name, args string) {
	text = strings.TrimSpace(text)
	name, args, _ = strings.Cut(text, " ")
	return strings.TrimPrefix(strings.ToLower(name), "/"), strings.TrimSpace(args)
}

// responder posts replies into the channel a command came from.
type responder struct {
	api     api
	channel string
	user    string
}

func (r *responder) Reply(ctx context.Context, msg bot.Message) error {
	opts := msgOptions(msg)
	if msg.Ephemeral && r.user != "" {
		if _, err := r.api.PostEphemeralContext(ctx, r.channel, r.user, opts...); err != nil {
			return fmt.Errorf("slack post ephemeral: %w", err)
		}
		return nil
	}
	if _, _, err := r.api.PostMessageContext(ctx, r.channel, opts...); err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}
	return nil
}

func (r *responder) UploadFile(ctx context.Context, path, filename string, msg bot.Message) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat upload: %w", err)
	}
	_, err = r.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		File:           path,
		FileSize:       int(fi.Size()),
		Filename:       filename,
		Title:          msg.Title,
		InitialComment: uploadComment(msg),
		Channel:        r.channel,
	})
	if err != nil {
		return fmt.Errorf("slack upload: %w", err)
	}
	return nil
}

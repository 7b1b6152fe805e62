package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Run connects, joins the configured channels and serves commands until ctx
// is canceled. Dropped connections are retried with exponential backoff
// (5s doubling to 2m) that starts over once a connection is established;
// rejected credentials end the loop.
func (c *Client) Run(ctx context.Context) error {
	var established atomic.Bool
	c.irc.OnConnect(func() {
		established.Store(true)
		c.connected.Store(true)
		c.logger.Info("twitch connected", slog.Any("channels", c.channels))
	})
	c.irc.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		c.handleMessage(ctx, msg)
	})
	c.irc.Join(c.channels...)

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.irc.Disconnect()
		case <-done:
		}
	}()

	backoff := c.retryMin
	for {
		err := c.irc.Connect()
		c.connected.Store(false)
		if ctx.Err() != nil {
			c.wg.Wait()
			c.logger.Info("twitch chat stopped")
			return nil
		}
		if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
			c.wg.Wait()
			return err
		}
		if established.Swap(false) {
			backoff = c.retryMin
		}
		c.logger.Warn("twitch connection lost; reconnecting", slog.Any("err", err), slog.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return nil
		case <-c.after(backoff):
		}
		backoff *= 2
		if backoff > c.retryMax {
			backoff = c.retryMax
		}
	}
}

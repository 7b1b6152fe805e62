package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/onnwee/teambot/media"
	"github.com/onnwee/teambot/telemetry"
)

func (b *Bot) handleEmbed(ctx context.Context, req Request, r Responder) error {
	logger := b.loggerFor(ctx, req)
	rawURL := strings.TrimSpace(req.Args)
	if rawURL == "" {
		return r.Reply(ctx, Failure(fmt.Sprintf("❌ Usage: `%sembed <url>`", req.Prefix)))
	}
	if _, err := media.ValidateURL(rawURL); err != nil {
		return r.Reply(ctx, Failure("❌ Please provide a valid http(s) video link."))
	}
	if b.opts.Downloader == nil {
		return r.Reply(ctx, Failure("❌ Video embedding is not available right now."))
	}
	if !canUpload(r) && b.opts.Fallback == nil {
		return r.Reply(ctx, Failure("❌ Video uploads are not supported here."))
	}

	v, err := b.opts.Downloader.Download(ctx, rawURL)
	if err != nil {
		logger.Error("error processing video", slog.String("url", rawURL), slog.Any("err", err))
		return r.Reply(ctx, Failure("❌ Failed to process the video."))
	}
	defer func() {
		if err := v.Remove(); err != nil {
			logger.Warn("remove downloaded video", slog.String("path", v.Path), slog.Any("err", err))
		}
	}()

	if v.TooLarge(b.opts.MaxUploadBytes) {
		telemetry.Inc(telemetry.VideosOversize)
		logger.Info("video over upload ceiling", slog.Int64("bytes", v.Size), slog.Int64("limit", b.opts.MaxUploadBytes))
		if b.deliverFallback(ctx, logger, r, v, rawURL) {
			return nil
		}
		return r.Reply(ctx, Failure(fmt.Sprintf("❌ Video is too large to upload (%dMB limit).", b.opts.MaxUploadBytes/(1024*1024))))
	}

	msg := Message{
		Title:       "📽️ Embedded Video",
		Description: "From: " + rawURL,
		Color:       ColorBlurple,
	}
	ext := filepath.Ext(v.Path)
	if ext == "" {
		ext = ".mp4"
	}
	err = r.UploadFile(ctx, v.Path, "video"+ext, msg)
	switch {
	case errors.Is(err, ErrUploadUnsupported):
		if b.deliverFallback(ctx, logger, r, v, rawURL) {
			return nil
		}
		return r.Reply(ctx, Failure("❌ Video uploads are not supported here."))
	case err != nil:
		logger.Error("upload video", slog.Any("err", err))
		return r.Reply(ctx, Failure("❌ Failed to process the video."))
	}
	telemetry.Inc(telemetry.VideosDelivered)
	logger.Info("video sent", slog.String("url", rawURL), slog.Int64("bytes", v.Size))
	return nil
}

// deliverFallback uploads v through the configured fallback and replies with
// the link. It reports whether a reply was delivered.
func (b *Bot) deliverFallback(ctx context.Context, logger *slog.Logger, r Responder, v *media.Video, rawURL string) bool {
	if b.opts.Fallback == nil {
		return false
	}
	link, err := b.opts.Fallback.Upload(ctx, v.Path, "Embedded video", "From: "+rawURL)
	if err != nil {
		telemetry.ObserveFallback("error")
		logger.Error("fallback upload failed", slog.Any("err", err))
		return false
	}
	telemetry.ObserveFallback("ok")
	err = r.Reply(ctx, Message{
		Title:       "📽️ Embedded Video",
		Description: fmt.Sprintf("From: %s\nToo large for chat, uploaded here instead: %s", rawURL, link),
		Color:       ColorBlurple,
	})
	if err != nil {
		logger.Warn("fallback link reply not delivered", slog.Any("err", err))
		return false
	}
	return true
}

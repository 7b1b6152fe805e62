// Package media fetches remote videos with yt-dlp so they can be re-uploaded to chat.
//
// Each download gets a uuid-named file in the download directory. Callers own
// the returned Video and must Remove it once it has been delivered.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/teambot/telemetry"
)

// Video is a downloaded file on local disk.
type Video struct {
	Path string
	Size int64
}

// TooLarge reports whether the file exceeds limit bytes.
func (v *Video) TooLarge(limit int64) bool { return v.Size > limit }

// Remove deletes the file. A file that is already gone is not an error.
func (v *Video) Remove() error {
	if err := os.Remove(v.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Options configures a Downloader.
type Options struct {
	Dir           string
	Binary        string // yt-dlp executable
	MaxAttempts   int
	BackoffBase   time.Duration
	Timeout       time.Duration // per Download call, all attempts included
	MaxConcurrent int
	Logger        *slog.Logger
}

// runFunc executes a command and returns its stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Downloader runs yt-dlp with retries under a global concurrency limit.
type Downloader struct {
	opts   Options
	slots  *slots
	run    runFunc
	logger *slog.Logger
}

// NewDownloader applies defaults to opts and returns a ready Downloader.
func NewDownloader(opts Options) *Downloader {
	if opts.Dir == "" {
		opts.Dir = "downloads"
	}
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With(slog.String("component", "media"))
	return &Downloader{
		opts:   opts,
		slots:  newSlots(opts.MaxConcurrent, logger),
		run:    execRun,
		logger: logger,
	}
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Available checks that the yt-dlp binary can be found.
func (d *Downloader) Available() error {
	if _, err := exec.LookPath(d.opts.Binary); err != nil {
		return fmt.Errorf("yt-dlp not available: %w", err)
	}
	return nil
}

// Active returns the number of downloads in progress.
func (d *Downloader) Active() int { return d.slots.active() }

// Capacity returns the configured maximum concurrent downloads.
func (d *Downloader) Capacity() int { return d.slots.capacity() }

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// buildArgs returns the yt-dlp arguments for one download. The final path is
// printed on stdout once post-processing has moved the file into place.
func buildArgs(outTemplate, target string) []string {
	return []string{
		"-f", "mp4",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-progress",
		"--print", "after_move:filepath",
		"-o", outTemplate,
		target,
	}
}

// Download fetches rawURL into the download directory.
func (d *Downloader) Download(ctx context.Context, rawURL string) (*Video, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir download dir: %w", err)
	}

	if !d.slots.acquire(ctx) {
		return nil, ctx.Err()
	}
	defer d.slots.release()

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	logger := telemetry.LoggerWithCorr(ctx, d.logger).With(slog.String("download_id", id), slog.String("url", u.String()))
	args := buildArgs(filepath.Join(d.opts.Dir, id+".%(ext)s"), u.String())

	telemetry.Inc(telemetry.DownloadsStarted)
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := d.opts.BackoffBase * time.Duration(1<<attempt)
			backoff += time.Duration(rand.Int64N(int64(d.opts.BackoffBase))) //nolint:gosec // jitter only
			logger.Warn("retrying download", slog.Int("attempt", attempt), slog.Duration("backoff", backoff), slog.Any("err", lastErr))
			select {
			case <-ctx.Done():
				d.cleanup(id)
				telemetry.Inc(telemetry.DownloadsFailed)
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		stdout, stderr, err := d.run(ctx, d.opts.Binary, args...)
		if err == nil {
			v, ferr := d.locate(id, stdout)
			if ferr == nil {
				dur := time.Since(start)
				telemetry.Inc(telemetry.DownloadsSucceeded)
				telemetry.Observe(telemetry.DownloadDuration, dur.Seconds())
				telemetry.Observe(telemetry.DownloadBytes, float64(v.Size))
				logger.Info("download complete", slog.String("path", v.Path), slog.Int64("bytes", v.Size), slog.Duration("download_duration", dur))
				return v, nil
			}
			lastErr = ferr
		} else {
			lastErr = newExitError(err, stderr)
		}

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if IsFatalError(lastErr) {
			logger.Warn("download failed permanently", slog.Any("err", lastErr), slog.String("class", ErrorClassFatal.String()))
			break
		}
	}

	d.cleanup(id)
	telemetry.Inc(telemetry.DownloadsFailed)
	logger.Error("download failed", slog.Any("err", lastErr), slog.Duration("download_duration", time.Since(start)))
	return nil, lastErr
}

// locate finds the output file, preferring the path yt-dlp printed.
func (d *Downloader) locate(id string, stdout []byte) (*Video, error) {
	var candidates []string
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		candidates = append(candidates, last)
	}
	matches, _ := filepath.Glob(filepath.Join(d.opts.Dir, id+".*"))
	candidates = append(candidates, matches...)

	for _, p := range candidates {
		fi, err := os.Stat(p)
		if err != nil || fi.IsDir() || strings.HasSuffix(p, ".part") {
			continue
		}
		return &Video{Path: p, Size: fi.Size()}, nil
	}
	return nil, ErrNoOutput
}

// cleanup removes any partial files left by a failed download.
func (d *Downloader) cleanup(id string) {
	matches, _ := filepath.Glob(filepath.Join(d.opts.Dir, id+".*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			d.logger.Warn("cleanup partial download failed", slog.String("path", m), slog.Any("err", err))
		}
	}
}

// ExitError wraps a failed yt-dlp run with the last stderr line, which carries
// yt-dlp's own "ERROR: ..." message.
type ExitError struct {
	Err    error
	Stderr string
}

func newExitError(err error, stderr []byte) *ExitError {
	msg := ""
	for _, line := range strings.Split(strings.TrimSpace(string(stderr)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			msg = line
		}
	}
	return &ExitError{Err: err, Stderr: msg}
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return "yt-dlp: " + e.Err.Error()
	}
	return "yt-dlp: " + e.Stderr + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

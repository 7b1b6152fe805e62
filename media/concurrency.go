package media

import (
	"context"
	"log/slog"

	"github.com/onnwee/teambot/telemetry"
)

// slots limits concurrent downloads across all chat transports.
type slots struct {
	ch     chan struct{}
	logger *slog.Logger
}

func newSlots(n int, logger *slog.Logger) *slots {
	if n <= 0 {
		n = 1
	}
	logger.Info("download concurrency limit initialized", slog.Int("max_concurrent", n))
	return &slots{ch: make(chan struct{}, n), logger: logger}
}

// acquire blocks until a slot is available or ctx is done.
// Returns false if ctx was canceled first.
func (s *slots) acquire(ctx context.Context) bool {
	select {
	case s.ch <- struct{}{}:
		telemetry.SetActiveDownloads(len(s.ch))
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *slots) release() {
	select {
	case <-s.ch:
		telemetry.SetActiveDownloads(len(s.ch))
	default:
		// mismatched acquire/release
		s.logger.Warn("download slot release called without corresponding acquire")
	}
}

func (s *slots) active() int   { return len(s.ch) }
func (s *slots) capacity() int { return cap(s.ch) }

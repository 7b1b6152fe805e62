// Package telemetry provides Prometheus metrics, OpenTelemetry tracing and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Commands
	CommandsTotal   *prometheus.CounterVec // labels: command, transport, outcome
	CommandDuration *prometheus.HistogramVec

	// Downloads
	DownloadsStarted   prometheus.Counter
	DownloadsFailed    prometheus.Counter
	DownloadsSucceeded prometheus.Counter
	DownloadDuration   prometheus.Observer
	DownloadBytes      prometheus.Observer
	ActiveDownloads    prometheus.Gauge

	// Uploads
	VideosOversize  prometheus.Counter
	FallbackUploads *prometheus.CounterVec // labels: outcome
	VideosDelivered prometheus.Counter

	// Teams
	TeamsGenerated prometheus.Counter
	TeamPeople     prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "teambot_commands_total", Help: "Commands handled by name, transport and outcome"}, []string{"command", "transport", "outcome"})
		CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "teambot_command_duration_seconds", Help: "Command handling duration seconds", Buckets: prometheus.DefBuckets}, []string{"command"})
		DownloadsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_downloads_started_total", Help: "Number of video downloads started"})
		DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_downloads_failed_total", Help: "Number of video downloads failed"})
		DownloadsSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_downloads_succeeded_total", Help: "Number of video downloads succeeded"})
		DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "teambot_download_duration_seconds", Help: "Download duration seconds", Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300}})
		DownloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{Name: "teambot_download_bytes", Help: "Size of downloaded videos in bytes", Buckets: prometheus.ExponentialBuckets(256*1024, 2, 10)})
		ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{Name: "teambot_active_downloads", Help: "Downloads currently holding a slot"})
		VideosOversize = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_videos_oversize_total", Help: "Downloads rejected for exceeding the upload ceiling"})
		FallbackUploads = promauto.NewCounterVec(prometheus.CounterOpts{Name: "teambot_fallback_uploads_total", Help: "Oversize videos sent to the fallback uploader by outcome"}, []string{"outcome"})
		VideosDelivered = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_videos_delivered_total", Help: "Videos uploaded to chat"})
		TeamsGenerated = promauto.NewCounter(prometheus.CounterOpts{Name: "teambot_team_generations_total", Help: "Successful team generations"})
		TeamPeople = promauto.NewHistogram(prometheus.HistogramOpts{Name: "teambot_team_generation_people", Help: "Unique people per team generation", Buckets: []float64{2, 4, 8, 16, 32, 64, 128}})
	})
}

// ObserveCommand records one handled command. No-op before Init.
func ObserveCommand(command, transport, outcome string, d time.Duration) {
	if CommandsTotal == nil {
		return
	}
	CommandsTotal.WithLabelValues(command, transport, outcome).Inc()
	CommandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// SetActiveDownloads records the number of held download slots.
func SetActiveDownloads(n int) {
	if ActiveDownloads != nil {
		ActiveDownloads.Set(float64(n))
	}
}

// ObserveFallback counts one oversize video handed to the fallback uploader.
func ObserveFallback(outcome string) {
	if FallbackUploads != nil {
		FallbackUploads.WithLabelValues(outcome).Inc()
	}
}

// Inc increments c if it has been registered.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// Observe records v on obs if it has been registered.
func Observe(obs prometheus.Observer, v float64) {
	if obs != nil {
		obs.Observe(v)
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context carrying the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns base (or the default logger) with a corr attribute if present.
func LoggerWithCorr(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if id := GetCorrelation(ctx); id != "" {
		return base.With(slog.String("corr", id))
	}
	return base
}

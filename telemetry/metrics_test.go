package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsInitialized(t *testing.T) {
	Init()
	Init() // idempotent

	assert.NotNil(t, CommandsTotal)
	assert.NotNil(t, CommandDuration)
	assert.NotNil(t, DownloadDuration)
	assert.NotNil(t, ActiveDownloads)
	assert.NotNil(t, FallbackUploads)
	assert.NotNil(t, TeamsGenerated)
}

func TestObserveCommand(t *testing.T) {
	Init()

	samples := func() uint64 {
		m := &dto.Metric{}
		require.NoError(t, CommandDuration.WithLabelValues("teams").(prometheus.Metric).Write(m))
		return m.GetHistogram().GetSampleCount()
	}

	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("teams", "slack", "ok"))
	beforeSamples := samples()
	ObserveCommand("teams", "slack", "ok", 25*time.Millisecond)
	ObserveCommand("teams", "slack", "ok", 30*time.Millisecond)
	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("teams", "slack", "ok"))
	assert.Equal(t, before+2, after)
	assert.Equal(t, beforeSamples+2, samples())
}

func TestActiveDownloadsGauge(t *testing.T) {
	Init()
	for _, n := range []int{0, 3, 1} {
		SetActiveDownloads(n)
		assert.Equal(t, float64(n), testutil.ToFloat64(ActiveDownloads))
	}
}

func TestIncAndObserveNilSafe(t *testing.T) {
	Inc(nil)
	Observe(nil, 1)

	Init()
	before := testutil.ToFloat64(TeamsGenerated)
	Inc(TeamsGenerated)
	assert.Equal(t, before+1, testutil.ToFloat64(TeamsGenerated))

	h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_seconds", Help: "test"})
	Observe(h, 0.5)
	m := &dto.Metric{}
	require.NoError(t, h.Write(m))
	assert.InDelta(t, 0.5, m.GetHistogram().GetSampleSum(), 1e-9)
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelation(ctx))

	ctx = WithCorrelation(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetCorrelation(ctx))
	assert.NotNil(t, LoggerWithCorr(ctx, nil))
}

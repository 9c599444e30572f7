package tokenauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricIssueSuccess)

	if got := m.Value(MetricIssueSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricIssueSuccess)
	m.Inc(MetricIssueSuccess)
	m.Inc(MetricIssueSuccess)

	if got := m.Value(MetricIssueSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshRotated)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshRotated); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricRefreshLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRefreshLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLogout, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLogout]; ok {
		t.Fatal("counters must not appear as histograms")
	}
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatal("histograms must not appear as counters")
	}
}

func TestEngineMetricsFollowRefreshOutcomes(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Metrics.EnableLatencyHistograms = true
	})
	ctx := context.Background()

	pair, err := engine.IssueTokens(ctx, workedExample)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatal(err)
	}
	_, _ = engine.Refresh(ctx, pair.RefreshToken)
	_, _ = engine.ValidateAccess(ctx, pair.AccessToken)
	_ = engine.Logout(ctx, pair.RefreshToken)

	snap := engine.MetricsSnapshot()
	want := map[MetricID]uint64{
		MetricIssueSuccess:           1,
		MetricRefreshRotated:         1,
		MetricRefreshFailure:         1,
		MetricRefreshSessionNotFound: 1,
		MetricValidateSuccess:        1,
		MetricLogout:                 1,
	}
	for id, v := range want {
		if snap.Counters[id] != v {
			t.Fatalf("metric %d: expected %d, got %d", id, v, snap.Counters[id])
		}
	}

	var refreshObs uint64
	for _, v := range snap.Histograms[MetricRefreshLatency] {
		refreshObs += v
	}
	if refreshObs != 2 {
		t.Fatalf("expected 2 refresh latency observations, got %d", refreshObs)
	}
}

func TestNilEngineMetricsSnapshot(t *testing.T) {
	var engine *Engine
	snap := engine.MetricsSnapshot()
	if snap.Counters == nil || snap.Histograms == nil {
		t.Fatal("snapshot maps must be non-nil")
	}
}

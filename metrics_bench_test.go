package tokenauth

import (
	"sync/atomic"
	"testing"
	"time"
)

// refreshOutcomes lists the counter sets Engine.Refresh emits per outcome.
// Rotations dominate real traffic, so they take most of the slots.
var refreshOutcomes = [8][]MetricID{
	{MetricRefreshRotated},
	{MetricRefreshRotated},
	{MetricRefreshRotated},
	{MetricRefreshRotated},
	{MetricRefreshReissued},
	{MetricRefreshSessionNotFound, MetricRefreshFailure},
	{MetricRefreshRotationRace, MetricRefreshFailure},
	{MetricRefreshRateLimited, MetricRefreshFailure},
}

func emitRefreshOutcome(m *Metrics, slot uint32, latency time.Duration) {
	for _, id := range refreshOutcomes[slot&7] {
		m.Inc(id)
	}
	m.Observe(MetricRefreshLatency, latency)
}

func BenchmarkRefreshMetricsEnabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		emitRefreshOutcome(m, uint32(i), time.Duration(i&1023)*time.Microsecond)
	}
}

func BenchmarkRefreshMetricsDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		emitRefreshOutcome(m, uint32(i), time.Millisecond)
	}
}

func BenchmarkRefreshMetricsParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	var seed atomic.Uint32
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		// xorshift keeps goroutines from walking the outcomes in lockstep.
		x := seed.Add(0x9e3779b9) | 1
		for pb.Next() {
			x ^= x << 13
			x ^= x >> 17
			x ^= x << 5
			emitRefreshOutcome(m, x, time.Duration(x&4095)*time.Microsecond)
		}
	})
}

func BenchmarkValidateMetricsParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var n uint32
		for pb.Next() {
			n++
			if n&15 == 0 {
				m.Inc(MetricValidateFailure)
				m.Inc(MetricValidateExpired)
			} else {
				m.Inc(MetricValidateSuccess)
			}
			m.Observe(MetricValidateLatency, 50*time.Microsecond)
		}
	})
}

func BenchmarkMetricsSnapshotUnderRefreshLoad(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		var slot uint32
		for {
			select {
			case <-stop:
				return
			default:
				emitRefreshOutcome(m, slot, time.Millisecond)
				slot++
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Snapshot()
	}
}

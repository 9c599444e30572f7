package tokenauth

import (
	internalmetrics "github.com/MrEthical07/tokenauth/internal/metrics"
)

// MetricID identifies a counter or latency histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricIssueSuccess counts token pairs issued by IssueTokens.
	MetricIssueSuccess = internalmetrics.MetricIssueSuccess
	// MetricIssueFailure counts IssueTokens calls that failed to mint or persist.
	MetricIssueFailure = internalmetrics.MetricIssueFailure
	// MetricRefreshRotated counts refreshes that rotated the refresh token.
	MetricRefreshRotated = internalmetrics.MetricRefreshRotated
	// MetricRefreshReissued counts degraded refreshes that minted only a new access token.
	MetricRefreshReissued = internalmetrics.MetricRefreshReissued
	// MetricRefreshFailure counts every failed refresh.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricRefreshSessionNotFound counts refreshes with no matching stored record.
	MetricRefreshSessionNotFound = internalmetrics.MetricRefreshSessionNotFound
	// MetricRefreshRotationRace counts rotations lost to a concurrent rotation of the same token.
	MetricRefreshRotationRace = internalmetrics.MetricRefreshRotationRace
	// MetricRefreshRateLimited counts refreshes rejected by the throttle.
	MetricRefreshRateLimited = internalmetrics.MetricRefreshRateLimited
	// MetricValidateSuccess counts accepted access tokens.
	MetricValidateSuccess = internalmetrics.MetricValidateSuccess
	// MetricValidateFailure counts rejected access tokens, expired ones included.
	MetricValidateFailure = internalmetrics.MetricValidateFailure
	// MetricValidateExpired counts access tokens rejected as expired.
	MetricValidateExpired = internalmetrics.MetricValidateExpired
	// MetricLogout counts Logout calls that removed or found no record.
	MetricLogout = internalmetrics.MetricLogout
	// MetricValidateLatency is the ValidateAccess latency histogram.
	MetricValidateLatency = internalmetrics.MetricValidateLatency
	// MetricRefreshLatency is the Refresh latency histogram.
	MetricRefreshLatency = internalmetrics.MetricRefreshLatency
	// MetricIDCount is the number of metric slots.
	MetricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics configured by cfg. When Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// MetricsSnapshot returns a copy of the engine's counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

package internaldefs

import (
	"github.com/MrEthical07/tokenauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   tokenauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: tokenauth.MetricIssueSuccess, Name: "tokenauth_issue_success_total", Help: "Token pairs issued."},
	{ID: tokenauth.MetricIssueFailure, Name: "tokenauth_issue_failure_total", Help: "Token issues that failed to mint or persist."},
	{ID: tokenauth.MetricRefreshRotated, Name: "tokenauth_refresh_rotated_total", Help: "Refreshes that rotated the refresh token."},
	{ID: tokenauth.MetricRefreshReissued, Name: "tokenauth_refresh_reissued_total", Help: "Degraded refreshes that reissued only an access token."},
	{ID: tokenauth.MetricRefreshFailure, Name: "tokenauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: tokenauth.MetricRefreshSessionNotFound, Name: "tokenauth_refresh_session_not_found_total", Help: "Refreshes with no matching stored record."},
	{ID: tokenauth.MetricRefreshRotationRace, Name: "tokenauth_refresh_rotation_race_total", Help: "Rotations lost to a concurrent rotation of the same token."},
	{ID: tokenauth.MetricRefreshRateLimited, Name: "tokenauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: tokenauth.MetricValidateSuccess, Name: "tokenauth_validate_success_total", Help: "Accepted access tokens."},
	{ID: tokenauth.MetricValidateFailure, Name: "tokenauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: tokenauth.MetricValidateExpired, Name: "tokenauth_validate_expired_total", Help: "Access tokens rejected as expired."},
	{ID: tokenauth.MetricLogout, Name: "tokenauth_logout_total", Help: "Logout operations."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: tokenauth.MetricValidateLatency, Name: "tokenauth_validate_latency_seconds", Help: "ValidateAccess latency histogram."},
	{ID: tokenauth.MetricRefreshLatency, Name: "tokenauth_refresh_latency_seconds", Help: "Refresh latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the audit backpressure counter.
const (
	AuditDroppedName = "tokenauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// model buckets as separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling when raw
// is short (histograms disabled).
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

package tokenauth

import (
	"errors"
	"strings"
	"time"
)

// LintSeverity ranks configuration warnings.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that validates but is probably unintended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings returned by Config.Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	filtered := r.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(filtered))
	for _, w := range filtered {
		msgs = append(msgs, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return errors.New("config lint: " + strings.Join(msgs, "; "))
}

// Lint reports settings that pass Validate but weaken or waste part of the
// token lifecycle. It does not call Validate.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.JWT.AccessTTL > 0 && c.JWT.Leeway >= c.JWT.AccessTTL {
		add("leeway_exceeds_access_ttl", LintHigh, "leeway at least doubles the effective access token lifetime")
	} else if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "leeway above 30s accepts noticeably expired tokens")
	}
	if c.JWT.AccessTTL > 10*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens cannot be revoked; keep their lifetime short")
	}
	if c.JWT.RefreshTTL > 14*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh tokens live longer than two weeks")
	}
	if c.JWT.SigningMethod == "hs256" {
		add("signing_hs256", LintInfo, "hs384 or hs512 give a larger security margin")
	}

	if c.Rotation.DegradedReissue {
		add("degraded_reissue_enabled", LintWarn, "refresh tokens that fail verification can still mint access tokens")
		if c.Store.Retention == 0 {
			add("degraded_reissue_no_retention", LintInfo, "expired refresh tokens are only reissued while Store.Retention keeps their records")
		}
	} else if c.Store.Retention > 0 {
		add("retention_unused", LintInfo, "Store.Retention has no effect while degraded reissue is disabled")
	}

	if !c.Security.EnableRefreshThrottle {
		add("refresh_throttle_disabled", LintInfo, "refresh attempts are not rate limited")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "no audit events are emitted")
	}

	return ws
}

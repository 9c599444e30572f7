package tokenauth

import (
	"testing"
	"time"
)

func TestLint_DefaultConfigNoHighWarnings(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Errorf("default config should not fail AsError(LintHigh): %v", err)
	}

	codes := cfg.Lint().Codes()
	for _, want := range []string{"degraded_reissue_enabled", "signing_hs256", "audit_disabled"} {
		if !containsCode(codes, want) {
			t.Errorf("expected %q for default config, got %v", want, codes)
		}
	}
	if containsCode(codes, "degraded_reissue_no_retention") {
		t.Errorf("default config keeps expired records, got %v", codes)
	}
}

func TestLint_DegradedReissueWithoutRetention(t *testing.T) {
	cfg := defaultConfig()
	cfg.Store.Retention = 0
	if !containsCode(cfg.Lint().Codes(), "degraded_reissue_no_retention") {
		t.Fatal("expected degraded_reissue_no_retention")
	}
}

func TestLint_LargeLeeway(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.Leeway = 90 * time.Second
	if !containsCode(cfg.Lint().Codes(), "leeway_large") {
		t.Error("expected leeway_large warning")
	}
}

func TestLint_LeewayExceedsAccessTTLIsHigh(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = time.Minute
	cfg.JWT.Leeway = 2 * time.Minute

	high := cfg.Lint().BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "leeway_exceeds_access_ttl" {
		t.Fatalf("expected one HIGH leeway warning, got %+v", high)
	}
	if cfg.Lint().AsError(LintHigh) == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
}

func TestLint_LongTTLs(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 15 * time.Minute
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "access_ttl_long") || !containsCode(codes, "refresh_ttl_long") {
		t.Fatalf("expected TTL warnings, got %v", codes)
	}
}

func TestLint_RetentionWithoutReissue(t *testing.T) {
	cfg := defaultConfig()
	cfg.Rotation.DegradedReissue = false
	cfg.Store.Retention = time.Hour
	codes := cfg.Lint().Codes()
	if !containsCode(codes, "retention_unused") {
		t.Fatalf("expected retention_unused, got %v", codes)
	}
	if containsCode(codes, "degraded_reissue_enabled") {
		t.Fatal("strict rotation must not warn about degraded reissue")
	}
}

func TestLint_HardenedConfigQuiet(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs512"
	cfg.Rotation.DegradedReissue = false
	cfg.Store.Retention = 0
	cfg.Security.EnableRefreshThrottle = true
	cfg.Audit.Enabled = true
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLintSeverityString(t *testing.T) {
	if LintHigh.String() != "HIGH" || LintWarn.String() != "WARN" || LintInfo.String() != "INFO" {
		t.Fatal("unexpected severity labels")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

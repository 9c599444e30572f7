package tokenauth

import (
	"errors"
	"strings"
	"time"
)

// Config is the complete engine configuration.
//
// Config values are cloned by Builder.WithConfig and Build; mutating the
// caller's copy afterwards has no effect on a built Engine.
type Config struct {
	JWT      JWTConfig
	Store    StoreConfig
	Rotation RotationConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the issuer, lifetimes and the two signing-key domains.
//
// Either set AccessKey and RefreshKey explicitly or leave both empty and set
// MasterSecret, from which both keys are derived with DeriveSigningKeys.
type JWTConfig struct {
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	AccessKey     []byte
	RefreshKey    []byte
	MasterSecret  []byte
	Leeway        time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the refresh store the Builder creates when it is given
// a Redis client or Postgres pool instead of a ready Store.
type StoreConfig struct {
	RedisPrefix string
	// Retention keeps records this long past their expiry, so a refresh token
	// that no longer verifies can still be matched by the degraded path.
	// Defaults to the default refresh lifetime. Zero drops records at expiry.
	Retention time.Duration
}

/*
====================================
ROTATION CONFIG
====================================
*/

// RotationConfig selects how Refresh treats a refresh token that fails
// verification.
type RotationConfig struct {
	// DegradedReissue, when true, looks up a refresh token that failed
	// verification and, if a record still exists, mints a new access token
	// while returning the presented refresh token unchanged. When false such
	// tokens are rejected with their verification error.
	DegradedReissue bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds production guard rails and the refresh throttle.
type SecurityConfig struct {
	ProductionMode          bool
	EnableRefreshThrottle   bool
	EnableIPThrottle        bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration New starts from. Keys are left
// empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:        "tokenauth",
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Store: StoreConfig{
			RedisPrefix: "rt",
			Retention:   7 * 24 * time.Hour,
		},
		Rotation: RotationConfig{
			DegradedReissue: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:          false,
			EnableRefreshThrottle:   false,
			EnableIPThrottle:        false,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessKey = cloneBytes(cfg.JWT.AccessKey)
	out.JWT.RefreshKey = cloneBytes(cfg.JWT.RefreshKey)
	out.JWT.MasterSecret = cloneBytes(cfg.JWT.MasterSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found, or nil.
func (c *Config) Validate() error {
	// JWT
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	minKey, ok := minKeyLength(c.JWT.SigningMethod)
	if !ok {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	explicit := len(c.JWT.AccessKey) > 0 || len(c.JWT.RefreshKey) > 0
	switch {
	case explicit && len(c.JWT.MasterSecret) > 0:
		return errors.New("JWT MasterSecret cannot be combined with explicit keys")
	case explicit:
		if len(c.JWT.AccessKey) < minKey || len(c.JWT.RefreshKey) < minKey {
			return errors.New("JWT keys are shorter than the signing method requires")
		}
		if string(c.JWT.AccessKey) == string(c.JWT.RefreshKey) {
			return errors.New("JWT AccessKey and RefreshKey must differ")
		}
	case len(c.JWT.MasterSecret) > 0:
		if len(c.JWT.MasterSecret) < 32 {
			return errors.New("JWT MasterSecret must be at least 32 bytes")
		}
	default:
		return errors.New("JWT signing keys or MasterSecret required")
	}

	// Store
	if strings.TrimSpace(c.Store.RedisPrefix) == "" {
		return errors.New("Store RedisPrefix is required")
	}
	if c.Store.Retention < 0 {
		return errors.New("Store Retention must be >= 0")
	}

	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.Rotation.DegradedReissue {
			return errors.New("ProductionMode requires Rotation DegradedReissue to be disabled")
		}
	}

	return nil
}

func minKeyLength(method string) (int, bool) {
	switch method {
	case "hs256":
		return 32, true
	case "hs384":
		return 48, true
	case "hs512":
		return 64, true
	default:
		return 0, false
	}
}

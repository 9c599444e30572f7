package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth"
	"gopkg.in/yaml.v3"
)

// Store backends accepted by --store.
const (
	backendMemory    = "memory"
	backendMiniredis = "miniredis"
	backendRedis     = "redis"
	backendPostgres  = "postgres"
)

// daemonConfig is the on-disk and environment configuration of tokend.
type daemonConfig struct {
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Store struct {
		Backend     string        `yaml:"backend"`
		RedisAddr   string        `yaml:"redis_addr"`
		RedisPrefix string        `yaml:"redis_prefix"`
		PostgresDSN string        `yaml:"postgres_dsn"`
		Retention   time.Duration `yaml:"retention"`
	} `yaml:"store"`

	JWT struct {
		Issuer        string        `yaml:"issuer"`
		AccessTTL     time.Duration `yaml:"access_ttl"`
		RefreshTTL    time.Duration `yaml:"refresh_ttl"`
		SigningMethod string        `yaml:"signing_method"`
		// MasterSecret is base64 (std encoding).
		MasterSecret string        `yaml:"master_secret"`
		Leeway       time.Duration `yaml:"leeway"`
	} `yaml:"jwt"`

	Rotation struct {
		DegradedReissue *bool `yaml:"degraded_reissue"`
	} `yaml:"rotation"`

	Security struct {
		ProductionMode     bool          `yaml:"production_mode"`
		RefreshThrottle    bool          `yaml:"refresh_throttle"`
		IPThrottle         bool          `yaml:"ip_throttle"`
		MaxRefreshAttempts int           `yaml:"max_refresh_attempts"`
		RefreshCooldown    time.Duration `yaml:"refresh_cooldown"`
	} `yaml:"security"`

	Audit struct {
		Enabled    bool `yaml:"enabled"`
		BufferSize int  `yaml:"buffer_size"`
	} `yaml:"audit"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Latency bool `yaml:"latency"`
	} `yaml:"metrics"`

	// DevAccounts enables POST /api/dev/login for local testing.
	DevAccounts []devAccount `yaml:"dev_accounts"`
}

type devAccount struct {
	ID       int64  `yaml:"id"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

func defaultDaemonConfig() daemonConfig {
	var c daemonConfig
	c.Listen = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.Store.Backend = backendMemory
	c.Store.RedisPrefix = "rt"
	c.Store.Retention = tokenauth.DefaultConfig().Store.Retention
	c.Metrics.Enabled = true
	c.Metrics.Latency = true
	c.Audit.BufferSize = 1024
	return c
}

// loadConfig reads path (optional) over the defaults, then applies TOKEND_*
// environment overrides. Flags are applied by the caller.
func loadConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *daemonConfig, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TOKEND_LISTEN", &cfg.Listen)
	str("TOKEND_LOG_LEVEL", &cfg.LogLevel)
	str("TOKEND_LOG_FORMAT", &cfg.LogFormat)
	str("TOKEND_STORE", &cfg.Store.Backend)
	str("TOKEND_REDIS_ADDR", &cfg.Store.RedisAddr)
	str("TOKEND_REDIS_PREFIX", &cfg.Store.RedisPrefix)
	str("TOKEND_POSTGRES_DSN", &cfg.Store.PostgresDSN)
	str("TOKEND_MASTER_SECRET", &cfg.JWT.MasterSecret)

	if v, ok := lookup("TOKEND_PRODUCTION"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TOKEND_PRODUCTION: %w", err)
		}
		cfg.Security.ProductionMode = b
	}
	if v, ok := lookup("TOKEND_DEGRADED_REISSUE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TOKEND_DEGRADED_REISSUE: %w", err)
		}
		cfg.Rotation.DegradedReissue = &b
	}
	return nil
}

// engineConfig converts the daemon config into a tokenauth.Config.
func (c daemonConfig) engineConfig() (tokenauth.Config, error) {
	out := tokenauth.DefaultConfig()

	if c.JWT.MasterSecret == "" {
		return out, errors.New("jwt.master_secret is required (see `tokend keygen`)")
	}
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.JWT.MasterSecret))
	if err != nil {
		return out, fmt.Errorf("jwt.master_secret: %w", err)
	}
	out.JWT.MasterSecret = secret

	if c.JWT.Issuer != "" {
		out.JWT.Issuer = c.JWT.Issuer
	}
	if c.JWT.AccessTTL > 0 {
		out.JWT.AccessTTL = c.JWT.AccessTTL
	}
	if c.JWT.RefreshTTL > 0 {
		out.JWT.RefreshTTL = c.JWT.RefreshTTL
	}
	if c.JWT.SigningMethod != "" {
		out.JWT.SigningMethod = strings.ToLower(c.JWT.SigningMethod)
	}
	out.JWT.Leeway = c.JWT.Leeway

	out.Store.RedisPrefix = c.Store.RedisPrefix
	out.Store.Retention = c.Store.Retention

	if c.Rotation.DegradedReissue != nil {
		out.Rotation.DegradedReissue = *c.Rotation.DegradedReissue
	} else if c.Security.ProductionMode {
		out.Rotation.DegradedReissue = false
	}

	out.Security.ProductionMode = c.Security.ProductionMode
	out.Security.EnableRefreshThrottle = c.Security.RefreshThrottle
	out.Security.EnableIPThrottle = c.Security.IPThrottle
	if c.Security.MaxRefreshAttempts > 0 {
		out.Security.MaxRefreshAttempts = c.Security.MaxRefreshAttempts
	}
	if c.Security.RefreshCooldown > 0 {
		out.Security.RefreshCooldownDuration = c.Security.RefreshCooldown
	}

	out.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		out.Audit.BufferSize = c.Audit.BufferSize
	}
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Latency

	return out, out.Validate()
}

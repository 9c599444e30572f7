package tokenauth

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder is single-use: Build may succeed
// at most once.
//
// Store selection in Build: WithStore wins, then WithPostgres, then
// WithRedis, and finally a process-local MemoryStore.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	postgres *pgxpool.Pool
	store    store.Store

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client used for the refresh store (unless another
// store is configured) and for the refresh throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres stores refresh records in Postgres. The schema must already
// exist; see store.Migrate.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.postgres = pool
	return b
}

// WithStore sets a ready refresh store, bypassing backend selection.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithAuditSink sets the sink for audit events. Audit must also be enabled
// in Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Nil means slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for token minting, verification and
// record timestamps. Nil means time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Refresh and ValidateAccess latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Security.EnableRefreshThrottle && b.redis == nil {
		return nil, errors.New("refresh throttle requires redis client")
	}
	if cfg.Security.ProductionMode && b.store == nil && b.postgres == nil && b.redis == nil {
		return nil, errors.New("ProductionMode requires a shared refresh store")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- SIGNING KEYS --------
	accessKey, refreshKey := cfg.JWT.AccessKey, cfg.JWT.RefreshKey
	if len(cfg.JWT.MasterSecret) > 0 {
		n, _ := minKeyLength(cfg.JWT.SigningMethod)
		var err error
		accessKey, refreshKey, err = DeriveSigningKeys(cfg.JWT.MasterSecret, cfg.JWT.Issuer, n)
		if err != nil {
			return nil, err
		}
	}

	jm, err := jwt.NewManager(jwt.Config{
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		AccessKey:     accessKey,
		RefreshKey:    refreshKey,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- REFRESH STORE --------
	st := b.store
	switch {
	case st != nil:
	case b.postgres != nil:
		st = store.NewPostgresStore(b.postgres, cfg.Store.Retention).WithClock(now)
	case b.redis != nil:
		st = store.NewRedisStore(b.redis, cfg.Store.RedisPrefix, cfg.Store.Retention).WithClock(now)
	default:
		logger.Warn("no refresh store configured, using process-local memory store")
		st = store.NewMemoryStore(cfg.Store.Retention).WithClock(now)
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		jwtManager: jm,
		store:      st,
		logger:     logger,
		now:        now,
	}

	if cfg.Security.EnableRefreshThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                  cfg.Store.RedisPrefix + ":rl",
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	issueRefresh := e.jwtManager.CreateRefreshTokenWithExpiry
	return flows.Deps{
		Issue: flows.IssueDeps{
			IssueAccessToken:  e.jwtManager.CreateAccessToken,
			IssueRefreshToken: issueRefresh,
			NewRecordID:       uuid.NewString,
			Now:               e.now,
			Store:             e.store,
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh: func(token string) error {
				_, err := e.jwtManager.ParseRefresh(token)
				return err
			},
			IssueAccessToken:  e.jwtManager.CreateAccessToken,
			IssueRefreshToken: issueRefresh,
			NewRecordID:       uuid.NewString,
			Now:               e.now,
			DegradedReissue:   e.config.Rotation.DegradedReissue,
			Store:             e.store,
		},
		Validate: flows.ValidateDeps{
			VerifyAccess: e.jwtManager.VerifyAccess,
		},
		Logout: flows.LogoutDeps{
			Store: e.store,
		},
	}
}

package tokenauth

import (
	"time"

	"github.com/MrEthical07/tokenauth/store"
)

// SecurityReport summarizes the security posture of a built Engine.
type SecurityReport struct {
	ProductionMode        bool
	SigningAlgorithm      string
	KeysDerived           bool
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
	DegradedReissue       bool
	Retention             time.Duration
	StoreBackend          string
	RefreshThrottleActive bool
	IPThrottleActive      bool
	AuditEnabled          bool
	LintWarnings          []string
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:        e.config.Security.ProductionMode,
		SigningAlgorithm:      e.config.JWT.SigningMethod,
		KeysDerived:           len(e.config.JWT.MasterSecret) > 0,
		AccessTTL:             e.config.JWT.AccessTTL,
		RefreshTTL:            e.config.JWT.RefreshTTL,
		Leeway:                e.config.JWT.Leeway,
		DegradedReissue:       e.config.Rotation.DegradedReissue,
		Retention:             e.config.Store.Retention,
		StoreBackend:          storeBackend(e.store),
		RefreshThrottleActive: e.rateLimiter != nil,
		IPThrottleActive:      e.rateLimiter != nil && e.config.Security.EnableIPThrottle,
		AuditEnabled:          e.audit != nil,
		LintWarnings:          e.config.Lint().Codes(),
	}
}

func storeBackend(s store.Store) string {
	switch s.(type) {
	case *store.MemoryStore:
		return "memory"
	case *store.RedisStore:
		return "redis"
	case *store.PostgresStore:
		return "postgres"
	case nil:
		return ""
	default:
		return "custom"
	}
}

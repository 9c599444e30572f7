package jwt

import (
	"crypto/subtle"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the HMAC variant used for both key domains.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256. Keys must be at least 32 bytes.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384. Keys must be at least 48 bytes.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512. Keys must be at least 64 bytes.
	MethodHS512 SigningMethod = "hs512"
)

// Config describes the codec's issuer, lifetimes and key material.
//
// AccessKey and RefreshKey form two independent signing domains and must differ.
// Config is copied by NewManager; later changes to the caller's slices are not observed.
type Config struct {
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessKey     []byte
	RefreshKey    []byte
	SigningMethod SigningMethod
	Leeway        time.Duration

	// Now overrides the clock used for minting and verification. Nil means time.Now.
	Now func() time.Time
}

// Manager mints and verifies access and refresh tokens.
//
// A Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// AccessClaims carries the identity of the authenticated account.
type AccessClaims struct {
	Email  string `json:"email"`
	UserID int64  `json:"user"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only an expiry and a unique token id.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// Identity is the claim payload minted into an access token.
type Identity struct {
	AccountID int64
	Email     string
	Role      string
}

// NewManager validates cfg and returns a codec bound to it.
func NewManager(cfg Config) (*Manager, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	method, minKey, err := resolveMethod(cfg.SigningMethod)
	if err != nil {
		return nil, err
	}
	if len(cfg.AccessKey) < minKey {
		return nil, errors.New(string(cfg.SigningMethod) + " access key must be at least " + strconv.Itoa(minKey) + " bytes")
	}
	if len(cfg.RefreshKey) < minKey {
		return nil, errors.New(string(cfg.SigningMethod) + " refresh key must be at least " + strconv.Itoa(minKey) + " bytes")
	}
	if subtle.ConstantTimeCompare(cfg.AccessKey, cfg.RefreshKey) == 1 {
		return nil, errors.New("access and refresh keys must differ")
	}

	cfg.AccessKey = append([]byte(nil), cfg.AccessKey...)
	cfg.RefreshKey = append([]byte(nil), cfg.RefreshKey...)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg, method: method}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// CreateAccessToken mints an access token for id signed with the access key.
//
// The subject is the decimal account id; email, user and role are carried as
// private claims.
func (j *Manager) CreateAccessToken(id Identity) (string, error) {
	now := j.config.Now()
	claims := AccessClaims{
		Email:  id.Email,
		UserID: id.AccountID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.AccountID, 10),
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.AccessTTL)),
		},
	}

	return jwt.NewWithClaims(j.method, claims).SignedString(j.config.AccessKey)
}

// CreateRefreshToken mints a refresh token signed with the refresh key.
func (j *Manager) CreateRefreshToken() (string, error) {
	token, _, err := j.CreateRefreshTokenWithExpiry()
	return token, err
}

// CreateRefreshTokenWithExpiry mints a refresh token and reports its expiry so
// callers can persist a matching record.
func (j *Manager) CreateRefreshTokenWithExpiry() (string, time.Time, error) {
	now := j.config.Now()
	expiresAt := jwt.NewNumericDate(now.Add(j.config.RefreshTTL))
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: expiresAt,
		},
	}

	token, err := jwt.NewWithClaims(j.method, claims).SignedString(j.config.RefreshKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt.Time, nil
}

func resolveMethod(m SigningMethod) (jwt.SigningMethod, int, error) {
	switch m {
	case MethodHS256:
		return jwt.SigningMethodHS256, 32, nil
	case MethodHS384:
		return jwt.SigningMethodHS384, 48, nil
	case MethodHS512:
		return jwt.SigningMethodHS512, 64, nil
	default:
		return nil, 0, errors.New("unsupported signing method")
	}
}

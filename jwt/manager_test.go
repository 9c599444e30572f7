package jwt

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	unix atomic.Int64
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.unix.Store(t.Unix())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(c.unix.Load(), 0) }
func (c *fakeClock) Advance(d time.Duration) { c.unix.Add(int64(d / time.Second)) }

func TestAccessRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)
	token, err := m.CreateAccessToken(Identity{AccountID: 7, Email: "a@x.com", Role: "USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", token)
	}

	claims, err := m.VerifyAccess(token)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != "7" || claims.UserID != 7 || claims.Email != "a@x.com" || claims.Role != "USER" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "tokenauth-test" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 5*time.Minute {
		t.Fatalf("expected 5m lifetime, got %v", ttl)
	}
}

func TestRoundTripAllMethods(t *testing.T) {
	long := []byte(strings.Repeat("a", 64))
	longRefresh := []byte(strings.Repeat("b", 64))
	for _, method := range []SigningMethod{MethodHS256, MethodHS384, MethodHS512} {
		m := newTestManager(t, func(c *Config) {
			c.SigningMethod = method
			c.AccessKey = long
			c.RefreshKey = longRefresh
		})
		access, err := m.CreateAccessToken(Identity{AccountID: 1, Email: "a@x.com", Role: "USER"})
		if err != nil {
			t.Fatalf("%s create access: %v", method, err)
		}
		if _, err := m.VerifyAccess(access); err != nil {
			t.Fatalf("%s verify access: %v", method, err)
		}
		refresh, err := m.CreateRefreshToken()
		if err != nil {
			t.Fatalf("%s create refresh: %v", method, err)
		}
		if !m.VerifyRefresh(refresh) {
			t.Fatalf("%s expected refresh token to verify", method)
		}
	}
}

func TestKeyDomainSeparation(t *testing.T) {
	m := newTestManager(t, nil)
	access, err := m.CreateAccessToken(Identity{AccountID: 1, Email: "a@x.com", Role: "USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	refresh, err := m.CreateRefreshToken()
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}

	if m.VerifyRefresh(access) {
		t.Fatal("access token must not verify as refresh token")
	}
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("refresh token must not verify as access token, got %v", err)
	}
}

func TestExpiredAccessIsNeverMalformed(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := newTestManager(t, func(c *Config) { c.Now = clock.Now })

	token, err := m.CreateAccessToken(Identity{AccountID: 7, Email: "a@x.com", Role: "USER"})
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	clock.Advance(6 * time.Minute)

	_, err = m.VerifyAccess(token)
	if !errors.Is(err, ErrAccessTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if errors.Is(err, ErrMalformedToken) {
		t.Fatal("expired token must not be classified as malformed")
	}
}

func TestExpiredRefreshClassification(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := newTestManager(t, func(c *Config) { c.Now = clock.Now })

	token, exp, err := m.CreateRefreshTokenWithExpiry()
	if err != nil {
		t.Fatalf("create refresh: %v", err)
	}
	if got := exp.Sub(clock.Now()); got != time.Hour {
		t.Fatalf("expected refresh expiry one hour out, got %v", got)
	}
	if !m.VerifyRefresh(token) {
		t.Fatal("expected fresh refresh token to verify")
	}

	clock.Advance(2 * time.Hour)
	if m.VerifyRefresh(token) {
		t.Fatal("expected expired refresh token to fail verification")
	}
	if _, err := m.ParseRefresh(token); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired, got %v", err)
	}
}

func TestMissingTokenClassification(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.VerifyAccess(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := m.ParseRefresh(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token, got %v", err)
	}
	if _, err := m.VerifyAccess("garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected malformed token, got %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := newTestManager(t, nil)
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		token, err := m.CreateRefreshToken()
		if err != nil {
			t.Fatalf("create refresh: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatal("refresh tokens minted in the same second must differ")
		}
		seen[token] = struct{}{}
	}
}

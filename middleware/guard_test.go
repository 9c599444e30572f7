package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newEngine(t *testing.T) (*tokenauth.Engine, *clock) {
	t.Helper()
	cfg := tokenauth.DefaultConfig()
	cfg.JWT.AccessKey = []byte("access-signing-key-0123456789abcdef")
	cfg.JWT.RefreshKey = []byte("refresh-signing-key-0123456789abcdef")
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	engine, err := tokenauth.New().WithConfig(cfg).WithClock(c.Now).Build()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Close)
	return engine, c
}

func issue(t *testing.T, engine *tokenauth.Engine, role string) tokenauth.TokenPair {
	t.Helper()
	pair, err := engine.IssueTokens(context.Background(), tokenauth.Principal{AccountID: 7, Email: "a@x.com", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return pair
}

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(res.Principal.Email))
	})
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuardAcceptsValidToken(t *testing.T) {
	engine, _ := newEngine(t)
	pair := issue(t, engine, "USER")

	rec := serve(Guard(engine)(echoPrincipal()), "Bearer "+pair.AccessToken)
	if rec.Code != http.StatusOK || rec.Body.String() != "a@x.com" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestGuardRejections(t *testing.T) {
	engine, c := newEngine(t)
	pair := issue(t, engine, "USER")

	cases := []struct {
		name  string
		authz string
		code  tokenauth.ErrorCode
		setup func()
	}{
		{name: "missing header", authz: "", code: tokenauth.CodeTokenNotFound},
		{name: "not bearer", authz: "Basic abc", code: tokenauth.CodeTokenNotFound},
		{name: "garbage", authz: "Bearer garbage", code: tokenauth.CodeTokenModulated},
		{name: "refresh token", authz: "Bearer " + pair.RefreshToken, code: tokenauth.CodeTokenModulated},
		{name: "expired", authz: "Bearer " + pair.AccessToken, code: tokenauth.CodeAccessTokenExpired, setup: func() {
			c.now = c.now.Add(time.Hour)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				tc.setup()
			}
			rec := serve(Guard(engine)(echoPrincipal()), tc.authz)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if got := rec.Header().Get(ErrorCodeHeader); got != string(tc.code) {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
		})
	}
}

func TestGuardNilValidator(t *testing.T) {
	rec := serve(Guard(nil)(echoPrincipal()), "Bearer x")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing engine, got %d", rec.Code)
	}
}

func TestOptional(t *testing.T) {
	engine, _ := newEngine(t)
	pair := issue(t, engine, "USER")
	h := Optional(engine)(echoPrincipal())

	if rec := serve(h, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("anonymous request should pass through, got %d", rec.Code)
	}
	if rec := serve(h, "Bearer "+pair.AccessToken); rec.Body.String() != "a@x.com" {
		t.Fatalf("expected principal, got %q", rec.Body.String())
	}
	if rec := serve(h, "Bearer garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token must be rejected, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, _ := newEngine(t)
	user := issue(t, engine, "USER")
	admin := issue(t, engine, "ADMIN")
	h := RequireRole(engine, "ADMIN")(echoPrincipal())

	if rec := serve(h, "Bearer "+admin.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("admin should pass, got %d", rec.Code)
	}
	if rec := serve(h, "Bearer "+user.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("user should be forbidden, got %d", rec.Code)
	}
	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous should be unauthorized, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := bearerToken("bearer abc"); !ok || tok != "abc" {
		t.Fatalf("scheme should be case-insensitive, got %q %v", tok, ok)
	}
	if _, ok := bearerToken("Bearer   "); ok {
		t.Fatal("blank token must be rejected")
	}
	if _, ok := bearerToken("Bear"); ok {
		t.Fatal("short header must be rejected")
	}
}

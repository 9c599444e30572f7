package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/middleware"
)

type server struct {
	engine   *tokenauth.Engine
	accounts map[string]devAccount
	metrics  http.Handler
	logger   *slog.Logger
}

type tokenRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Rotated      bool   `json:"rotated"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Number  int    `json:"number"`
	Message string `json:"message"`
}

type meResponse struct {
	AccountID int64  `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

func newServer(engine *tokenauth.Engine, accounts []devAccount, metrics http.Handler, logger *slog.Logger) *server {
	s := &server{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
	if len(accounts) > 0 {
		s.accounts = make(map[string]devAccount, len(accounts))
		for _, a := range accounts {
			s.accounts[strings.ToLower(a.Email)] = a
		}
	}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.Handle("GET /api/me", middleware.Guard(s.engine)(http.HandlerFunc(s.handleMe)))
	if s.accounts != nil {
		mux.HandleFunc("POST /api/dev/login", s.handleDevLogin)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return withClientIP(mux)
}

func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(tokenauth.WithClientIP(r.Context(), ip)))
	})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, tokenauth.ErrMissingToken)
		return
	}
	pair, err := s.engine.Refresh(r.Context(), req.Refresh)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Rotated:      pair.Rotated,
	})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, tokenauth.ErrMissingToken)
		return
	}
	if err := s.engine.Logout(r.Context(), req.Refresh); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := s.engine.Ping(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "store_latency_ms": latency.Milliseconds()})
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		s.writeError(w, tokenauth.ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		AccountID: res.Principal.AccountID,
		Email:     res.Principal.Email,
		Role:      res.Principal.Role,
		ExpiresAt: res.ExpiresAt.Unix(),
	})
}

func (s *server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	acct, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || subtle.ConstantTimeCompare([]byte(acct.Password), []byte(req.Password)) != 1 {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	pair, err := s.engine.IssueTokens(r.Context(), tokenauth.Principal{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Rotated:      pair.Rotated,
	})
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	code := tokenauth.CodeOf(err)
	status := http.StatusUnauthorized
	switch code {
	case tokenauth.CodeRateLimited:
		status = http.StatusTooManyRequests
	case tokenauth.CodeInternal:
		status = http.StatusInternalServerError
		s.logger.Error("request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorResponse{
		Code:    string(code),
		Number:  code.Number(),
		Message: code.Message(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10))
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

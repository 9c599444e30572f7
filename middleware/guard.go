package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/tokenauth"
)

// ErrorCodeHeader carries the tokenauth error code on rejected requests.
const ErrorCodeHeader = "X-Auth-Error-Code"

// AccessValidator is the part of tokenauth.Engine the guards need.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*tokenauth.AuthResult, error)
}

// AuthResultFromContext returns the result attached by a guard.
func AuthResultFromContext(ctx context.Context) (*tokenauth.AuthResult, bool) {
	return tokenauth.AuthResultFromContext(ctx)
}

// Guard rejects requests without a valid bearer access token with 401 and
// attaches the verified result to the request context otherwise.
func Guard(v AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := authenticate(r, v)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}

			ctx := tokenauth.WithAuthResult(r.Context(), res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, v AccessValidator) (*tokenauth.AuthResult, error) {
	if v == nil {
		return nil, tokenauth.ErrEngineNotReady
	}
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, tokenauth.ErrMissingToken
	}
	return v.ValidateAccess(r.Context(), token)
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	code := tokenauth.CodeOf(err)
	w.Header().Set(ErrorCodeHeader, string(code))
	w.Header().Set("X-Auth-Error-Number", strconv.Itoa(code.Number()))
	status := http.StatusUnauthorized
	if code == tokenauth.CodeInternal {
		status = http.StatusInternalServerError
	}
	http.Error(w, code.Message(), status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

package middleware

import (
	"net/http"

	"github.com/MrEthical07/tokenauth"
)

// Optional attaches the verified result when the request carries a valid
// bearer token and passes every request through. A present but invalid token
// is still rejected, so clients learn that their token expired.
func Optional(v AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			res, err := authenticate(r, v)
			if err != nil {
				writeUnauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(tokenauth.WithAuthResult(r.Context(), res)))
		})
	}
}

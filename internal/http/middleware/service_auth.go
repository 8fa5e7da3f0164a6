package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/streamvault/mediagate/internal/httputil"
)

// ServiceAuth guards endpoints with a static bearer API key. When key is
// empty the check is disabled and requests pass through.
func ServiceAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				httputil.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

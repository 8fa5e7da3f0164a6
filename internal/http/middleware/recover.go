package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/streamvault/mediagate/internal/httputil"
)

// Recover catches panics in handlers, logs them and returns a 500.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"method", r.Method,
						"stack", string(debug.Stack()),
					)
					httputil.Error(w, http.StatusInternalServerError, "BACKEND_UNAVAILABLE", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

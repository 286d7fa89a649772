package middleware

import (
	"log/slog"
	"net/http"

	"github.com/garrettladley/payrelay/internal/xcontext"
	"github.com/garrettladley/payrelay/internal/xslog"
)

// Logger injects a logger tagged with the request id and route into the request context,
// so relay and checkout logs can be joined to the access log.
// Must run AFTER RequestID middleware.
func Logger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(xslog.RequestPath(r))
			if id, ok := xcontext.GetRequestID(r.Context()); ok {
				logger = logger.With(xslog.RequestID(id))
			}
			ctx := xslog.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

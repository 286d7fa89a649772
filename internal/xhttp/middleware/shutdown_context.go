package middleware

import (
	"context"
	"net/http"

	"github.com/garrettladley/payrelay/internal/xcontext"
)

// ShutdownContext lets handlers tell a server shutdown from a client hang-up.
// base is the server's BaseContext; a nil base disables the marker.
func ShutdownContext(base context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if base == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(xcontext.WithShutdown(r.Context(), base)))
		})
	}
}

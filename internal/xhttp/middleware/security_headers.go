package middleware

import (
	"net/http"

	"github.com/garrettladley/payrelay/internal/xhttp"
)

// SecurityHeaders marks every response as a non-cacheable API response.
// Checkout session URLs and relay outcomes must never be served from a cache.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(xhttp.XContentTypeOpts, "nosniff")
		h.Set(xhttp.XFrameOpts, "DENY")
		h.Set(xhttp.ReferrerPolicy, "no-referrer")
		h.Set(xhttp.CacheControl, "no-store")
		next.ServeHTTP(w, r)
	})
}

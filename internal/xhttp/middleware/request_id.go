package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/garrettladley/payrelay/internal/xcontext"
	"github.com/garrettladley/payrelay/internal/xhttp"
)

const maxInboundRequestID = 128

type requestIDConfig struct {
	newID        func() string
	trustInbound bool
}

type RequestIDOption func(*requestIDConfig)

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) { c.newID = fn }
}

// TrustInboundRequestID reuses a well-formed X-Request-ID set by a proxy in
// front of the relay so its access logs and ours share an id.
func TrustInboundRequestID() RequestIDOption {
	return func(c *requestIDConfig) { c.trustInbound = true }
}

func RequestID(opts ...RequestIDOption) func(http.Handler) http.Handler {
	cfg := requestIDConfig{newID: uuid.NewString}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cfg.trustInbound {
				id = inboundRequestID(r)
			}
			if id == "" {
				id = cfg.newID()
			}
			xhttp.SetHeaderRequestID(w, id)
			next.ServeHTTP(w, r.WithContext(xcontext.WithRequestID(r.Context(), id)))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	id := r.Header.Get(xhttp.XRequestID)
	if id == "" || len(id) > maxInboundRequestID {
		return ""
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return ""
		}
	}
	return id
}

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/payrelay/internal/xcontext"
	"github.com/garrettladley/payrelay/internal/xhttp"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []RequestIDOption
		inbound string
		want    string
	}{
		{name: "generated", want: "gen"},
		{name: "inbound ignored by default", inbound: "lb-123", want: "gen"},
		{name: "inbound trusted", opts: []RequestIDOption{TrustInboundRequestID()}, inbound: "lb-123", want: "lb-123"},
		{name: "malformed inbound replaced", opts: []RequestIDOption{TrustInboundRequestID()}, inbound: "a b\nc", want: "gen"},
		{name: "oversized inbound replaced", opts: []RequestIDOption{TrustInboundRequestID()}, inbound: strings.Repeat("x", 200), want: "gen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := append([]RequestIDOption{WithIDGenerator(func() string { return "gen" })}, tt.opts...)
			var seen string
			h := RequestID(opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen, _ = xcontext.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/payments/webhook", nil)
			if tt.inbound != "" {
				req.Header.Set(xhttp.XRequestID, tt.inbound)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen != tt.want {
				t.Errorf("context request id = %q, want %q", seen, tt.want)
			}
			if got := rec.Header().Get(xhttp.XRequestID); got != tt.want {
				t.Errorf("response %s = %q, want %q", xhttp.XRequestID, got, tt.want)
			}
		})
	}
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    int
		wantLevel string
	}{
		{status: http.StatusOK, wantLevel: "INFO"},
		{status: http.StatusBadRequest, wantLevel: "WARN"},
		{status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			h := Chain(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte("ok"))
				}),
				Logger(logger),
				Logging,
			)
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/payments/webhook", nil))

			var record struct {
				Level    string `json:"level"`
				Bytes    int64  `json:"bytes"`
				Response struct {
					Status int `json:"status"`
				} `json:"response"`
			}
			if err := go_json.Unmarshal(buf.Bytes(), &record); err != nil {
				t.Fatalf("Unmarshal(%q) error = %v", buf.String(), err)
			}
			if record.Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", record.Level, tt.wantLevel)
			}
			if record.Bytes != 2 {
				t.Errorf("bytes = %d, want 2", record.Bytes)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if want := []string{"outer", "inner", "handler"}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/webhook", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/session", nil))

	want := map[string]string{
		xhttp.XContentTypeOpts: "nosniff",
		xhttp.XFrameOpts:       "DENY",
		xhttp.ReferrerPolicy:   "no-referrer",
		xhttp.CacheControl:     "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garrettladley/payrelay/internal/storage"
)

type fakeLimiter struct {
	result storage.RateLimitResult
	err    error
}

func (f fakeLimiter) Allow(context.Context, string) (storage.RateLimitResult, error) {
	return f.result, f.err
}

func TestRateLimitWithBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		limiter        fakeLimiter
		wantStatus     int
		wantRetryAfter string
	}{
		{
			name:       "allowed",
			limiter:    fakeLimiter{result: storage.RateLimitResult{Allowed: true}},
			wantStatus: http.StatusNoContent,
		},
		{
			name:           "limited",
			limiter:        fakeLimiter{result: storage.RateLimitResult{RetryAfter: 3 * time.Second}},
			wantStatus:     http.StatusTooManyRequests,
			wantRetryAfter: "3",
		},
		{
			name:       "backend error",
			limiter:    fakeLimiter{err: errors.New("redis down")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			h := RateLimitWithBackend(tt.limiter)(next)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/session", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryAfter)
			}
		})
	}
}

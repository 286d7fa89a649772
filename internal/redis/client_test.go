package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNew(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		cfg      Config
		wantName string
	}{
		{name: "default client name", cfg: Config{URL: "redis://" + mr.Addr()}, wantName: defaultClientName},
		{name: "configured client name", cfg: Config{URL: "redis://" + mr.Addr(), ClientName: "payrelay-eu"}, wantName: "payrelay-eu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := New(t.Context(), tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			t.Cleanup(func() { _ = client.Close() })

			if got := client.Options().ClientName; got != tt.wantName {
				t.Errorf("ClientName = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "empty url", cfg: Config{}, wantErr: ErrNoURL},
		{name: "bad scheme", cfg: Config{URL: "http://localhost:6379"}},
		{name: "unreachable", cfg: Config{URL: "redis://127.0.0.1:1", PingTimeout: 200 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := New(t.Context(), tt.cfg)
			if err == nil {
				_ = client.Close()
				t.Fatal("New() error = nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

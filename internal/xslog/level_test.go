package xslog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: " WARN ", want: LevelWarn},
		{in: "Error", want: LevelError},
		{in: "trace", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warn")
	t.Setenv(EnvFormat, "text")

	var buf bytes.Buffer
	logger := NewLoggerFromEnv(&buf)
	logger.Info("dropped")
	logger.Warn("kept", slog.String("event_id", "evt_1"))

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record logged at warn level: %q", out)
	}
	if !strings.Contains(out, "event_id=evt_1") {
		t.Errorf("text handler output = %q, want key=value attrs", out)
	}
}

func TestNewLoggerFromEnvFallsBack(t *testing.T) {
	t.Setenv(EnvLevel, "loud")
	t.Setenv(EnvFormat, "xml")

	var buf bytes.Buffer
	NewLoggerFromEnv(&buf).Info("relayed")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("output = %q, want json", buf.String())
	}
}

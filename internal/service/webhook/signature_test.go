package webhook

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func eventBody(id, eventType, object string) []byte {
	return fmt.Appendf(nil, `{"id":%q,"object":"event","type":%q,"created":%d,"data":{"object":%s}}`,
		id, eventType, testNow.Add(-time.Minute).Unix(), object)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	body := eventBody("evt_1", "charge.succeeded", `{"id":"ch_1"}`)

	tests := []struct {
		name       string
		body       []byte
		header     string
		secrets    []string
		wantReason Reason
	}{
		{
			name:    "valid",
			body:    body,
			header:  Sign(body, testSecret, testNow),
			secrets: []string{testSecret},
		},
		{
			name:    "edge of past tolerance",
			body:    body,
			header:  Sign(body, testSecret, testNow.Add(-DefaultTolerance)),
			secrets: []string{testSecret},
		},
		{
			name:    "rotated secret",
			body:    body,
			header:  Sign(body, "whsec_new", testNow),
			secrets: []string{testSecret, "whsec_new"},
		},
		{
			name:    "one of several signatures matches",
			body:    body,
			header:  Sign(body, testSecret, testNow) + ",v1=" + "00ff",
			secrets: []string{testSecret},
		},
		{
			name:       "tampered body",
			body:       eventBody("evt_2", "charge.succeeded", `{"id":"ch_1"}`),
			header:     Sign(body, testSecret, testNow),
			secrets:    []string{testSecret},
			wantReason: ReasonDigestMismatch,
		},
		{
			name:       "wrong secret",
			body:       body,
			header:     Sign(body, "whsec_other", testNow),
			secrets:    []string{testSecret},
			wantReason: ReasonDigestMismatch,
		},
		{
			name:       "stale timestamp",
			body:       body,
			header:     Sign(body, testSecret, testNow.Add(-DefaultTolerance-time.Second)),
			secrets:    []string{testSecret},
			wantReason: ReasonStaleTimestamp,
		},
		{
			name:       "future timestamp",
			body:       body,
			header:     Sign(body, testSecret, testNow.Add(DefaultTolerance+time.Second)),
			secrets:    []string{testSecret},
			wantReason: ReasonStaleTimestamp,
		},
		{
			name:       "stale and forged reports digest",
			body:       body,
			header:     Sign(body, "whsec_other", testNow.Add(-time.Hour)),
			secrets:    []string{testSecret},
			wantReason: ReasonDigestMismatch,
		},
		{
			name:       "empty header",
			body:       body,
			secrets:    []string{testSecret},
			wantReason: ReasonMalformedHeader,
		},
		{
			name:       "missing timestamp",
			body:       body,
			header:     "v1=00ff",
			secrets:    []string{testSecret},
			wantReason: ReasonMalformedHeader,
		},
		{
			name:       "non integer timestamp",
			body:       body,
			header:     "t=yesterday,v1=00ff",
			secrets:    []string{testSecret},
			wantReason: ReasonMalformedHeader,
		},
		{
			name:       "no v1 signature",
			body:       body,
			header:     fmt.Sprintf("t=%d,v0=00ff", testNow.Unix()),
			secrets:    []string{testSecret},
			wantReason: ReasonMalformedHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			evt, err := Verify(tt.body, tt.header, tt.secrets, DefaultTolerance, testNow)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				if evt.ID() != "evt_1" {
					t.Errorf("ID() = %q, want %q", evt.ID(), "evt_1")
				}
				if evt.Type() != "charge.succeeded" {
					t.Errorf("Type() = %q, want %q", evt.Type(), "charge.succeeded")
				}
				return
			}

			if !errors.Is(err, ErrVerification) {
				t.Fatalf("Verify() error = %v, want %v", err, ErrVerification)
			}
			var verr *VerificationError
			if !errors.As(err, &verr) {
				t.Fatalf("Verify() error = %T, want *VerificationError", err)
			}
			if verr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", verr.Reason, tt.wantReason)
			}
		})
	}
}

func TestVerifyAuthenticatedButMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte("hello")},
		{name: "empty id", body: eventBody("", "charge.succeeded", `{"id":"ch_1"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Verify(tt.body, Sign(tt.body, testSecret, testNow), []string{testSecret}, DefaultTolerance, testNow)
			if !errors.Is(err, ErrMalformedEventBody) {
				t.Fatalf("Verify() error = %v, want %v", err, ErrMalformedEventBody)
			}
			if errors.Is(err, ErrVerification) {
				t.Errorf("Verify() error = %v, authenticated body must not be a verification error", err)
			}
		})
	}
}

func TestVerifyOccurredAt(t *testing.T) {
	t.Parallel()

	body := eventBody("evt_1", "charge.succeeded", `{"id":"ch_1"}`)
	evt, err := Verify(body, Sign(body, testSecret, testNow), []string{testSecret}, DefaultTolerance, testNow)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if want := testNow.Add(-time.Minute); !evt.OccurredAt().Equal(want) {
		t.Errorf("OccurredAt() = %v, want %v", evt.OccurredAt(), want)
	}
}

func TestVerifyNonPositiveToleranceUsesDefault(t *testing.T) {
	t.Parallel()

	body := eventBody("evt_1", "charge.succeeded", `{"id":"ch_1"}`)

	for _, tolerance := range []time.Duration{0, -time.Second} {
		t.Run(tolerance.String(), func(t *testing.T) {
			t.Parallel()

			old := Sign(body, testSecret, testNow.Add(-365*24*time.Hour))
			_, err := Verify(body, old, []string{testSecret}, tolerance, testNow)
			var verr *VerificationError
			if !errors.As(err, &verr) || verr.Reason != ReasonStaleTimestamp {
				t.Fatalf("Verify() error = %v, want %s", err, ReasonStaleTimestamp)
			}

			fresh := Sign(body, testSecret, testNow.Add(-DefaultTolerance+time.Second))
			if _, err := Verify(body, fresh, []string{testSecret}, tolerance, testNow); err != nil {
				t.Errorf("Verify() within default tolerance error = %v", err)
			}
		})
	}
}

package webhook

import (
	"context"
	"errors"
	"strings"
	"time"
)

const SignatureHeader = "Stripe-Signature"

var (
	ErrVerification       = errors.New("webhook verification failed")
	ErrMalformedEventBody = errors.New("malformed event body")
	ErrIgnored            = errors.New("event type ignored")
	ErrTransient          = errors.New("transient relay failure")
)

// RawRequest is a single inbound delivery. Body must be the exact bytes the provider sent.
type RawRequest struct {
	Body       []byte
	Headers    map[string]string
	ReceivedAt time.Time
}

// Header returns the value of the named header, matched case-insensitively.
func (r RawRequest) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

type State string

const (
	StateReceived     State = "received"
	StateVerified     State = "verified"
	StateNormalized   State = "normalized"
	StateDeduplicated State = "deduplicated"
	StatePublished    State = "published"
	StateAcknowledged State = "acknowledged"
	StateRejected     State = "rejected"
	StateDropped      State = "dropped"
)

type Outcome string

const (
	OutcomeRejected     Outcome = "rejected"
	OutcomeDropped      Outcome = "dropped"
	OutcomeMalformed    Outcome = "malformed"
	OutcomeDeduplicated Outcome = "deduplicated"
	OutcomeRelayed      Outcome = "relayed"
	OutcomeRetry        Outcome = "retry"
)

// Retry reports whether the provider should redeliver.
func (o Outcome) Retry() bool { return o == OutcomeRetry }

// Permanent reports whether redelivery can never succeed.
func (o Outcome) Permanent() bool { return o == OutcomeRejected }

// Result describes where a delivery ended up.
type Result struct {
	State     State
	Outcome   Outcome
	EventID   string
	EventType string
	Topic     string
}

// Recorder receives relay observability signals.
type Recorder interface {
	RecordOutcome(outcome, eventType string)
	ObservePublish(topic string, d time.Duration, err error)
}

type NopRecorder struct{}

func (NopRecorder) RecordOutcome(string, string)                {}
func (NopRecorder) ObservePublish(string, time.Duration, error) {}

type Service interface {
	// Process verifies, normalizes, deduplicates and publishes a delivery.
	// The returned error is non-nil only for rejected deliveries (wrapping ErrVerification)
	// and deliveries the provider should retry (wrapping ErrTransient).
	Process(ctx context.Context, req RawRequest) (Result, error)
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v79"
)

const DefaultTolerance = 5 * time.Minute

const (
	schemeTimestamp = "t"
	schemeV1        = "v1"
)

type Reason string

const (
	ReasonMalformedHeader Reason = "malformed_header"
	ReasonDigestMismatch  Reason = "digest_mismatch"
	ReasonStaleTimestamp  Reason = "stale_timestamp"
)

type VerificationError struct {
	Reason Reason
	Detail string
}

func (e *VerificationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", ErrVerification, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s: %s", ErrVerification, e.Reason)
}

func (e *VerificationError) Is(target error) bool { return target == ErrVerification }

func verificationError(reason Reason, detail string) error {
	return &VerificationError{Reason: reason, Detail: detail}
}

// VerifiedEvent is an authenticated provider event. It can only be obtained from Verify.
type VerifiedEvent struct {
	id         string
	eventType  string
	occurredAt time.Time
	object     []byte
}

func (e VerifiedEvent) ID() string            { return e.id }
func (e VerifiedEvent) Type() string          { return e.eventType }
func (e VerifiedEvent) OccurredAt() time.Time { return e.occurredAt }

// Object returns the raw data.object payload.
func (e VerifiedEvent) Object() []byte { return e.object }

type signedHeader struct {
	timestamp  time.Time
	signatures [][]byte
}

func parseHeader(header string) (signedHeader, error) {
	var (
		h     signedHeader
		rawTS string
	)
	if strings.TrimSpace(header) == "" {
		return h, verificationError(ReasonMalformedHeader, "missing signature header")
	}

	for pair := range strings.SplitSeq(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		switch key {
		case schemeTimestamp:
			rawTS = value
		case schemeV1:
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			h.signatures = append(h.signatures, sig)
		}
	}

	if rawTS == "" {
		return h, verificationError(ReasonMalformedHeader, "missing timestamp")
	}
	secs, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return h, verificationError(ReasonMalformedHeader, "invalid timestamp")
	}
	h.timestamp = time.Unix(secs, 0)

	if len(h.signatures) == 0 {
		return h, verificationError(ReasonMalformedHeader, "no v1 signature")
	}
	return h, nil
}

func computeSignature(t time.Time, body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(t.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign returns a signature header for body as the provider would send it.
func Sign(body []byte, secret string, t time.Time) string {
	sig := computeSignature(t, body, secret)
	return fmt.Sprintf("%s=%d,%s=%s", schemeTimestamp, t.Unix(), schemeV1, hex.EncodeToString(sig))
}

// Verify authenticates body against header using any of secrets.
// A non-positive tolerance means DefaultTolerance; the timestamp is always checked.
// The digest is checked before the timestamp, so a forged payload always reports
// ReasonDigestMismatch. An authenticated body that is not an event envelope yields
// a *MalformedEventError rather than a verification error.
func Verify(body []byte, header string, secrets []string, tolerance time.Duration, now time.Time) (VerifiedEvent, error) {
	h, err := parseHeader(header)
	if err != nil {
		return VerifiedEvent{}, err
	}

	if !matchesAny(h, body, secrets) {
		return VerifiedEvent{}, verificationError(ReasonDigestMismatch, "")
	}

	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if skew := now.Sub(h.timestamp); skew > tolerance || skew < -tolerance {
		return VerifiedEvent{}, verificationError(ReasonStaleTimestamp, "timestamp outside tolerance")
	}

	return decodeEnvelope(body)
}

func matchesAny(h signedHeader, body []byte, secrets []string) bool {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		expected := computeSignature(h.timestamp, body, secret)
		for _, sig := range h.signatures {
			if hmac.Equal(expected, sig) {
				return true
			}
		}
	}
	return false
}

func decodeEnvelope(body []byte) (VerifiedEvent, error) {
	var evt stripe.Event
	if err := go_json.Unmarshal(body, &evt); err != nil {
		return VerifiedEvent{}, malformed("", "", fmt.Errorf("failed to decode event envelope: %w", err))
	}
	if strings.TrimSpace(evt.ID) == "" {
		return VerifiedEvent{}, malformed("", string(evt.Type), errors.New("event id is empty"))
	}

	v := VerifiedEvent{
		id:         evt.ID,
		eventType:  string(evt.Type),
		occurredAt: time.Unix(evt.Created, 0).UTC(),
	}
	if evt.Data != nil {
		v.object = evt.Data.Raw
	}
	return v, nil
}

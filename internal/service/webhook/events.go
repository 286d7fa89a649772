package webhook

import (
	"errors"
	"fmt"
	"strings"

	go_json "github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v79"
)

const orderIDMetadataKey = "orderId"

const (
	TopicPaymentSucceeded = "payment.succeeded"
	TopicPaymentFailed    = "payment.failed"
	TopicCheckoutExpired  = "payment.checkout_expired"
)

// DomainEvent is the closed set of events relayed to the bus.
type DomainEvent interface {
	domainEvent()
	Topic() string
}

type PaymentSucceeded struct {
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	ReceiptURL string `json:"receiptUrl"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
}

func (PaymentSucceeded) domainEvent()  {}
func (PaymentSucceeded) Topic() string { return TopicPaymentSucceeded }

type PaymentFailed struct {
	PaymentID      string `json:"paymentId"`
	OrderID        string `json:"orderId"`
	FailureCode    string `json:"failureCode,omitempty"`
	FailureMessage string `json:"failureMessage,omitempty"`
}

func (PaymentFailed) domainEvent()  {}
func (PaymentFailed) Topic() string { return TopicPaymentFailed }

type CheckoutSessionExpired struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
}

func (CheckoutSessionExpired) domainEvent()  {}
func (CheckoutSessionExpired) Topic() string { return TopicCheckoutExpired }

// MalformedEventError reports a mapped event whose payload cannot be extracted.
type MalformedEventError struct {
	EventID   string
	EventType string
	Err       error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrMalformedEventBody, e.EventType, e.EventID, e.Err)
}

func (e *MalformedEventError) Unwrap() []error { return []error{ErrMalformedEventBody, e.Err} }

func malformed(eventID, eventType string, err error) error {
	return &MalformedEventError{EventID: eventID, EventType: eventType, Err: err}
}

type extractor func(object []byte) (DomainEvent, error)

var extractors = map[stripe.EventType]extractor{
	stripe.EventTypeChargeSucceeded:        extractChargeSucceeded,
	stripe.EventTypeChargeFailed:           extractChargeFailed,
	stripe.EventTypeCheckoutSessionExpired: extractCheckoutSessionExpired,
}

// Mapped reports whether eventType is relayed.
func Mapped(eventType string) bool {
	_, ok := extractors[stripe.EventType(eventType)]
	return ok
}

// Normalize maps a verified event to its domain event.
// Returns ErrIgnored for unmapped event types and a *MalformedEventError
// when a mapped event lacks a required field.
func Normalize(evt VerifiedEvent) (DomainEvent, error) {
	extract, ok := extractors[stripe.EventType(evt.Type())]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIgnored, evt.Type())
	}

	if len(evt.Object()) == 0 {
		return nil, malformed(evt.ID(), evt.Type(), errors.New("missing data.object"))
	}

	domain, err := extract(evt.Object())
	if err != nil {
		return nil, malformed(evt.ID(), evt.Type(), err)
	}
	return domain, nil
}

func orderID(e DomainEvent) string {
	switch e := e.(type) {
	case PaymentSucceeded:
		return e.OrderID
	case PaymentFailed:
		return e.OrderID
	case CheckoutSessionExpired:
		return e.OrderID
	default:
		return ""
	}
}

type field struct {
	name  string
	value string
}

type missingFieldsError []string

func (m missingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(m, ", ")
}

func require(fields ...field) error {
	var missing missingFieldsError
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return missing
	}
	return nil
}

func decodeCharge(object []byte) (stripe.Charge, error) {
	var ch stripe.Charge
	if err := go_json.Unmarshal(object, &ch); err != nil {
		return ch, fmt.Errorf("failed to decode charge: %w", err)
	}
	return ch, nil
}

func extractChargeSucceeded(object []byte) (DomainEvent, error) {
	ch, err := decodeCharge(object)
	if err != nil {
		return nil, err
	}

	e := PaymentSucceeded{
		PaymentID:  ch.ID,
		OrderID:    ch.Metadata[orderIDMetadataKey],
		ReceiptURL: ch.ReceiptURL,
		Amount:     ch.Amount,
		Currency:   string(ch.Currency),
	}
	if err := require(
		field{"id", e.PaymentID},
		field{"metadata.orderId", e.OrderID},
		field{"receipt_url", e.ReceiptURL},
	); err != nil {
		return nil, err
	}
	return e, nil
}

func extractChargeFailed(object []byte) (DomainEvent, error) {
	ch, err := decodeCharge(object)
	if err != nil {
		return nil, err
	}

	e := PaymentFailed{
		PaymentID:      ch.ID,
		OrderID:        ch.Metadata[orderIDMetadataKey],
		FailureCode:    ch.FailureCode,
		FailureMessage: ch.FailureMessage,
	}
	if err := require(
		field{"id", e.PaymentID},
		field{"metadata.orderId", e.OrderID},
	); err != nil {
		return nil, err
	}
	return e, nil
}

func extractCheckoutSessionExpired(object []byte) (DomainEvent, error) {
	var s stripe.CheckoutSession
	if err := go_json.Unmarshal(object, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	e := CheckoutSessionExpired{
		SessionID: s.ID,
		OrderID:   s.Metadata[orderIDMetadataKey],
	}
	if err := require(
		field{"id", e.SessionID},
		field{"metadata.orderId", e.OrderID},
	); err != nil {
		return nil, err
	}
	return e, nil
}

package webhook

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		eventType string
		object    string
		want      DomainEvent
		wantErr   error
	}{
		{
			name:      "charge succeeded",
			eventType: "charge.succeeded",
			object:    `{"id":"ch_1","object":"charge","amount":2000,"currency":"usd","receipt_url":"https://pay/r1","metadata":{"orderId":"ord_42"}}`,
			want: PaymentSucceeded{
				PaymentID:  "ch_1",
				OrderID:    "ord_42",
				ReceiptURL: "https://pay/r1",
				Amount:     2000,
				Currency:   "usd",
			},
		},
		{
			name:      "charge failed",
			eventType: "charge.failed",
			object:    `{"id":"ch_2","object":"charge","failure_code":"card_declined","failure_message":"Your card was declined.","metadata":{"orderId":"ord_43"}}`,
			want: PaymentFailed{
				PaymentID:      "ch_2",
				OrderID:        "ord_43",
				FailureCode:    "card_declined",
				FailureMessage: "Your card was declined.",
			},
		},
		{
			name:      "checkout session expired",
			eventType: "checkout.session.expired",
			object:    `{"id":"cs_1","object":"checkout.session","metadata":{"orderId":"ord_44"}}`,
			want:      CheckoutSessionExpired{SessionID: "cs_1", OrderID: "ord_44"},
		},
		{
			name:      "unmapped type",
			eventType: "customer.created",
			object:    `{"id":"cus_1"}`,
			wantErr:   ErrIgnored,
		},
		{
			name:      "unmapped type with garbage object",
			eventType: "invoice.paid",
			object:    `[]`,
			wantErr:   ErrIgnored,
		},
		{
			name:      "missing order id",
			eventType: "charge.succeeded",
			object:    `{"id":"ch_1","receipt_url":"https://pay/r1"}`,
			wantErr:   ErrMalformedEventBody,
		},
		{
			name:      "missing receipt url",
			eventType: "charge.succeeded",
			object:    `{"id":"ch_1","metadata":{"orderId":"ord_42"}}`,
			wantErr:   ErrMalformedEventBody,
		},
		{
			name:      "wrong shape",
			eventType: "charge.failed",
			object:    `{"id":"ch_1","metadata":"nope"}`,
			wantErr:   ErrMalformedEventBody,
		},
		{
			name:      "missing object",
			eventType: "checkout.session.expired",
			wantErr:   ErrMalformedEventBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			evt := VerifiedEvent{id: "evt_1", eventType: tt.eventType, object: []byte(tt.object)}
			got, err := Normalize(evt)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMalformedEventErrorFields(t *testing.T) {
	t.Parallel()

	evt := VerifiedEvent{id: "evt_9", eventType: "charge.failed", object: []byte(`{"id":"ch_9"}`)}
	_, err := Normalize(evt)

	var merr *MalformedEventError
	if !errors.As(err, &merr) {
		t.Fatalf("Normalize() error = %T, want *MalformedEventError", err)
	}
	if merr.EventID != "evt_9" || merr.EventType != "charge.failed" {
		t.Errorf("MalformedEventError = {%q, %q}, want {evt_9, charge.failed}", merr.EventID, merr.EventType)
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		event DomainEvent
		want  string
	}{
		{event: PaymentSucceeded{}, want: "payment.succeeded"},
		{event: PaymentFailed{}, want: "payment.failed"},
		{event: CheckoutSessionExpired{}, want: "payment.checkout_expired"},
	}
	for _, tt := range tests {
		if got := tt.event.Topic(); got != tt.want {
			t.Errorf("%T.Topic() = %q, want %q", tt.event, got, tt.want)
		}
	}
}

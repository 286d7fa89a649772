package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/payrelay/internal/client/stripeapi"
	"github.com/garrettladley/payrelay/internal/xerrors"
)

type fakeCreator struct {
	got stripeapi.CheckoutSessionParams
	err error
}

func (f *fakeCreator) CreateCheckoutSession(_ context.Context, p stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &stripeapi.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func validRequest() SessionRequest {
	return SessionRequest{
		Currency: "USD",
		OrderID:  "ord_42",
		Items: []Item{
			{Name: "T-shirt", Price: 19.99, Quantity: 2},
			{Name: "Sticker", Price: 0.1, Quantity: 1},
		},
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{}
	s := NewSessions(creator, "https://shop.example/success", "https://shop.example/cancel")

	got, err := s.CreateSession(t.Context(), validRequest())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	want := SessionResult{
		URL:        "https://checkout.stripe.com/c/pay/cs_1",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CreateSession() mismatch (-want +got):\n%s", diff)
	}

	wantParams := stripeapi.CheckoutSessionParams{
		Currency:   "usd",
		OrderID:    "ord_42",
		SuccessURL: "https://shop.example/success",
		CancelURL:  "https://shop.example/cancel",
		Items: []stripeapi.LineItem{
			{Name: "T-shirt", UnitAmount: 1999, Quantity: 2},
			{Name: "Sticker", UnitAmount: 10, Quantity: 1},
		},
	}
	if diff := cmp.Diff(wantParams, creator.got); diff != "" {
		t.Errorf("provider params mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateSessionProviderError(t *testing.T) {
	t.Parallel()

	s := NewSessions(&fakeCreator{err: errors.New("api down")}, "s", "c")

	_, err := s.CreateSession(t.Context(), validRequest())
	if !errors.Is(err, ErrProvider) {
		t.Errorf("CreateSession() error = %v, want %v", err, ErrProvider)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	t.Parallel()

	creator := &fakeCreator{}
	s := NewSessions(creator, "s", "c")

	_, err := s.CreateSession(t.Context(), SessionRequest{Currency: "dollars"})

	appErr := xerrors.As(err)
	if appErr == nil {
		t.Fatalf("CreateSession() error = %v, want *xerrors.Error", err)
	}
	if appErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", appErr.StatusCode, http.StatusUnprocessableEntity)
	}
	if creator.got.OrderID != "" {
		t.Error("provider called for invalid request")
	}
}

func TestSessionRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  SessionRequest
		want map[string]string
	}{
		{
			name: "valid",
			req:  validRequest(),
			want: map[string]string{},
		},
		{
			name: "empty",
			req:  SessionRequest{},
			want: map[string]string{
				"currency": "must be a three letter ISO currency code",
				"orderId":  "is required",
				"items":    "at least one item is required",
			},
		},
		{
			name: "bad item",
			req: SessionRequest{
				Currency: "eur",
				OrderID:  "ord_1",
				Items:    []Item{{Name: " ", Price: 0, Quantity: 0}},
			},
			want: map[string]string{
				"items[0].name":     "is required",
				"items[0].price":    "must be greater than zero",
				"items[0].quantity": "must be at least 1",
			},
		},
		{
			name: "numeric currency",
			req:  SessionRequest{Currency: "123", OrderID: "ord_1", Items: []Item{{Name: "x", Price: 1, Quantity: 1}}},
			want: map[string]string{"currency": "must be a three letter ISO currency code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, tt.req.Validate()); diff != "" {
				t.Errorf("Validate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

package checkout

import (
	"context"
	"errors"
)

// ErrProvider is returned for any failure reported by the payment provider.
var ErrProvider = errors.New("failed to create checkout session")

type SessionResult struct {
	URL        string `json:"url"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type Service interface {
	// CreateSession starts a hosted checkout session for an order.
	// Returns a validation error for invalid requests and ErrProvider when the provider fails.
	CreateSession(ctx context.Context, req SessionRequest) (SessionResult, error)
}

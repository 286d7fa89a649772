package stripeapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/garrettladley/payrelay/internal/xhttp"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	api *client.API
}

type clientConfig struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	retries    *int64
}

type Option func(*clientConfig)

func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithBaseURL points the API backend elsewhere, e.g. at a test server.
func WithBaseURL(url string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = url }
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = l }
}

func WithMaxNetworkRetries(n int64) Option {
	return func(cfg *clientConfig) { cfg.retries = stripe.Int64(n) }
}

// New builds an explicitly owned API client. Nothing touches stripe.Key or the
// package-level backends.
func New(secretKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(defaultTimeout)),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        cfg.httpClient,
		LeveledLogger:     &leveledLogger{logger: cfg.logger},
		MaxNetworkRetries: cfg.retries,
		EnableTelemetry:   stripe.Bool(false),
	}
	if cfg.baseURL != "" {
		backendCfg.URL = stripe.String(cfg.baseURL)
	}

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &Client{api: api}
}

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionParams struct {
	Currency   string
	OrderID    string
	SuccessURL string
	CancelURL  string
	Items      []LineItem
}

type CheckoutSession struct {
	ID  string
	URL string
}

const orderIDMetadataKey = "orderId"

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{orderIDMetadataKey: p.OrderID},
		},
	}
	params.Context = ctx
	params.AddMetadata(orderIDMetadataKey, p.OrderID)

	for _, item := range p.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

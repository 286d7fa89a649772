package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/garrettladley/payrelay/internal/server/handler"
	servermw "github.com/garrettladley/payrelay/internal/server/middleware"
	"github.com/garrettladley/payrelay/internal/service/checkout"
	"github.com/garrettladley/payrelay/internal/service/webhook"
	"github.com/garrettladley/payrelay/internal/storage"
	"github.com/garrettladley/payrelay/internal/xhttp/middleware"
)

type Deps struct {
	Logger   *slog.Logger
	Relay    webhook.Service
	Checkout checkout.Service
	Ledger   handler.Pinger
	Bus      handler.Pinger
	Limiter  storage.RateLimiter
	Metrics  http.Handler
	// Shutdown is the server's base context, canceled when draining starts.
	Shutdown context.Context
}

// Routes builds the full handler tree with the standard middleware chain.
func Routes(d Deps) http.Handler {
	webhookHandler := handler.NewWebhook(d.Relay)
	checkoutHandler := handler.NewCheckout(d.Checkout)
	healthHandler := handler.NewHealth(d.Ledger, d.Bus)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments/webhook", webhookHandler.HandleWebhook)
	mux.HandleFunc("GET /payments/success", handler.HandleSuccess)
	mux.HandleFunc("GET /payments/cancel", handler.HandleCancel)
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	// session creation calls the provider, so it sits behind the IP limiter
	sessionHandler := http.Handler(http.HandlerFunc(checkoutHandler.HandleCreateSession))
	if d.Limiter != nil {
		sessionHandler = middleware.Chain(sessionHandler, servermw.RateLimitWithBackend(d.Limiter))
	}
	mux.Handle("POST /payments/session", sessionHandler)

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID(middleware.TrustInboundRequestID()),
		middleware.Logger(d.Logger),
		middleware.Logging,
		middleware.ShutdownContext(d.Shutdown),
		middleware.SecurityHeaders,
	)
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/garrettladley/payrelay/internal/service/webhook"
	"github.com/garrettladley/payrelay/internal/xcontext"
	"github.com/garrettladley/payrelay/internal/xerrors"
	"github.com/garrettladley/payrelay/internal/xhttp"
	"github.com/garrettladley/payrelay/internal/xslog"
)

const (
	maxWebhookBody = 1 << 20
	retryAfter     = 30 * time.Second
)

type Webhook struct {
	service webhook.Service
}

func NewWebhook(service webhook.Service) *Webhook {
	return &Webhook{service: service}
}

type webhookResponse struct {
	Received bool   `json:"received"`
	ID       string `json:"id,omitempty"`
	Outcome  string `json:"outcome"`
}

// HandleWebhook handles POST /payments/webhook requests.
func (h *Webhook) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	receivedAt := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			xerrors.WriteError(ctx, w, xerrors.PayloadTooLarge(xerrors.WithCode(xerrors.CodePayloadTooLarge), xerrors.WithMessage("webhook body too large")))
			return
		}
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithCode(xerrors.CodeInvalidBody), xerrors.WithMessage("failed to read request body"), xerrors.WithCause(err)))
		return
	}

	res, err := h.service.Process(ctx, webhook.RawRequest{
		Body:       body,
		Headers:    xhttp.HeaderMap(r.Header),
		ReceivedAt: receivedAt,
	})
	switch {
	case errors.Is(err, webhook.ErrVerification):
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithCode(xerrors.CodeInvalidSignature), xerrors.WithMessage("invalid signature")))
		return
	case errors.Is(err, webhook.ErrTransient):
		if xcontext.IsShutdownInProgress(ctx) {
			xslog.FromContext(ctx).WarnContext(ctx, "relay failed during shutdown", xslog.EventID(res.EventID))
		}
		xerrors.WriteError(ctx, w, xerrors.ServiceUnavailable(
			xerrors.WithCode(xerrors.CodeRelayUnavailable),
			xerrors.WithMessage("temporarily unable to relay event"),
			xerrors.WithRetryAfter(retryAfter),
			xerrors.WithCause(err),
		))
		return
	case err != nil:
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to process webhook"), xerrors.WithCause(err)))
		return
	}

	xhttp.WriteOK(w, webhookResponse{
		Received: true,
		ID:       res.EventID,
		Outcome:  string(res.Outcome),
	})
}

package handler

import (
	"errors"
	"net/http"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/payrelay/internal/service/checkout"
	"github.com/garrettladley/payrelay/internal/xerrors"
	"github.com/garrettladley/payrelay/internal/xhttp"
)

const maxSessionBody = 64 << 10

type Checkout struct {
	service checkout.Service
}

func NewCheckout(service checkout.Service) *Checkout {
	return &Checkout{service: service}
}

// HandleCreateSession handles POST /payments/session requests.
func (h *Checkout) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkout.SessionRequest
	if err := go_json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBody)).Decode(&req); err != nil {
		xerrors.WriteError(ctx, w, xerrors.BadRequest(xerrors.WithCode(xerrors.CodeInvalidBody), xerrors.WithMessage("invalid request body"), xerrors.WithCause(err)))
		return
	}

	res, err := h.service.CreateSession(ctx, req)
	if err != nil {
		if appErr := xerrors.As(err); appErr != nil {
			xerrors.WriteError(ctx, w, appErr)
			return
		}
		if errors.Is(err, checkout.ErrProvider) {
			xerrors.WriteError(ctx, w, xerrors.BadGateway(xerrors.WithCode(xerrors.CodeProvider), xerrors.WithMessage(checkout.ErrProvider.Error()), xerrors.WithCause(err)))
			return
		}
		xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithCause(err)))
		return
	}

	xhttp.WriteOK(w, res)
}

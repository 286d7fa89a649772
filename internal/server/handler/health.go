package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/garrettladley/payrelay/internal/version"
	"github.com/garrettladley/payrelay/internal/xerrors"
	"github.com/garrettladley/payrelay/internal/xhttp"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	ledger Pinger
	bus    Pinger
}

func NewHealth(ledger, bus Pinger) *Health {
	return &Health{ledger: ledger, bus: bus}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// HandleHealth handles GET /health requests.
func (h *Health) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	for _, dep := range []struct {
		name   string
		pinger Pinger
	}{
		{name: "ledger", pinger: h.ledger},
		{name: "bus", pinger: h.bus},
	} {
		if dep.pinger == nil {
			continue
		}
		if err := dep.pinger.Ping(ctx); err != nil {
			xerrors.WriteError(r.Context(), w, xerrors.ServiceUnavailable(
				xerrors.WithCode(xerrors.CodeUnavailable),
				xerrors.WithMessage(dep.name+" unavailable"),
				xerrors.WithCause(err),
			))
			return
		}
	}

	xhttp.WriteOK(w, healthResponse{Status: "ok", Version: version.Get(), Commit: version.Commit()})
}

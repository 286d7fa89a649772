package checkout

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/garrettladley/payrelay/internal/client/stripeapi"
	"github.com/garrettladley/payrelay/internal/validator"
	"github.com/garrettladley/payrelay/internal/xslog"
)

type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, p stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type Sessions struct {
	creator    SessionCreator
	successURL string
	cancelURL  string
}

var _ Service = (*Sessions)(nil)

func NewSessions(creator SessionCreator, successURL, cancelURL string) *Sessions {
	return &Sessions{
		creator:    creator,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (s *Sessions) CreateSession(ctx context.Context, req SessionRequest) (SessionResult, error) {
	if verr := validator.Validate(req); verr != nil {
		return SessionResult{}, verr
	}

	params := stripeapi.CheckoutSessionParams{
		Currency:   strings.ToLower(req.Currency),
		OrderID:    req.OrderID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Items:      make([]stripeapi.LineItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		params.Items = append(params.Items, stripeapi.LineItem{
			Name:       item.Name,
			UnitAmount: toMinorUnits(item.Price),
			Quantity:   item.Quantity,
		})
	}

	session, err := s.creator.CreateCheckoutSession(ctx, params)
	if err != nil {
		xslog.FromContext(ctx).ErrorContext(ctx, "failed to create checkout session",
			xslog.OrderID(req.OrderID),
			xslog.Error(err),
		)
		return SessionResult{}, errors.Join(ErrProvider, err)
	}

	xslog.FromContext(ctx).InfoContext(ctx, "created checkout session",
		xslog.OrderID(req.OrderID),
		xslog.SessionID(session.ID),
	)

	return SessionResult{
		URL:        session.URL,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	}, nil
}

func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

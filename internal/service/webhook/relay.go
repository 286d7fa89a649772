package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/payrelay/internal/bus"
	"github.com/garrettladley/payrelay/internal/storage"
	"github.com/garrettladley/payrelay/internal/xslog"
)

const (
	DefaultLockTimeout     = 10 * time.Second
	DefaultRelayTimeout    = 15 * time.Second
	DefaultDeadLetterTopic = "payment.malformed"
)

const (
	headerEventType       = "event-type"
	headerProviderEventID = "provider-event-id"
)

type Config struct {
	Secrets   []string
	Tolerance time.Duration
	// LockTimeout bounds the wait for a concurrent delivery of the same event.
	LockTimeout time.Duration
	// RelayTimeout bounds the ledger and bus calls, which run detached from the caller.
	RelayTimeout time.Duration
	// DeadLetterTopic receives malformed bodies. Empty disables dead-lettering.
	DeadLetterTopic string
}

// Envelope is the message body published for every domain event.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Topic      string      `json:"topic"`
	OccurredAt time.Time   `json:"occurredAt"`
	RelayedAt  time.Time   `json:"relayedAt"`
	Data       DomainEvent `json:"data"`
}

type deadLetter struct {
	Reason     string    `json:"reason"`
	EventID    string    `json:"eventId,omitempty"`
	EventType  string    `json:"eventType,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	Body       string    `json:"body"`
}

type Relay struct {
	cfg       Config
	ledger    storage.RelayLedger
	publisher bus.Publisher
	recorder  Recorder
	now       func() time.Time
}

var _ Service = (*Relay)(nil)

func NewRelay(cfg Config, ledger storage.RelayLedger, publisher bus.Publisher, recorder Recorder) *Relay {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = DefaultRelayTimeout
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Relay{
		cfg:       cfg,
		ledger:    ledger,
		publisher: publisher,
		recorder:  recorder,
		now:       time.Now,
	}
}

func (r *Relay) Process(ctx context.Context, req RawRequest) (Result, error) {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = r.now()
	}

	res := Result{State: StateReceived}

	evt, err := Verify(req.Body, req.Header(SignatureHeader), r.cfg.Secrets, r.cfg.Tolerance, r.now())
	if err != nil {
		var malformedErr *MalformedEventError
		if errors.As(err, &malformedErr) {
			res.State = StateVerified
			return r.malformed(ctx, req, res, err), nil
		}
		return r.reject(ctx, res, err)
	}
	res.State = StateVerified
	res.EventID = evt.ID()
	res.EventType = evt.Type()

	domain, err := Normalize(evt)
	switch {
	case errors.Is(err, ErrIgnored):
		return r.drop(ctx, res), nil
	case err != nil:
		return r.malformed(ctx, req, res, err), nil
	}
	res.State = StateNormalized
	res.Topic = domain.Topic()

	// the provider may hang up once the event is on the bus; the ledger must still commit
	relayCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RelayTimeout)
	defer cancel()

	return r.relay(relayCtx, res, evt, domain)
}

func (r *Relay) relay(ctx context.Context, res Result, evt VerifiedEvent, domain DomainEvent) (Result, error) {
	ctx = xslog.WithEvent(ctx, res.EventID, res.EventType, res.Topic)
	logger := xslog.FromContext(ctx)

	lockCtx, cancelLock := context.WithTimeout(ctx, r.cfg.LockTimeout)
	unlock, err := r.ledger.Lock(lockCtx, res.EventID)
	cancelLock()
	if err != nil {
		return r.retry(ctx, logger, res, fmt.Errorf("failed to lock event: %w", err))
	}
	defer unlock()

	relayed, err := r.ledger.HasBeenRelayed(ctx, res.EventID)
	if err != nil {
		return r.retry(ctx, logger, res, fmt.Errorf("failed to read ledger: %w", err))
	}
	if relayed {
		return r.deduplicate(ctx, logger, res), nil
	}

	relayedAt := r.now().UTC()
	body, err := go_json.Marshal(Envelope{
		ID:         res.EventID,
		Type:       res.EventType,
		Topic:      res.Topic,
		OccurredAt: evt.OccurredAt(),
		RelayedAt:  relayedAt,
		Data:       domain,
	})
	if err != nil {
		return r.retry(ctx, logger, res, fmt.Errorf("failed to encode envelope: %w", err))
	}

	start := time.Now()
	err = r.publisher.Publish(ctx, res.Topic, bus.Message{
		Key:  res.EventID,
		Body: body,
		Headers: map[string]string{
			headerEventType:       res.EventType,
			headerProviderEventID: res.EventID,
		},
	})
	r.recorder.ObservePublish(res.Topic, time.Since(start), err)
	if err != nil {
		return r.retry(ctx, logger, res, err)
	}
	res.State = StatePublished

	recorded, err := r.ledger.RecordRelayed(ctx, storage.RelayRecord{
		ProviderEventID: res.EventID,
		Topic:           res.Topic,
		RelayedAt:       relayedAt,
	})
	switch {
	case err != nil:
		// already on the bus; a 5xx would only guarantee a duplicate on redelivery
		logger.ErrorContext(ctx, "failed to record relayed event", xslog.Error(err))
	case recorded == storage.RecordAlreadyExists:
		return r.deduplicate(ctx, logger, res), nil
	}

	res.State = StateAcknowledged
	res.Outcome = OutcomeRelayed
	r.recorder.RecordOutcome(string(res.Outcome), res.EventType)
	logger.InfoContext(ctx, "relayed event", xslog.Outcome(string(res.Outcome)), xslog.OrderID(orderID(domain)))
	return res, nil
}

func (r *Relay) reject(ctx context.Context, res Result, err error) (Result, error) {
	res.State = StateRejected
	res.Outcome = OutcomeRejected
	r.recorder.RecordOutcome(string(res.Outcome), "")

	attrs := []any{xslog.Error(err)}
	var verr *VerificationError
	if errors.As(err, &verr) {
		attrs = append(attrs, xslog.Reason(string(verr.Reason)))
	}
	xslog.FromContext(ctx).WarnContext(ctx, "rejected webhook", attrs...)
	return res, err
}

func (r *Relay) drop(ctx context.Context, res Result) Result {
	res.State = StateDropped
	res.Outcome = OutcomeDropped
	r.recorder.RecordOutcome(string(res.Outcome), res.EventType)
	xslog.FromContext(ctx).WarnContext(ctx, "ignored unmapped event type",
		xslog.EventGroup(res.EventID, res.EventType, ""),
	)
	return res
}

func (r *Relay) deduplicate(ctx context.Context, logger *slog.Logger, res Result) Result {
	res.State = StateDeduplicated
	res.Outcome = OutcomeDeduplicated
	r.recorder.RecordOutcome(string(res.Outcome), res.EventType)
	logger.InfoContext(ctx, "event already relayed", xslog.Outcome(string(res.Outcome)))
	return res
}

func (r *Relay) retry(ctx context.Context, logger *slog.Logger, res Result, err error) (Result, error) {
	res.State = StateNormalized
	res.Outcome = OutcomeRetry
	r.recorder.RecordOutcome(string(res.Outcome), res.EventType)
	logger.ErrorContext(ctx, "failed to relay event", xslog.Outcome(string(res.Outcome)), xslog.Error(err))
	return res, errors.Join(ErrTransient, err)
}

// malformed acknowledges a body that can never be relayed and hands it to the dead-letter topic.
func (r *Relay) malformed(ctx context.Context, req RawRequest, res Result, cause error) Result {
	var merr *MalformedEventError
	if errors.As(cause, &merr) {
		if res.EventID == "" {
			res.EventID = merr.EventID
		}
		if res.EventType == "" {
			res.EventType = merr.EventType
		}
	}

	res.State = StateDropped
	res.Outcome = OutcomeMalformed
	r.recorder.RecordOutcome(string(res.Outcome), res.EventType)

	ctx = xslog.WithEvent(ctx, res.EventID, res.EventType, "")
	logger := xslog.FromContext(ctx)
	logger.ErrorContext(ctx, "malformed event body", xslog.Error(cause))

	if r.cfg.DeadLetterTopic == "" {
		return res
	}

	body, err := go_json.Marshal(deadLetter{
		Reason:     cause.Error(),
		EventID:    res.EventID,
		EventType:  res.EventType,
		ReceivedAt: req.ReceivedAt.UTC(),
		Body:       string(req.Body),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode dead letter", xslog.Error(err))
		return res
	}

	dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.RelayTimeout)
	defer cancel()

	start := time.Now()
	err = r.publisher.Publish(dlCtx, r.cfg.DeadLetterTopic, bus.Message{
		Key:     res.EventID,
		Body:    body,
		Headers: map[string]string{headerEventType: res.EventType},
	})
	r.recorder.ObservePublish(r.cfg.DeadLetterTopic, time.Since(start), err)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish dead letter",
			xslog.Topic(r.cfg.DeadLetterTopic),
			xslog.Error(err),
		)
	}
	return res
}

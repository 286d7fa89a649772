package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ Publisher = (*RabbitMQ)(nil)

const defaultExchange = "payments"

var errNacked = errors.New("broker nacked message")

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// rabbitSession is a connection plus a confirm-mode channel.
type rabbitSession interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	// Closed fires once the channel or its connection is gone.
	Closed() <-chan *amqp.Error
	Close() error
}

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type rabbitDialer func(ctx context.Context) (rabbitSession, error)

// RabbitMQ publishes to a durable topic exchange with the topic as routing key.
// The channel is in confirm mode so Publish returns once the broker acked.
// amqp091 does not reconnect, so a closed session is re-dialed on the next
// Publish or Ping.
type RabbitMQ struct {
	exchange string
	dial     rabbitDialer

	mu      sync.Mutex
	session rabbitSession
}

func NewRabbitMQ(ctx context.Context, cfg RabbitMQConfig) (*RabbitMQ, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = defaultExchange
	}

	r := newRabbitMQWithDialer(cfg.Exchange, func(context.Context) (rabbitSession, error) {
		s, err := dialRabbitSession(cfg.URL, cfg.Exchange)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err := r.Ping(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRabbitMQWithDialer(exchange string, dial rabbitDialer) *RabbitMQ {
	return &RabbitMQ{exchange: exchange, dial: dial}
}

// ensureSession returns a live session, dialing a new one when needed. Callers hold r.mu.
func (r *RabbitMQ) ensureSession(ctx context.Context) (rabbitSession, error) {
	if r.session != nil {
		select {
		case <-r.session.Closed():
			_ = r.session.Close()
			r.session = nil
		default:
			return r.session, nil
		}
	}

	s, err := r.dial(ctx)
	if err != nil {
		return nil, err
	}
	r.session = s
	return s, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, topic string, msg Message) error {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}

	r.mu.Lock()
	s, err := r.ensureSession(ctx)
	if err != nil {
		r.mu.Unlock()
		return publishError(DriverRabbitMQ, topic, err)
	}
	dc, err := s.Publish(ctx, r.exchange, topic, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Key,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         msg.Body,
	})
	if errors.Is(err, amqp.ErrClosed) && r.session == s {
		_ = s.Close()
		r.session = nil
	}
	r.mu.Unlock()
	if err != nil {
		return publishError(DriverRabbitMQ, topic, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return publishError(DriverRabbitMQ, topic, err)
	}
	if !acked {
		return publishError(DriverRabbitMQ, topic, errNacked)
	}
	return nil
}

// Ping re-dials a closed session and reports whether the broker is reachable.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.ensureSession(ctx)
	return err
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

type amqpSession struct {
	conn   *amqp.Connection
	chn    *amqp.Channel
	closed chan *amqp.Error
}

func dialRabbitSession(url, exchange string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := chn.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	if err := chn.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// the channel closes with its connection, so one notification covers both
	closed := chn.NotifyClose(make(chan *amqp.Error, 1))
	return &amqpSession{conn: conn, chn: chn, closed: closed}, nil
}

func (s *amqpSession) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := s.chn.PublishWithDeferredConfirmWithContext(ctx, exchange, key,
		false, // mandatory
		false, // immediate
		msg,
	)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func (s *amqpSession) Closed() <-chan *amqp.Error { return s.closed }

func (s *amqpSession) Close() error {
	if s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close()
}

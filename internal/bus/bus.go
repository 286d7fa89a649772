// Package bus publishes normalized payment events to a message broker.
//
// Every driver returns only after the broker acknowledged the message, and
// none of them retry: redelivery is left to the webhook provider.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverNATS     Driver = "nats"
	DriverKafka    Driver = "kafka"
	DriverRabbitMQ Driver = "rabbitmq"
	DriverRedis    Driver = "redis"
)

var ErrUnknownDriver = errors.New("unknown bus driver")

// Message is a single event handed to a broker.
// Key is the provider event id and is used for broker-side dedupe and partitioning.
type Message struct {
	Key     string
	Body    []byte
	Headers map[string]string
}

// Publisher delivers a message to a topic. A nil error means the broker acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	// Ping reports whether the broker is reachable, reconnecting if the driver can.
	Ping(ctx context.Context) error
	Close() error
}

// PublishError wraps a broker failure with the topic that was being published.
type PublishError struct {
	Driver Driver
	Topic  string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s: failed to publish to %q: %v", e.Driver, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func publishError(driver Driver, topic string, err error) error {
	return &PublishError{Driver: driver, Topic: topic, Err: err}
}

type Config struct {
	Driver Driver
	URLs   []string

	// NATSStream, when set, is created or updated to capture NATSSubjects.
	NATSStream   string
	NATSSubjects []string

	RabbitMQExchange string

	RedisStreamPrefix string
	RedisMaxLen       int64
}

// Open dials the broker selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Publisher, error) {
	var (
		p   Publisher
		err error
	)
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverNATS:
		p, err = openNATS(ctx, cfg)
	case DriverKafka:
		p, err = openKafka(cfg)
	case DriverRabbitMQ:
		p, err = openRabbitMQ(ctx, cfg)
	case DriverRedis:
		p, err = openRedis(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openNATS(ctx context.Context, cfg Config) (Publisher, error) {
	n, err := NewNATS(ctx, NATSConfig{
		URL:      strings.Join(cfg.URLs, ","),
		Stream:   cfg.NATSStream,
		Subjects: cfg.NATSSubjects,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func openKafka(cfg Config) (Publisher, error) {
	k, err := NewKafka(cfg.URLs)
	if err != nil {
		return nil, err
	}
	return k, nil
}

func openRabbitMQ(ctx context.Context, cfg Config) (Publisher, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("rabbitmq: url is required")
	}
	r, err := NewRabbitMQ(ctx, RabbitMQConfig{URL: cfg.URLs[0], Exchange: cfg.RabbitMQExchange})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func openRedis(ctx context.Context, cfg Config) (Publisher, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("redis: url is required")
	}
	r, err := DialRedisStreams(ctx, cfg.URLs[0], RedisStreamsConfig{Prefix: cfg.RedisStreamPrefix, MaxLen: cfg.RedisMaxLen})
	if err != nil {
		return nil, err
	}
	return r, nil
}

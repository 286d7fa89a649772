package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ Publisher = (*NATS)(nil)

type NATSConfig struct {
	URL      string
	Stream   string
	Subjects []string
}

type NATS struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

func NewNATS(ctx context.Context, cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("payrelay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	if cfg.Stream != "" {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   cfg.Subjects,
			Storage:    jetstream.FileStorage,
			Duplicates: 2 * time.Minute,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to ensure stream %q: %w", cfg.Stream, err)
		}
	}

	return &NATS{conn: nc, js: js}, nil
}

func (n *NATS) Publish(ctx context.Context, topic string, msg Message) error {
	m := nats.NewMsg(topic)
	m.Data = msg.Body
	for k, v := range msg.Headers {
		m.Header.Set(k, v)
	}

	ack, err := n.js.PublishMsg(ctx, m, jetstream.WithMsgID(msg.Key))
	if err != nil {
		return publishError(DriverNATS, topic, err)
	}
	if ack == nil {
		return publishError(DriverNATS, topic, errors.New("missing publish ack"))
	}
	return nil
}

var errNATSDisconnected = errors.New("nats: not connected")

// Ping round-trips to the server. ctx must carry a deadline.
func (n *NATS) Ping(ctx context.Context) error {
	if !n.conn.IsConnected() {
		return errNATSDisconnected
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}

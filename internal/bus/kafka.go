package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

var _ Publisher = (*Kafka)(nil)

// KafkaWriter is the subset of kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	writer  KafkaWriter
	brokers []string
	dialer  *kafka.Dialer
}

func NewKafka(brokers []string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	k := NewKafkaWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	})
	k.brokers = brokers
	return k, nil
}

func NewKafkaWithWriter(w KafkaWriter) *Kafka {
	return &Kafka{writer: w, dialer: &kafka.Dialer{Timeout: 5 * time.Second}}
}

func (k *Kafka) Publish(ctx context.Context, topic string, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for key, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Body,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return publishError(DriverKafka, topic, err)
	}
	return nil
}

// Ping succeeds once any broker accepts a connection. A Kafka built around an
// injected writer has no brokers to dial and always reports healthy.
func (k *Kafka) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range k.brokers {
		conn, err := k.dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("kafka: no reachable broker: %w", errors.Join(errs...))
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

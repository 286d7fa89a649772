package bus

import (
	"context"
	"maps"
	"slices"
	"sync"
)

var _ Publisher = (*Memory)(nil)

type Published struct {
	Topic   string
	Message Message
}

// Memory keeps published messages in process. Fail, when set, is consulted
// before each publish and its error is returned as a broker failure.
type Memory struct {
	mu        sync.Mutex
	published []Published
	fail      func(topic string, msg Message) error
	pingErr   error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SetFailure(fn func(topic string, msg Message) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fn
}

func (m *Memory) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return publishError(DriverMemory, topic, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		if err := m.fail(topic, msg); err != nil {
			return publishError(DriverMemory, topic, err)
		}
	}

	msg.Body = slices.Clone(msg.Body)
	msg.Headers = maps.Clone(msg.Headers)
	m.published = append(m.published, Published{Topic: topic, Message: msg})
	return nil
}

func (m *Memory) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.published)
}

func (m *Memory) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, p := range m.published {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

// SetPingError makes Ping report err until it is reset with nil.
func (m *Memory) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *Memory) Close() error { return nil }

package pubsub

import (
	"context"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// MockPubSubClient is a mock implementation of PubSubClient for testing.
// It is safe for concurrent use. Sent messages are encoded with msgpack and
// delivered to every active Receive call, which makes two mocks sharing a
// Broker behave like two clients on one topic.
type MockPubSubClient struct {
	mu sync.Mutex

	// Spies for method calls
	SendMessageFunc    func(topic string, eventType EventType, data any) error
	ProcessMessageFunc func(data []byte, returnValue any) error

	// Call records
	SendMessageCalls    []SendMessageCall
	ProcessMessageCalls []ProcessMessageCall

	broker *Broker
}

// SendMessageCall holds the arguments for a call to SendMessage.
type SendMessageCall struct {
	Topic     string
	EventType EventType
	Data      any
}

// ProcessMessageCall holds the arguments for a call to ProcessMessage.
type ProcessMessageCall struct {
	Data        []byte
	ReturnValue any
}

// Broker fans mock messages out to receivers.
type Broker struct {
	mu        sync.Mutex
	receivers map[int]func(EventType, []byte)
	next      int
}

func NewBroker() *Broker {
	return &Broker{receivers: make(map[int]func(EventType, []byte))}
}

func (b *Broker) deliver(eventType EventType, data []byte) {
	b.mu.Lock()
	receivers := make([]func(EventType, []byte), 0, len(b.receivers))
	for _, fn := range b.receivers {
		receivers = append(receivers, fn)
	}
	b.mu.Unlock()
	for _, fn := range receivers {
		fn(eventType, data)
	}
}

// NewMock creates a new mock PubSubClient attached to broker. A nil broker
// gives the mock a private one.
func NewMock(broker *Broker) *MockPubSubClient {
	if broker == nil {
		broker = NewBroker()
	}
	return &MockPubSubClient{broker: broker}
}

// Reset clears all call records.
func (m *MockPubSubClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendMessageCalls = nil
	m.ProcessMessageCalls = nil
}

// SendMessage records the call and executes the mock function if provided.
func (m *MockPubSubClient) SendMessage(_ context.Context, topic string, eventType EventType, data any) error {
	m.mu.Lock()
	m.SendMessageCalls = append(m.SendMessageCalls, SendMessageCall{Topic: topic, EventType: eventType, Data: data})
	sendFunc := m.SendMessageFunc
	m.mu.Unlock()
	if sendFunc != nil {
		if err := sendFunc(topic, eventType, data); err != nil {
			return err
		}
	}
	encoded, err := msgpack.Marshal(data)
	if err != nil {
		return err
	}
	m.broker.deliver(eventType, encoded)
	return nil
}

// ProcessMessage records the call and executes the mock function if provided.
func (m *MockPubSubClient) ProcessMessage(data []byte, returnValue any) error {
	m.mu.Lock()
	m.ProcessMessageCalls = append(m.ProcessMessageCalls, ProcessMessageCall{Data: data, ReturnValue: returnValue})
	processFunc := m.ProcessMessageFunc
	m.mu.Unlock()
	if processFunc != nil {
		return processFunc(data, returnValue)
	}
	return msgpack.Unmarshal(data, returnValue)
}

// Receive registers fn with the broker until ctx is done.
func (m *MockPubSubClient) Receive(ctx context.Context, _ string, fn func(EventType, []byte)) error {
	m.broker.mu.Lock()
	id := m.broker.next
	m.broker.next++
	m.broker.receivers[id] = fn
	m.broker.mu.Unlock()

	<-ctx.Done()

	m.broker.mu.Lock()
	delete(m.broker.receivers, id)
	m.broker.mu.Unlock()
	return nil
}

func (m *MockPubSubClient) Close() error {
	return nil
}

// Sent returns a copy of the recorded SendMessage calls.
func (m *MockPubSubClient) Sent() []SendMessageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendMessageCall(nil), m.SendMessageCalls...)
}

// Receivers returns the number of active Receive calls.
func (b *Broker) Receivers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.receivers)
}

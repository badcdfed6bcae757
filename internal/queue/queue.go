// Package queue carries the dispatch wake trigger between the enqueue side
// and the worker daemon. The durable queue itself lives in Postgres; the
// broker only tells an idle worker "new work was queued, run a cycle now"
// instead of waiting for the next tick.
package queue

import (
	"fmt"
	"sync"
)

// WakeTopic is the topic/queue name for dispatch wake messages.
const WakeTopic = "dispatch_wake"

// Queue interface
type Queue interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte) error) error
	Close() error
}

// InMemoryQueue is a process-local Queue used in tests and single-binary
// deployments without a broker.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload []byte) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload []byte) error),
	}
}

// Publish delivers a message to all subscribers of the topic.
func (q *InMemoryQueue) Publish(topic string, payload []byte) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		go handler(payload)
	}
	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

func (q *InMemoryQueue) Close() error { return nil }

var _ Queue = (*InMemoryQueue)(nil)

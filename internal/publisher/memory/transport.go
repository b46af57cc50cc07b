// Package memory contains an in-memory transport for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/retail-listing-scraper/internal/publisher"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("memory transport closed")

// Transport stores sent messages for inspection.
type Transport struct {
	mu       sync.RWMutex
	messages []publisher.Message
	failures map[int]error
	calls    int
	closed   bool
}

// New returns a memory Transport.
func New() *Transport {
	return &Transport{failures: make(map[int]error)}
}

// FailOn makes the n-th Send call (1-based) return err instead of storing the message.
func (t *Transport) FailOn(n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[n] = err
}

// Send records the message.
func (t *Transport) Send(_ context.Context, msg publisher.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.calls++
	if err, ok := t.failures[t.calls]; ok {
		return err
	}
	t.messages = append(t.messages, copyMessage(msg))
	return nil
}

// Messages returns the recorded messages.
func (t *Transport) Messages() []publisher.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]publisher.Message, len(t.messages))
	for i, m := range t.messages {
		out[i] = copyMessage(m)
	}
	return out
}

// Close marks the transport closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func copyMessage(m publisher.Message) publisher.Message {
	headers := make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		headers[k] = v
	}
	return publisher.Message{Body: append([]byte(nil), m.Body...), Headers: headers}
}

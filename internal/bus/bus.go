// Package bus connects the orchestrator to the agent messaging layer:
// requests arrive as JSON on a queue and results are published back.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned when using a closed transport, and by Consume when
// the transport closes underneath it.
var ErrClosed = errors.New("bus closed")

// Handler processes one raw inbound message. A non-nil error asks the
// transport to redeliver; handlers return one only when nothing irreversible
// has happened yet.
type Handler func(ctx context.Context, body []byte) error

// Consumer delivers inbound request messages to a handler.
type Consumer interface {
	// Consume blocks until ctx ends, running handler on workers goroutines.
	Consume(ctx context.Context, workers int, handler Handler) error
	Close() error
}

// Publisher sends results back to the requesting agent.
type Publisher interface {
	Publish(ctx context.Context, result *Result) error
	Close() error
}

// Sender enqueues a raw request message, the producer side of Consumer.
type Sender interface {
	Send(ctx context.Context, body []byte) error
}

// Transport is a queue that both consumes requests and publishes results.
type Transport interface {
	Consumer
	Publisher
	Sender
}

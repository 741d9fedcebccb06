package bus

import (
	"context"
	"sync"
)

type delivery struct {
	body        []byte
	redelivered bool
}

// MemoryBus is a channel-backed Transport for tests and single-process runs.
type MemoryBus struct {
	requests chan delivery
	results  chan *Result

	mu     sync.RWMutex
	closed bool
}

var _ Transport = (*MemoryBus)(nil)

// NewMemoryBus creates a bus buffering up to size messages each way.
func NewMemoryBus(size int) *MemoryBus {
	if size <= 0 {
		size = 64
	}
	return &MemoryBus{
		requests: make(chan delivery, size),
		results:  make(chan *Result, size),
	}
}

// Send enqueues a raw request message.
func (b *MemoryBus) Send(ctx context.Context, body []byte) error {
	return b.enqueue(ctx, delivery{body: body})
}

func (b *MemoryBus) enqueue(ctx context.Context, d delivery) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.requests <- d:
		return nil
	}
}

// redeliver requeues body without blocking. A full buffer drops it, since the
// worker calling this may be the only reader.
func (b *MemoryBus) redeliver(body []byte) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.requests <- delivery{body: body, redelivered: true}:
		return true
	default:
		return false
	}
}

// Consume runs handler on workers goroutines until ctx ends or the bus is
// closed. A message whose handler fails is redelivered once if there is room.
func (b *MemoryBus) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-b.requests:
					if !ok {
						return
					}
					if err := handler(ctx, d.body); err != nil && !d.redelivered {
						b.redeliver(d.body)
					}
				}
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// Publish delivers a result to Results.
func (b *MemoryBus) Publish(ctx context.Context, result *Result) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.results <- result:
		return nil
	}
}

// Results returns the stream of published results.
func (b *MemoryBus) Results() <-chan *Result {
	return b.results
}

// Close stops consumers. It is safe to call more than once.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.requests)
		close(b.results)
	}
	return nil
}

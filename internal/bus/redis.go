package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisQueueConfig describes the Redis lists used as queues.
type RedisQueueConfig struct {
	RequestQueue string
	ResultQueue  string
	BlockWait    time.Duration
}

// RedisQueue is a Transport over two Redis lists. Producers LPUSH and
// consumers BRPOP, so each list is FIFO.
type RedisQueue struct {
	client   *goredis.Client
	requests string
	results  string
	wait     time.Duration
}

var _ Transport = (*RedisQueue)(nil)

// NewRedisQueue wraps an existing client. Closing the queue closes it.
func NewRedisQueue(client *goredis.Client, cfg RedisQueueConfig) *RedisQueue {
	q := &RedisQueue{
		client:   client,
		requests: cfg.RequestQueue,
		results:  cfg.ResultQueue,
		wait:     cfg.BlockWait,
	}
	if q.requests == "" {
		q.requests = "operator:requests"
	}
	if q.results == "" {
		q.results = "operator:results"
	}
	if q.wait <= 0 {
		q.wait = 5 * time.Second
	}
	return q
}

// Send pushes a raw request message.
func (q *RedisQueue) Send(ctx context.Context, body []byte) error {
	if err := q.client.LPush(ctx, q.requests, body).Err(); err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	return nil
}

// Publish pushes a result.
func (q *RedisQueue) Publish(ctx context.Context, result *Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := q.client.LPush(ctx, q.results, body).Err(); err != nil {
		if errors.Is(err, goredis.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("push result: %w", err)
	}
	return nil
}

// Consume pops requests with BRPOP. A handler error pushes the message back
// to the tail of the queue. Lists carry no delivery count, so unlike the
// AMQP transport a failing message is retried until it succeeds.
func (q *RedisQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				values, err := q.client.BRPop(ctx, q.wait, q.requests).Result()
				if err != nil {
					if errors.Is(err, goredis.Nil) {
						continue
					}
					if ctx.Err() != nil {
						return
					}
					errCh <- fmt.Errorf("pop request: %w", err)
					return
				}
				if len(values) != 2 {
					continue
				}
				body := []byte(values[1])
				if err := handler(ctx, body); err != nil {
					_ = q.client.LPush(context.WithoutCancel(ctx), q.requests, body).Err()
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close closes the Redis client.
func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

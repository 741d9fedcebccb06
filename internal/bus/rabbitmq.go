package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConfig describes the broker connection and queue names.
type RabbitMQConfig struct {
	URL          string
	RequestQueue string
	ResultQueue  string
	Prefetch     int
	Durable      bool
}

// RabbitMQ is a Transport over two AMQP queues with manual acks.
type RabbitMQ struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	cfg  RabbitMQConfig

	pubMu sync.Mutex
}

var _ Transport = (*RabbitMQ)(nil)

// NewRabbitMQ dials the broker and declares both queues.
func NewRabbitMQ(cfg RabbitMQConfig) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.RequestQueue == "" {
		cfg.RequestQueue = "operator.requests"
	}
	if cfg.ResultQueue == "" {
		cfg.ResultQueue = "operator.results"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("set rabbitmq qos: %w", err)
		}
	}
	for _, q := range []string{cfg.RequestQueue, cfg.ResultQueue} {
		if _, err := ch.QueueDeclare(q, cfg.Durable, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return &RabbitMQ{conn: conn, ch: ch, cfg: cfg}, nil
}

// Send publishes a raw request message. Used by clients and tests.
func (q *RabbitMQ) Send(ctx context.Context, body []byte) error {
	return q.publish(ctx, q.cfg.RequestQueue, "", body)
}

// Publish sends a result to the result queue.
func (q *RabbitMQ) Publish(ctx context.Context, result *Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return q.publish(ctx, q.cfg.ResultQueue, result.ID, body)
}

func (q *RabbitMQ) publish(ctx context.Context, queue, id string, body []byte) error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	mode := amqp.Transient
	if q.cfg.Durable {
		mode = amqp.Persistent
	}
	err := q.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: mode,
		MessageId:    id,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// Consume acks each message after its handler returns. A handler error
// requeues the message unless it was already redelivered.
func (q *RabbitMQ) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	msgs, err := q.ch.Consume(q.cfg.RequestQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.cfg.RequestQueue, err)
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
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					if err := handler(ctx, msg.Body); err != nil {
						_ = msg.Nack(false, !msg.Redelivered)
						continue
					}
					_ = msg.Ack(false)
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

// Close closes the channel and connection.
func (q *RabbitMQ) Close() error {
	if q == nil {
		return nil
	}
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil && !q.conn.IsClosed() {
		return q.conn.Close()
	}
	return nil
}

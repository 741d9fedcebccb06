// Package redis implements request idempotency on Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"solana-transfer-operator/internal/observability"
	"solana-transfer-operator/internal/storage"
)

// DefaultKeyPrefix namespaces claim keys.
const DefaultKeyPrefix = "operator:request"

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// IdempotencyStore implements storage.IdempotencyStore with SET NX EX.
// A claim survives operator restarts and is shared across replicas.
type IdempotencyStore struct {
	rdb    *goredis.Client
	prefix string
}

// Compile-time interface check.
var _ storage.IdempotencyStore = (*IdempotencyStore)(nil)

// NewClient dials Redis and pings it.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewIdempotencyStore wraps an existing client.
func NewIdempotencyStore(rdb *goredis.Client, prefix string) *IdempotencyStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &IdempotencyStore{rdb: rdb, prefix: prefix}
}

func (s *IdempotencyStore) key(requestID string) string {
	return s.prefix + ":" + requestID
}

// Claim sets the key only if absent. Returns false if another claim is live.
func (s *IdempotencyStore) Claim(ctx context.Context, requestID string, ttl time.Duration) (ok bool, err error) {
	if requestID == "" || ttl <= 0 {
		return false, storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("redis", "claim", time.Since(start).Seconds(), err)
	}()

	ok, err = s.rdb.SetNX(ctx, s.key(requestID), time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Release deletes the claim. Missing keys are not an error.
func (s *IdempotencyStore) Release(ctx context.Context, requestID string) error {
	if err := s.rdb.Del(ctx, s.key(requestID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInProgress means another request holding the same key has not finished.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Record is a stored response.
type Record struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type entry struct {
	Pending bool    `json:"pending,omitempty"`
	Record  *Record `json:"record,omitempty"`
}

type client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore keeps idempotency keys in Redis. A key is claimed with SET NX
// while the request runs and then replaced by the finished response.
type RedisStore struct {
	client client
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects to the Redis server at url (redis:// or rediss://).
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: rdb, ttl: ttl, prefix: "ern:idempotency:"}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	if c, ok := s.client.(*redis.Client); ok {
		return c.Close()
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Begin claims key. It returns (nil, nil) when the caller now owns the key,
// the stored Record when an earlier request already finished, or
// ErrInProgress when one is still running.
func (s *RedisStore) Begin(ctx context.Context, key string) (*Record, error) {
	pending, err := json.Marshal(entry{Pending: true})
	if err != nil {
		return nil, err
	}
	claimed, err := s.client.SetNX(ctx, s.prefix+key, pending, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or abandoned between the two calls.
		return nil, ErrInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	if e.Pending || e.Record == nil {
		return nil, ErrInProgress
	}
	return e.Record, nil
}

// Complete stores the response for a key claimed with Begin.
func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(entry{Record: &rec})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// Abandon releases a claimed key so the request can be retried.
func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

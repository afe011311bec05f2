package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sellerops/amazon-connector/internal/process"
)

// Redis is the redis-backed Cache used in deployments where processed sets
// must survive restarts and be visible to every replica.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger

	nowFunc func() time.Time
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithRedisNowFunc overrides the time source for testing.
func WithRedisNowFunc(f func() time.Time) RedisOption {
	return func(r *Redis) {
		r.nowFunc = f
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.log = l
	}
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	r := &Redis{
		client:  client,
		ttl:     DefaultTTL,
		log:     slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Store implements Cache.
func (r *Redis) Store(ctx context.Context, marketplaceID string, rows []process.Row) (string, error) {
	now := r.nowFunc().UTC()
	key := newKey(marketplaceID, now)

	data, err := encode(marketplaceID, rows, now)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing processed set %s: %w", key, err)
	}

	r.log.Debug("processed set cached", "key", key, "rows", len(rows), "ttl", r.ttl)
	return key, nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]process.Row, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading processed set %s: %w", key, err)
	}

	env, err := decode(data)
	if err != nil {
		return nil, err
	}
	return env.Rows, nil
}

// Latest implements Cache.
func (r *Redis) Latest(ctx context.Context, marketplaceID string) (string, []process.Row, error) {
	entries, err := r.Entries(ctx, marketplaceID)
	if err != nil {
		return "", nil, err
	}
	if len(entries) == 0 {
		return "", nil, fmt.Errorf("%w: marketplace %s", ErrNotFound, marketplaceID)
	}

	rows, err := r.Get(ctx, entries[0].Key)
	if err != nil {
		return "", nil, err
	}
	return entries[0].Key, rows, nil
}

// Entries implements Cache, scanning keys under the processed-data prefix.
func (r *Redis) Entries(ctx context.Context, marketplaceID string) ([]Entry, error) {
	pattern := keyPrefix + "*"
	if marketplaceID != "" {
		pattern = keyPrefix + marketplaceID + "_*"
	}

	var entries []Entry
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("reading processed set %s: %w", key, err)
		}

		env, err := decode(data)
		if err != nil {
			r.log.Warn("skipping undecodable cache entry", "key", key, "error", err)
			continue
		}

		entries = append(entries, Entry{
			Key:           key,
			MarketplaceID: env.MarketplaceID,
			CreatedAt:     env.CreatedAt,
			RowCount:      len(env.Rows),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning processed sets: %w", err)
	}

	sortEntries(entries)
	return entries, nil
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}

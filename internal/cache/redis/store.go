package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/cache"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/database"
)

const (
	keyPrefix = "storefront:cache:"

	fieldValue    = "value"
	fieldToken    = "token"
	fieldStoredAt = "stored_at"
)

// Store implements cache.Store on a Redis hash per key.
type Store struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// New creates a Redis-backed store. A zero TTL keeps entries until evicted.
func New(client goredis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get reads the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (entry cache.Entry, found bool, err error) {
	ctx, end := database.TraceCommand(ctx, "HGETALL", keyPrefix+key)
	defer func() { end(err) }()

	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return cache.Entry{}, false, nil
		}
		return cache.Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	value, ok := fields[fieldValue]
	if !ok {
		return cache.Entry{}, false, nil
	}

	entry = cache.Entry{Value: []byte(value), Token: fields[fieldToken]}
	if ms, err := strconv.ParseInt(fields[fieldStoredAt], 10, 64); err == nil {
		entry.StoredAt = time.UnixMilli(ms).UTC()
	}
	return entry, true, nil
}

// Put replaces the entry stored under key and refreshes its TTL.
func (s *Store) Put(ctx context.Context, key string, entry cache.Entry) (err error) {
	ctx, end := database.TraceCommand(ctx, "HSET", keyPrefix+key)
	defer func() { end(err) }()

	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	k := keyPrefix + key
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldValue, entry.Value,
			fieldToken, entry.Token,
			fieldStoredAt, strconv.FormatInt(entry.StoredAt.UnixMilli(), 10),
		)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
)

// DefaultCacheNamespace prefixes every key written by the API.
const DefaultCacheNamespace = "gettogather:"

// CacheRepository stores JSON payloads in Redis under a namespace. Entries may be
// grouped by tag; a tag is a Redis set listing the keys written with it, so a
// whole group can be dropped without scanning the keyspace.
// A nil client turns every call into a miss or no-op.
type CacheRepository struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewCacheRepository constructs a cache repository. An empty namespace uses DefaultCacheNamespace.
func NewCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *CacheRepository {
	if namespace == "" {
		namespace = DefaultCacheNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, namespace: namespace, logger: logger}
}

func (r *CacheRepository) key(key string) string {
	return r.namespace + key
}

func (r *CacheRepository) tagKey(tag string) string {
	return r.namespace + "tag:" + tag
}

// Get decodes the entry stored under key into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set writes value under key and registers the key with each tag. Tag sets expire
// with the newest entry they hold.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}

	full := r.key(key)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, full, payload, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, r.tagKey(tag), full)
			if ttl > 0 {
				pipe.Expire(ctx, r.tagKey(tag), ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags drops every entry registered under the given tags, and the tags themselves.
func (r *CacheRepository) InvalidateTags(ctx context.Context, tags ...string) error {
	if r.client == nil {
		return nil
	}

	for _, tag := range tags {
		tk := r.tagKey(tag)
		members, err := r.client.SMembers(ctx, tk).Result()
		if err != nil {
			return fmt.Errorf("cache tag %s: %w", tag, err)
		}
		if err := r.client.Del(ctx, append(members, tk)...).Err(); err != nil {
			return fmt.Errorf("cache invalidate %s: %w", tag, err)
		}
		r.logger.Debug("cache tag invalidated", zap.String("tag", tag), zap.Int("entries", len(members)))
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

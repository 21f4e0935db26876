package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"jobradar/internal/config"
	"jobradar/internal/logging"
	"jobradar/pkg/models"
)

const (
	hashIndexKeyPrefix = "jobradar:hash:"
	watermarkKey       = "jobradar:last_run"
)

// CachedStore decorates a PersistenceStore with a Redis hot path: a
// posting-hash index that answers most duplicate probes without hitting
// the durable store, and a cached watermark. Redis failures degrade to
// the inner store; the cache is never authoritative.
type CachedStore struct {
	PersistenceStore

	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewCachedStore wraps inner with a Redis cache configured from cfg.
func NewCachedStore(inner PersistenceStore, cfg *config.Config, logger logging.Logger) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.Storage.Redis.URL)
	if err != nil {
		// Fallback to default configuration
		opts = &redis.Options{
			Addr:     "localhost:6379",
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		}
	}
	opts.DialTimeout = cfg.Storage.Redis.Timeout
	opts.ReadTimeout = cfg.Storage.Redis.Timeout
	opts.WriteTimeout = cfg.Storage.Redis.Timeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &CachedStore{
		PersistenceStore: inner,
		client:           client,
		ttl:              cfg.Storage.Redis.TTL,
		logger:           logger.WithField("component", "redis_cache"),
	}, nil
}

// SavePosting stores through to the inner store and indexes the
// posting's hashes in Redis.
func (c *CachedStore) SavePosting(ctx context.Context, posting models.NormalizedPosting) (*models.StoredPosting, error) {
	stored, err := c.PersistenceStore.SavePosting(ctx, posting)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, hashIndexKeyPrefix+posting.PrimaryHash, stored.ID, c.ttl)
	for _, fh := range posting.FuzzyHashes {
		pipe.Set(ctx, hashIndexKeyPrefix+fh, stored.ID, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Failed to index posting hashes in redis", map[string]interface{}{
			"posting_id": stored.ID,
			"error":      err.Error(),
		})
	}
	return stored, nil
}

// FindByHash consults the Redis index first. A miss falls through to the
// inner store since index entries expire.
func (c *CachedStore) FindByHash(ctx context.Context, hash string) (*models.StoredPosting, error) {
	id, err := c.client.Get(ctx, hashIndexKeyPrefix+hash).Result()
	if err == nil && id != "" {
		if stored, innerErr := c.PersistenceStore.FindByHash(ctx, hash); innerErr == nil && stored != nil {
			return stored, nil
		}
		// Stale index entry: the posting was consolidated away.
		c.client.Del(ctx, hashIndexKeyPrefix+hash)
	}
	return c.PersistenceStore.FindByHash(ctx, hash)
}

// LoadLastRunTimestamp prefers the cached watermark and falls back to
// the durable store, so a cold cache never fabricates a first run.
func (c *CachedStore) LoadLastRunTimestamp(ctx context.Context) (*time.Time, error) {
	val, err := c.client.Get(ctx, watermarkKey).Result()
	if err == nil && val != "" {
		if t, parseErr := time.Parse(time.RFC3339Nano, val); parseErr == nil {
			return &t, nil
		}
	}
	return c.PersistenceStore.LoadLastRunTimestamp(ctx)
}

// SaveLastRunTimestamp writes the durable store first; only a durable
// write advances the watermark.
func (c *CachedStore) SaveLastRunTimestamp(ctx context.Context, t time.Time) error {
	if err := c.PersistenceStore.SaveLastRunTimestamp(ctx, t); err != nil {
		return err
	}
	if err := c.client.Set(ctx, watermarkKey, t.Format(time.RFC3339Nano), 0).Err(); err != nil {
		c.logger.Warn("Failed to cache watermark", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return err
	}
	return c.PersistenceStore.Ping(ctx)
}

func (c *CachedStore) Close() error {
	_ = c.client.Close()
	return c.PersistenceStore.Close()
}

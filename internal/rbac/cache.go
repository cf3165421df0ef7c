package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "rbac:cache:version"

// CacheObserver receives cache hit/miss notifications per tier.
type CacheObserver interface {
	ObserveCache(tier, result string)
}

// BaselineCache keeps read-only snapshots of role baselines and the catalog.
// Lookups go through an in-process LRU, then Redis, then the loader. Keys carry
// a version number so Invalidate drops every snapshot at once.
type BaselineCache struct {
	client   *redis.Client
	local    *expirable.LRU[string, []byte]
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	observer CacheObserver
}

// NewBaselineCache builds the cache. A nil client disables the Redis tier.
func NewBaselineCache(client *redis.Client, size int, ttl time.Duration, logger *slog.Logger) *BaselineCache {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BaselineCache{
		client: client,
		local:  expirable.NewLRU[string, []byte](size, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// WithObserver attaches a cache observer.
func (c *BaselineCache) WithObserver(o CacheObserver) *BaselineCache {
	c.observer = o
	return c
}

// Baseline returns the enabled permission ids of roleID.
func (c *BaselineCache) Baseline(ctx context.Context, roleID int64, loader func(context.Context) ([]string, error)) ([]string, error) {
	var ids []string
	err := c.fetch(ctx, "baseline:"+strconv.FormatInt(roleID, 10), &ids, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	return ids, err
}

// Catalog returns the permission catalog rows.
func (c *BaselineCache) Catalog(ctx context.Context, loader func(context.Context) ([]PermissionRecord, error)) ([]PermissionRecord, error) {
	var records []PermissionRecord
	err := c.fetch(ctx, "catalog", &records, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	return records, err
}

// Invalidate bumps the cache version and clears the local tier.
func (c *BaselineCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.local.Purge()
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		return fmt.Errorf("rbac: bump cache version: %w", err)
	}
	return nil
}

func (c *BaselineCache) fetch(ctx context.Context, name string, dest any, loader func(context.Context) (any, error)) error {
	if c == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, dest)
	}
	key := fmt.Sprintf("rbac:%s:v%d", name, c.version(ctx))
	if raw, ok := c.local.Get(key); ok {
		c.observe("local", "hit")
		return json.Unmarshal(raw, dest)
	}
	c.observe("local", "miss")

	raw, err, _ := c.group.Do(key, func() (any, error) {
		if c.client != nil {
			payload, err := c.client.Get(ctx, key).Bytes()
			if err == nil {
				c.observe("redis", "hit")
				c.local.Add(key, payload)
				return payload, nil
			}
			if !errors.Is(err, redis.Nil) {
				c.logger.Warn("rbac cache read", slog.String("key", key), slog.Any("error", err))
			}
			c.observe("redis", "miss")
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c.client != nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.Warn("rbac cache write", slog.String("key", key), slog.Any("error", err))
			}
		}
		c.local.Add(key, payload)
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// version returns the current cache version; Redis failures fall back to 0.
func (c *BaselineCache) version(ctx context.Context) int64 {
	if c.client == nil {
		return 0
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("rbac cache version", slog.Any("error", err))
		}
		return 0
	}
	return ver
}

func (c *BaselineCache) observe(tier, result string) {
	if c.observer != nil {
		c.observer.ObserveCache(tier, result)
	}
}

func remarshal(value any, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

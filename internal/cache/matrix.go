package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	matrixKeyPrefix   = "ct:matrix:"
	catalogVersionKey = "ct:matrix:catalog-version"
)

// MatrixCache stores compatibility matrices per site. Keys embed the scope
// (the evaluation policy fingerprint), the site's last update stamp and a
// catalog version counter, so a policy change, a site edit or any scanner
// model change makes older entries unreachable; they expire through TTL.
//
// A MatrixCache with a nil client is disabled: Get always misses and the
// write operations are no-ops.
type MatrixCache struct {
	client *redis.Client
	ttl    time.Duration
	scope  string
	log    *zap.Logger
}

func NewMatrixCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *MatrixCache {
	return &MatrixCache{client: client, ttl: ttl, log: log}
}

// WithScope returns a cache whose matrix keys are isolated under scope. The
// catalog version counter stays shared.
func (c *MatrixCache) WithScope(scope string) *MatrixCache {
	if c == nil {
		return nil
	}
	scoped := *c
	scoped.scope = scope
	return &scoped
}

func (c *MatrixCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *MatrixCache) key(ctx context.Context, siteID uint, stamp int64) (string, error) {
	version, err := c.client.Get(ctx, catalogVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read catalog version: %w", err)
	}
	prefix := matrixKeyPrefix
	if c.scope != "" {
		prefix += c.scope + ":"
	}
	return fmt.Sprintf("%s%d:%d:v%d", prefix, siteID, stamp, version), nil
}

// Get decodes the cached matrix into dst and reports whether it was found.
func (c *MatrixCache) Get(ctx context.Context, siteID uint, stamp int64, dst any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	key, err := c.key(ctx, siteID, stamp)
	if err != nil {
		return false, err
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *MatrixCache) Set(ctx context.Context, siteID uint, stamp int64, v any) error {
	if !c.Enabled() {
		return nil
	}
	key, err := c.key(ctx, siteID, stamp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	c.log.Debug("cached compatibility matrix", zap.String("key", key))
	return nil
}

// BumpCatalog invalidates every cached matrix after a scanner change.
func (c *MatrixCache) BumpCatalog(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	v, err := c.client.Incr(ctx, catalogVersionKey).Result()
	if err != nil {
		return fmt.Errorf("bump catalog version: %w", err)
	}
	c.log.Debug("catalog version bumped", zap.Int64("version", v))
	return nil
}

func (c *MatrixCache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

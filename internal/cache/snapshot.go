package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncecere/fedramp_marketplace/internal/snapshot"
)

const snapshotKey = "catalog:snapshot"

// SnapshotCache stores the serialized catalog document so replicas can share
// one load from the backing source.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

// Get returns the cached document. Misses and decode failures both report false.
func (c *SnapshotCache) Get(ctx context.Context) (snapshot.Document, bool) {
	if c == nil || c.client == nil {
		return snapshot.Document{}, false
	}
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return snapshot.Document{}, false
	}
	doc, err := snapshot.Decode(bytes.NewReader(data))
	if err != nil {
		return snapshot.Document{}, false
	}
	return doc, true
}

func (c *SnapshotCache) Set(ctx context.Context, doc snapshot.Document) error {
	if c == nil || c.client == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, doc); err != nil {
		return err
	}
	if err := c.client.Set(ctx, snapshotKey, buf.Bytes(), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the cached document so the next load reads the source.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate snapshot cache: %w", err)
	}
	return nil
}

// CachedLoader serves snapshots from the cache and falls back to next.
type CachedLoader struct {
	next   snapshot.Loader
	cache  *SnapshotCache
	logger *slog.Logger
}

func NewCachedLoader(next snapshot.Loader, cache *SnapshotCache, logger *slog.Logger) *CachedLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLoader{next: next, cache: cache, logger: logger}
}

func (l *CachedLoader) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	if doc, ok := l.cache.Get(ctx); ok {
		return snapshot.FromDocument(doc), nil
	}
	snap, err := l.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.cache.Set(ctx, snap.Document()); err != nil {
		l.logger.Warn("snapshot cache write failed", slog.String("error", err.Error()))
	}
	return snap, nil
}

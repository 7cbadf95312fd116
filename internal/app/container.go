package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/fedramp_marketplace/internal/auth"
	"github.com/ncecere/fedramp_marketplace/internal/cache"
	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/db"
	"github.com/ncecere/fedramp_marketplace/internal/limits"
	"github.com/ncecere/fedramp_marketplace/internal/models"
	"github.com/ncecere/fedramp_marketplace/internal/observability"
	"github.com/ncecere/fedramp_marketplace/internal/snapshot"
	"github.com/ncecere/fedramp_marketplace/internal/storage/blob"
)

var (
	ErrAgencyNotFound   = errors.New("agency not found")
	ErrTooManyProducts  = errors.New("too many products requested")
	ErrSnapshotNotReady = errors.New("catalog snapshot not loaded")
)

// Container aggregates runtime dependencies for handlers and commands.
type Container struct {
	Config        *config.Config
	Logger        *slog.Logger
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	Loader        snapshot.Loader
	SnapshotCache *cache.SnapshotCache
	Limiter       *limits.ClientLimiter
	AdminAuth     *auth.TokenManager
	Observability *observability.Provider

	current atomic.Pointer[snapshot.Snapshot]
	tracer  trace.Tracer
}

// Options carries optional collaborators. Nil fields are skipped or built
// from config.
type Options struct {
	Logger        *slog.Logger
	DBPool        *pgxpool.Pool
	Redis         *redis.Client
	Blob          blob.Store
	Loader        snapshot.Loader
	Observability *observability.Provider
}

// GroupResult is a grouped product list together with the snapshot it was
// computed from.
type GroupResult struct {
	Snapshot  *snapshot.Snapshot
	Providers []catalog.GroupedProvider
}

// NewContainer wires the snapshot loader and performs the initial load.
func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader := opts.Loader
	if loader == nil {
		deps := snapshot.Dependencies{Blob: opts.Blob}
		if opts.DBPool != nil {
			deps.Queries = db.New(opts.DBPool)
		}
		if cfg.Catalog.Source == config.SourceBlob && deps.Blob == nil {
			store, err := blob.New(ctx, cfg.Storage)
			if err != nil {
				return nil, fmt.Errorf("init blob store: %w", err)
			}
			deps.Blob = store
		}
		built, err := snapshot.NewLoader(cfg.Catalog, deps)
		if err != nil {
			return nil, fmt.Errorf("init catalog loader: %w", err)
		}
		loader = built
	}

	// Inline config catalogs are read fresh on every load; only postgres, blob
	// and caller supplied loaders go through the redis cache.
	inlineSource := opts.Loader == nil && (cfg.Catalog.Source == "" || cfg.Catalog.Source == config.SourceConfig)
	var snapshotCache *cache.SnapshotCache
	if opts.Redis != nil && !inlineSource {
		snapshotCache = cache.NewSnapshotCache(opts.Redis, cfg.Catalog.CacheTTL)
		loader = cache.NewCachedLoader(loader, snapshotCache, logger)
	}

	var adminAuth *auth.TokenManager
	if cfg.Admin.Enabled() {
		tm, err := auth.NewTokenManager(cfg.Admin.TokenSecret, cfg.Admin.TokenTTL, cfg.Admin.Issuer)
		if err != nil {
			return nil, fmt.Errorf("init admin tokens: %w", err)
		}
		adminAuth = tm
	}

	c := &Container{
		Config:        cfg,
		Logger:        logger,
		DBPool:        opts.DBPool,
		Redis:         opts.Redis,
		Loader:        loader,
		SnapshotCache: snapshotCache,
		Limiter:       limits.NewClientLimiter(opts.Redis, cfg.Server.RateLimit),
		AdminAuth:     adminAuth,
		Observability: opts.Observability,
		tracer:        otel.Tracer("fedramp-marketplace/catalog"),
	}

	if _, err := c.Reload(ctx, false); err != nil {
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}
	return c, nil
}

// Snapshot returns the current snapshot; nil before the first load.
func (c *Container) Snapshot() *snapshot.Snapshot {
	return c.current.Load()
}

// Reload loads a new snapshot and swaps it in. With force set the shared
// cache is dropped first so the backing source is read. On failure the
// previous snapshot stays in place.
func (c *Container) Reload(ctx context.Context, force bool) (*snapshot.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.reload")
	defer span.End()

	if force {
		if err := c.SnapshotCache.Invalidate(ctx); err != nil {
			c.Logger.Warn("snapshot cache invalidate failed", slog.String("error", err.Error()))
		}
	}

	snap, err := c.Loader.Load(ctx)
	c.Observability.RecordSnapshotReload(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	previous := c.current.Swap(snap)
	attrs := []any{
		slog.String("snapshot_id", snap.ID.String()),
		slog.String("origin", snap.Origin),
		slog.Int("providers", len(snap.Providers())),
		slog.Int("products", len(snap.Products())),
		slog.Int("agencies", len(snap.Agencies())),
	}
	if previous == nil || previous.ID != snap.ID {
		c.Logger.Info("catalog snapshot loaded", attrs...)
	} else {
		c.Logger.Debug("catalog snapshot unchanged", attrs...)
	}
	span.SetAttributes(attribute.String("catalog.snapshot_id", snap.ID.String()))
	return snap, nil
}

// StartRefresher reloads the snapshot every catalog.refresh_interval until
// ctx is cancelled. A zero interval disables it.
func (c *Container) StartRefresher(ctx context.Context) {
	interval := c.Config.Catalog.RefreshInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Reload(ctx, false); err != nil {
					c.Logger.Error("catalog refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Group groups names against the current snapshot.
func (c *Container) Group(ctx context.Context, names []string) (GroupResult, error) {
	return c.group(ctx, "request", names)
}

// GroupAgency groups the products associated to the agency with the given slug.
func (c *Container) GroupAgency(ctx context.Context, slug string) (models.Agency, GroupResult, error) {
	snap := c.Snapshot()
	if snap == nil {
		return models.Agency{}, GroupResult{}, ErrSnapshotNotReady
	}
	agency, ok := snap.AgencyBySlug(slug)
	if !ok {
		return models.Agency{}, GroupResult{}, fmt.Errorf("%w: %s", ErrAgencyNotFound, slug)
	}
	result, err := c.groupOn(ctx, snap, "agency", agency.Products)
	return agency, result, err
}

// CheckRequestSize rejects product lists longer than
// server.max_requested_products.
func (c *Container) CheckRequestSize(n int) error {
	if limit := c.Config.Server.MaxRequestedProducts; limit > 0 && n > limit {
		return fmt.Errorf("%w: %d > %d", ErrTooManyProducts, n, limit)
	}
	return nil
}

func (c *Container) group(ctx context.Context, origin string, names []string) (GroupResult, error) {
	snap := c.Snapshot()
	if snap == nil {
		return GroupResult{}, ErrSnapshotNotReady
	}
	if err := c.CheckRequestSize(len(names)); err != nil {
		return GroupResult{}, err
	}
	return c.groupOn(ctx, snap, origin, names)
}

func (c *Container) groupOn(ctx context.Context, snap *snapshot.Snapshot, origin string, names []string) (GroupResult, error) {
	_, span := c.tracer.Start(ctx, "catalog.group", trace.WithAttributes(
		attribute.String("catalog.origin", origin),
		attribute.String("catalog.snapshot_id", snap.ID.String()),
		attribute.Int("catalog.requested", len(names)),
	))
	defer span.End()

	providers := catalog.NewGrouper(snap).Group(names)

	unresolved := 0
	for _, group := range providers {
		for _, entry := range group.Products {
			if !entry.Resolved {
				unresolved++
			}
		}
	}
	if unresolved > 0 {
		c.Logger.Debug("grouped products without product record",
			slog.String("snapshot_id", snap.ID.String()),
			slog.Int("unresolved", unresolved),
		)
	}
	span.SetAttributes(
		attribute.Int("catalog.providers", len(providers)),
		attribute.Int("catalog.unresolved", unresolved),
	)
	c.Observability.RecordGroup(origin, len(providers), unresolved)
	return GroupResult{Snapshot: snap, Providers: providers}, nil
}

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/cache"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/models"
	"github.com/ncecere/fedramp_marketplace/internal/snapshot"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0", MaxRequestedProducts: 3},
		Catalog: config.CatalogConfig{
			Source: config.SourceConfig,
			Providers: []models.Provider{
				{Name: "Microsoft", Products: []models.ProviderProduct{{Name: "Azure Government"}, {Name: "Office 365"}}},
				{Name: "Amazon Web Services", Products: []models.ProviderProduct{{Name: "AWS GovCloud"}}},
			},
			Products: []models.Product{{Name: "Azure Government"}, {Name: "AWS GovCloud"}},
			Agencies: []models.AgencyOptions{
				{Name: "Department of Energy", Products: []string{"AWS GovCloud", "Office 365"}},
			},
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContainer(t *testing.T, opts Options) *Container {
	t.Helper()
	opts.Logger = discardLogger()
	container, err := NewContainer(context.Background(), testConfig(), opts)
	require.NoError(t, err)
	return container
}

func TestContainerGroupsAgainstCurrentSnapshot(t *testing.T) {
	container := newTestContainer(t, Options{})

	result, err := container.Group(context.Background(), []string{"AWS GovCloud", "Azure Government"})
	require.NoError(t, err)
	require.Equal(t, container.Snapshot().ID, result.Snapshot.ID)
	require.Len(t, result.Providers, 2)
	require.Equal(t, "Amazon Web Services", result.Providers[0].Name)
	require.Equal(t, "Microsoft", result.Providers[1].Name)
}

func TestContainerRejectsOversizedRequests(t *testing.T) {
	container := newTestContainer(t, Options{})

	_, err := container.Group(context.Background(), []string{"a", "b", "c", "d"})
	require.ErrorIs(t, err, ErrTooManyProducts)
}

func TestContainerGroupAgency(t *testing.T) {
	container := newTestContainer(t, Options{})

	agency, result, err := container.GroupAgency(context.Background(), "department-of-energy")
	require.NoError(t, err)
	require.Equal(t, "Department of Energy", agency.Name)
	require.Len(t, result.Providers, 2)
	require.Equal(t, "Microsoft", result.Providers[1].Name)
	require.False(t, result.Providers[1].Products[0].Resolved)

	_, _, err = container.GroupAgency(context.Background(), "nasa")
	require.ErrorIs(t, err, ErrAgencyNotFound)
}

func TestContainerReloadKeepsPreviousSnapshotOnFailure(t *testing.T) {
	var fail atomic.Bool
	base := snapshot.NewConfigLoader(testConfig().Catalog)
	loader := snapshot.LoaderFunc(func(ctx context.Context) (*snapshot.Snapshot, error) {
		if fail.Load() {
			return nil, errors.New("source unavailable")
		}
		return base.Load(ctx)
	})
	container := newTestContainer(t, Options{Loader: loader})
	before := container.Snapshot()

	fail.Store(true)
	_, err := container.Reload(context.Background(), true)
	require.Error(t, err)
	require.Same(t, before, container.Snapshot())

	fail.Store(false)
	after, err := container.Reload(context.Background(), true)
	require.NoError(t, err)
	require.NotEqual(t, before.ID, after.ID)
}

func TestContainerSharesSnapshotThroughRedis(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer server.Close()
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	base := snapshot.NewConfigLoader(testConfig().Catalog)
	loader := snapshot.LoaderFunc(base.Load)
	first := newTestContainer(t, Options{Redis: client, Loader: loader})
	second := newTestContainer(t, Options{Redis: client, Loader: loader})
	require.Equal(t, first.Snapshot().ID, second.Snapshot().ID)

	forced, err := second.Reload(context.Background(), true)
	require.NoError(t, err)
	require.NotEqual(t, first.Snapshot().ID, forced.ID)
}

func TestContainerRefresherReloads(t *testing.T) {
	var loads atomic.Int32
	base := snapshot.NewConfigLoader(testConfig().Catalog)
	loader := snapshot.LoaderFunc(func(ctx context.Context) (*snapshot.Snapshot, error) {
		loads.Add(1)
		return base.Load(ctx)
	})
	cfg := testConfig()
	cfg.Catalog.RefreshInterval = 10 * time.Millisecond
	container, err := NewContainer(context.Background(), cfg, Options{Loader: loader, Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	container.StartRefresher(ctx)

	require.Eventually(t, func() bool { return loads.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewContainerRequiresConfig(t *testing.T) {
	_, err := NewContainer(context.Background(), nil, Options{})
	require.Error(t, err)
}

func TestCheckRequestSize(t *testing.T) {
	container := newTestContainer(t, Options{})

	require.NoError(t, container.CheckRequestSize(3))
	require.ErrorIs(t, container.CheckRequestSize(4), ErrTooManyProducts)

	container.Config.Server.MaxRequestedProducts = 0
	require.NoError(t, container.CheckRequestSize(10_000))
}

func TestInlineConfigCatalogBypassesRedisCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stale := snapshot.New("config", []models.Provider{{Name: "Retired Provider"}}, nil, nil)
	require.NoError(t, cache.NewSnapshotCache(client, time.Minute).Set(context.Background(), stale.Document()))

	container := newTestContainer(t, Options{Redis: client})
	require.Nil(t, container.SnapshotCache)
	require.NotEqual(t, stale.ID, container.Snapshot().ID)
	require.Len(t, container.Snapshot().Providers(), 2)
	require.Equal(t, "Microsoft", container.Snapshot().Providers()[0].Name)
}

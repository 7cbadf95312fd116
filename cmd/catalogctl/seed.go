package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncecere/fedramp_marketplace/internal/cache"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/database"
	"github.com/ncecere/fedramp_marketplace/internal/db"
	"github.com/ncecere/fedramp_marketplace/internal/models"
	"github.com/ncecere/fedramp_marketplace/internal/redisclient"
)

var flagSeedMigrate bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert the inline config catalog into postgres",
	Long: `Seed writes the providers, products and agencies declared under the
catalog section of the config file into the catalog tables, keeping their
declaration order. Rows no longer in the config are deleted. A configured redis snapshot cache is invalidated.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&flagSeedMigrate, "migrate", true, "Apply database migrations before seeding")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("missing required configuration: CATALOG_DATABASE_URL")
	}
	ctx := commandContext(cmd)
	logger := commandLogger(cmd.ErrOrStderr())

	if flagSeedMigrate {
		migrateCfg := cfg.Database
		migrateCfg.RunMigrations = true
		if err := database.RunMigrations(ctx, migrateCfg, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	counts, err := seedCatalog(ctx, db.New(pool).WithTx(tx), cfg.Catalog)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	if redisclient.Enabled(cfg.Redis) {
		client := redisclient.New(cfg.Redis)
		defer client.Close()
		if err := cache.NewSnapshotCache(client, cfg.Catalog.CacheTTL).Invalidate(ctx); err != nil {
			logger.Warn("snapshot cache invalidate failed", "error", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d providers, %d products, %d agencies (%d stale rows removed)\n",
		counts.providers, counts.products, counts.agencies, counts.removed)
	return nil
}

// Seeder is the write side of db.Queries used for seeding.
type Seeder interface {
	UpsertCatalogProvider(ctx context.Context, arg db.CatalogProvider) error
	UpsertCatalogProduct(ctx context.Context, arg db.CatalogProduct) error
	UpsertCatalogAgency(ctx context.Context, arg db.CatalogAgency) error
	DeleteCatalogProvidersExcept(ctx context.Context, keep []string) (int64, error)
	DeleteCatalogProductsExcept(ctx context.Context, keep []string) (int64, error)
	DeleteCatalogAgenciesExcept(ctx context.Context, keep []string) (int64, error)
}

type seedCounts struct {
	providers int
	products  int
	agencies  int
	removed   int64
}

// seedCatalog makes the catalog tables mirror cfg: rows missing from cfg are
// deleted, the rest are upserted with their declaration position.
func seedCatalog(ctx context.Context, q Seeder, cfg config.CatalogConfig) (seedCounts, error) {
	var counts seedCounts
	if err := pruneCatalog(ctx, q, cfg, &counts); err != nil {
		return counts, err
	}
	for i, p := range cfg.Providers {
		if err := q.UpsertCatalogProvider(ctx, db.CatalogProvider{
			Name:         p.Name,
			Position:     int32(i),
			ProductNames: p.ProductNames(),
		}); err != nil {
			return counts, fmt.Errorf("upsert provider %s: %w", p.Name, err)
		}
		counts.providers++
	}
	for i, p := range cfg.Products {
		if err := q.UpsertCatalogProduct(ctx, db.CatalogProduct{
			Name:              p.Name,
			Position:          int32(i),
			PackageID:         p.PackageID,
			Provider:          p.Provider,
			ServiceModels:     p.ServiceModels,
			DeploymentModel:   p.DeploymentModel,
			ImpactLevel:       p.ImpactLevel,
			Designation:       p.Designation,
			Description:       p.Description,
			Website:           p.Website,
			AuthorizationDate: p.AuthorizationDate,
		}); err != nil {
			return counts, fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
		counts.products++
	}
	for i, opts := range cfg.Agencies {
		a := models.NewAgency(opts)
		if err := q.UpsertCatalogAgency(ctx, db.CatalogAgency{
			Name:       a.Name,
			Position:   int32(i),
			Reuses:     int32(a.Reuses),
			Sponsored:  int32(a.Sponsored),
			Authorized: int32(a.Authorized),
			Providers:  a.Providers,
			Products:   a.Products,
			Assessors:  a.Assessors,
		}); err != nil {
			return counts, fmt.Errorf("upsert agency %s: %w", a.Name, err)
		}
		counts.agencies++
	}
	return counts, nil
}

func pruneCatalog(ctx context.Context, q Seeder, cfg config.CatalogConfig, counts *seedCounts) error {
	providers := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, p.Name)
	}
	products := make([]string, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		products = append(products, p.Name)
	}
	agencies := make([]string, 0, len(cfg.Agencies))
	for _, a := range cfg.Agencies {
		agencies = append(agencies, a.Name)
	}

	for _, step := range []struct {
		table string
		run   func(context.Context, []string) (int64, error)
		keep  []string
	}{
		{"providers", q.DeleteCatalogProvidersExcept, providers},
		{"products", q.DeleteCatalogProductsExcept, products},
		{"agencies", q.DeleteCatalogAgenciesExcept, agencies},
	} {
		n, err := step.run(ctx, step.keep)
		if err != nil {
			return fmt.Errorf("prune catalog %s: %w", step.table, err)
		}
		counts.removed += n
	}
	return nil
}

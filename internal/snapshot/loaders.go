package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/db"
	"github.com/ncecere/fedramp_marketplace/internal/models"
	"github.com/ncecere/fedramp_marketplace/internal/storage/blob"
)

var ErrUnknownSource = errors.New("unknown catalog source")

// ConfigLoader serves the catalog declared inline in the config file.
type ConfigLoader struct {
	cfg config.CatalogConfig
}

func NewConfigLoader(cfg config.CatalogConfig) *ConfigLoader {
	return &ConfigLoader{cfg: cfg}
}

func (l *ConfigLoader) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	agencies := make([]models.Agency, 0, len(l.cfg.Agencies))
	for _, opts := range l.cfg.Agencies {
		agencies = append(agencies, models.NewAgency(opts))
	}
	return New(config.SourceConfig, l.cfg.Providers, l.cfg.Products, agencies), nil
}

// Queries is the subset of db.Queries the postgres loader reads.
type Queries interface {
	ListCatalogProviders(ctx context.Context) ([]db.CatalogProvider, error)
	ListCatalogProducts(ctx context.Context) ([]db.CatalogProduct, error)
	ListCatalogAgencies(ctx context.Context) ([]db.CatalogAgency, error)
}

// PostgresLoader reads the catalog tables in position order.
type PostgresLoader struct {
	queries Queries
}

func NewPostgresLoader(queries Queries) *PostgresLoader {
	return &PostgresLoader{queries: queries}
}

func (l *PostgresLoader) Load(ctx context.Context) (*Snapshot, error) {
	providerRows, err := l.queries.ListCatalogProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog providers: %w", err)
	}
	productRows, err := l.queries.ListCatalogProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog products: %w", err)
	}
	agencyRows, err := l.queries.ListCatalogAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog agencies: %w", err)
	}

	providers := make([]models.Provider, 0, len(providerRows))
	for _, row := range providerRows {
		p := models.Provider{Name: row.Name, Products: make([]models.ProviderProduct, 0, len(row.ProductNames))}
		for _, name := range row.ProductNames {
			p.Products = append(p.Products, models.ProviderProduct{Name: name})
		}
		providers = append(providers, p)
	}

	products := make([]models.Product, 0, len(productRows))
	for _, row := range productRows {
		products = append(products, models.Product{
			Name:              row.Name,
			PackageID:         row.PackageID,
			Provider:          row.Provider,
			ServiceModels:     row.ServiceModels,
			DeploymentModel:   row.DeploymentModel,
			ImpactLevel:       row.ImpactLevel,
			Designation:       row.Designation,
			Description:       row.Description,
			Website:           row.Website,
			AuthorizationDate: row.AuthorizationDate,
		})
	}

	agencies := make([]models.Agency, 0, len(agencyRows))
	for _, row := range agencyRows {
		agencies = append(agencies, models.NewAgency(models.AgencyOptions{
			Name:       row.Name,
			Reuses:     int(row.Reuses),
			Sponsored:  int(row.Sponsored),
			Authorized: int(row.Authorized),
			Providers:  row.Providers,
			Products:   row.Products,
			Assessors:  row.Assessors,
		}))
	}

	return New(config.SourcePostgres, providers, products, agencies), nil
}

// BlobLoader decodes a JSON document stored under key.
type BlobLoader struct {
	store blob.Store
	key   string
}

func NewBlobLoader(store blob.Store, key string) *BlobLoader {
	return &BlobLoader{store: store, key: key}
}

func (l *BlobLoader) Load(ctx context.Context) (*Snapshot, error) {
	reader, _, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("read catalog document %s: %w", l.key, err)
	}
	defer reader.Close()

	doc, err := Decode(reader)
	if err != nil {
		return nil, err
	}
	snap := FromDocument(doc)
	if snap.Origin == "" {
		snap.Origin = config.SourceBlob
	}
	return snap, nil
}

// Dependencies carries the collaborators a loader may need.
type Dependencies struct {
	Queries Queries
	Blob    blob.Store
}

// NewLoader picks the loader configured by catalog.source.
func NewLoader(cfg config.CatalogConfig, deps Dependencies) (Loader, error) {
	switch cfg.Source {
	case "", config.SourceConfig:
		return NewConfigLoader(cfg), nil
	case config.SourcePostgres:
		if deps.Queries == nil {
			return nil, fmt.Errorf("catalog source postgres requires a database connection")
		}
		return NewPostgresLoader(deps.Queries), nil
	case config.SourceBlob:
		if deps.Blob == nil {
			return nil, fmt.Errorf("catalog source blob requires a blob store")
		}
		return NewBlobLoader(deps.Blob, cfg.BlobKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, cfg.Source)
	}
}

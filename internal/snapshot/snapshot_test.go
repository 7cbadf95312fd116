package snapshot

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/db"
	"github.com/ncecere/fedramp_marketplace/internal/models"
	"github.com/ncecere/fedramp_marketplace/internal/storage/blob"
)

func testCatalog() config.CatalogConfig {
	return config.CatalogConfig{
		Source:  config.SourceConfig,
		BlobKey: "catalog/snapshot.json",
		Providers: []models.Provider{
			{Name: "Amazon", Products: []models.ProviderProduct{{Name: "AWS"}}},
			{Name: "amazon", Products: []models.ProviderProduct{{Name: "AWS2"}}},
		},
		Products: []models.Product{{Name: "AWS"}, {Name: "AWS2"}},
		Agencies: []models.AgencyOptions{{Name: "Department of Energy", Products: []string{"AWS2"}}},
	}
}

func TestConfigLoaderBuildsGroupableSnapshot(t *testing.T) {
	snap, err := NewConfigLoader(testCatalog()).Load(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, snap.ID)
	require.Equal(t, config.SourceConfig, snap.Origin)

	grouped := catalog.NewGrouper(snap).Group([]string{"AWS", "AWS2"})
	require.Len(t, grouped, 2)
	require.Equal(t, "Amazon", grouped[0].Name)
	require.Equal(t, "amazon", grouped[1].Name)

	agency, ok := snap.AgencyBySlug("department-of-energy")
	require.True(t, ok)
	require.Equal(t, models.AgencyType, agency.Type)
	require.Equal(t, []string{"AWS2"}, agency.Products)
	require.Equal(t, []string{}, agency.Assessors)

	_, ok = snap.AgencyBySlug("nasa")
	require.False(t, ok)
}

func TestSnapshotIsolatedFromInputs(t *testing.T) {
	providers := []models.Provider{{Name: "Google", Products: []models.ProviderProduct{{Name: "GCP"}}}}
	snap := New("test", providers, nil, nil)

	providers[0].Products[0].Name = "changed"
	require.Equal(t, "GCP", snap.Providers()[0].Products[0].Name)
}

func TestDocumentRoundTripKeepsIdentity(t *testing.T) {
	snap, err := NewConfigLoader(testCatalog()).Load(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap.Document()))
	doc, err := Decode(&buf)
	require.NoError(t, err)

	restored := FromDocument(doc)
	require.Equal(t, snap.ID, restored.ID)
	require.True(t, snap.LoadedAt.Equal(restored.LoadedAt))
	require.Equal(t, snap.Providers(), restored.Providers())
	require.Equal(t, snap.Agencies(), restored.Agencies())
}

type stubQueries struct {
	providers []db.CatalogProvider
	products  []db.CatalogProduct
	agencies  []db.CatalogAgency
	err       error
}

func (s *stubQueries) ListCatalogProviders(context.Context) ([]db.CatalogProvider, error) {
	return s.providers, s.err
}

func (s *stubQueries) ListCatalogProducts(context.Context) ([]db.CatalogProduct, error) {
	return s.products, nil
}

func (s *stubQueries) ListCatalogAgencies(context.Context) ([]db.CatalogAgency, error) {
	return s.agencies, nil
}

func TestPostgresLoaderMapsRows(t *testing.T) {
	stub := &stubQueries{
		providers: []db.CatalogProvider{{Name: "Google", ProductNames: []string{"GCP", "GCP"}}},
		products:  []db.CatalogProduct{{Name: "GCP", PackageID: "F1", ServiceModels: []string{"IaaS"}, ImpactLevel: "Moderate"}},
		agencies:  []db.CatalogAgency{{Name: "GSA", Reuses: 7}},
	}

	snap, err := NewPostgresLoader(stub).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, config.SourcePostgres, snap.Origin)
	require.Equal(t, []string{"GCP", "GCP"}, snap.Providers()[0].ProductNames())
	require.Equal(t, "Moderate", snap.Products()[0].ImpactLevel)
	require.Equal(t, 7, snap.Agencies()[0].Reuses)
	require.Equal(t, []string{}, snap.Agencies()[0].Providers)

	grouped := catalog.NewGrouper(snap).Group([]string{"GCP"})
	require.Len(t, grouped, 1)
	require.Len(t, grouped[0].Products, 1)
}

func TestPostgresLoaderPropagatesErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewPostgresLoader(&stubQueries{err: boom}).Load(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestBlobLoaderReadsPublishedDocument(t *testing.T) {
	ctx := context.Background()
	store, err := blob.New(ctx, config.StorageConfig{Backend: "local", Local: config.StorageLocalConfig{Directory: t.TempDir()}})
	require.NoError(t, err)

	published, err := NewConfigLoader(testCatalog()).Load(ctx)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, published.Document()))
	_, err = store.Put(ctx, "catalog/snapshot.json", &buf, blob.PutOptions{ContentType: "application/json"})
	require.NoError(t, err)

	snap, err := NewBlobLoader(store, "catalog/snapshot.json").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, published.ID, snap.ID)
	require.Len(t, snap.Products(), 2)

	_, err = NewBlobLoader(store, "catalog/missing.json").Load(ctx)
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestNewLoaderSelectsSource(t *testing.T) {
	cfg := testCatalog()

	loader, err := NewLoader(cfg, Dependencies{})
	require.NoError(t, err)
	require.IsType(t, &ConfigLoader{}, loader)

	cfg.Source = config.SourcePostgres
	_, err = NewLoader(cfg, Dependencies{})
	require.Error(t, err)
	loader, err = NewLoader(cfg, Dependencies{Queries: &stubQueries{}})
	require.NoError(t, err)
	require.IsType(t, &PostgresLoader{}, loader)

	cfg.Source = config.SourceBlob
	_, err = NewLoader(cfg, Dependencies{})
	require.Error(t, err)

	cfg.Source = "ftp"
	_, err = NewLoader(cfg, Dependencies{})
	require.ErrorIs(t, err, ErrUnknownSource)
}

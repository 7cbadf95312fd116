package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ncecere/fedramp_marketplace/internal/auth"
	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/config"
	"github.com/ncecere/fedramp_marketplace/internal/db"
	"github.com/ncecere/fedramp_marketplace/internal/models"
)

func sampleGroups() []catalog.GroupedProvider {
	return []catalog.GroupedProvider{
		{Name: "Amazon Web Services", Slug: "amazon-web-services", Products: []catalog.CatalogEntry{
			{Product: models.Product{Name: "AWS GovCloud", ImpactLevel: "High"}, Slug: "aws-govcloud", Resolved: true},
		}},
		{Name: "Microsoft", Slug: "microsoft", Products: []catalog.CatalogEntry{
			{Product: models.Product{Name: "Office 365"}, Slug: "office-365"},
		}},
	}
}

func TestWriteGroupsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeGroups(&buf, "text", sampleGroups()))
	require.Equal(t, "Amazon Web Services (amazon-web-services)\n  - AWS GovCloud\n\nMicrosoft (microsoft)\n  - Office 365 [no product record]\n", buf.String())

	buf.Reset()
	require.NoError(t, writeGroups(&buf, "text", nil))
	require.Equal(t, "no providers offer the requested products\n", buf.String())
}

func TestWriteGroupsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeGroups(&buf, "yaml", sampleGroups()))

	var decoded []yamlGroup
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "High", decoded[0].Products[0].Impact)
	require.False(t, decoded[1].Products[0].Resolved)
}

func TestWriteGroupsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeGroups(&buf, "json", sampleGroups()))
	require.Contains(t, buf.String(), `"slug": "aws-govcloud"`)
	require.Contains(t, buf.String(), `"resolved": false`)
}

// memoryCatalog keeps rows keyed by name the way the catalog tables do.
type memoryCatalog struct {
	providers map[string]db.CatalogProvider
	products  map[string]db.CatalogProduct
	agencies  map[string]db.CatalogAgency
	failOn    string
}

func newMemoryCatalog() *memoryCatalog {
	return &memoryCatalog{
		providers: map[string]db.CatalogProvider{},
		products:  map[string]db.CatalogProduct{},
		agencies:  map[string]db.CatalogAgency{},
	}
}

func (m *memoryCatalog) UpsertCatalogProvider(_ context.Context, arg db.CatalogProvider) error {
	if arg.Name == m.failOn {
		return errors.New("boom")
	}
	m.providers[arg.Name] = arg
	return nil
}

func (m *memoryCatalog) UpsertCatalogProduct(_ context.Context, arg db.CatalogProduct) error {
	m.products[arg.Name] = arg
	return nil
}

func (m *memoryCatalog) UpsertCatalogAgency(_ context.Context, arg db.CatalogAgency) error {
	m.agencies[arg.Name] = arg
	return nil
}

func deleteExcept[T any](rows map[string]T, keep []string) int64 {
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}
	var n int64
	for name := range rows {
		if !kept[name] {
			delete(rows, name)
			n++
		}
	}
	return n
}

func (m *memoryCatalog) DeleteCatalogProvidersExcept(_ context.Context, keep []string) (int64, error) {
	return deleteExcept(m.providers, keep), nil
}

func (m *memoryCatalog) DeleteCatalogProductsExcept(_ context.Context, keep []string) (int64, error) {
	return deleteExcept(m.products, keep), nil
}

func (m *memoryCatalog) DeleteCatalogAgenciesExcept(_ context.Context, keep []string) (int64, error) {
	return deleteExcept(m.agencies, keep), nil
}

func seedConfig() config.CatalogConfig {
	return config.CatalogConfig{
		Providers: []models.Provider{
			{Name: "Microsoft", Products: []models.ProviderProduct{{Name: "Azure Government"}, {Name: "Office 365"}}},
			{Name: "Google", Products: []models.ProviderProduct{{Name: "Workspace"}}},
		},
		Products: []models.Product{{Name: "Azure Government", ServiceModels: []string{"IaaS", "PaaS"}}},
		Agencies: []models.AgencyOptions{{Name: "Department of Energy", Reuses: 4}},
	}
}

func TestSeedCatalogKeepsDeclarationOrder(t *testing.T) {
	store := newMemoryCatalog()
	counts, err := seedCatalog(context.Background(), store, seedConfig())
	require.NoError(t, err)
	require.Equal(t, seedCounts{providers: 2, products: 1, agencies: 1}, counts)

	require.Equal(t, int32(1), store.providers["Google"].Position)
	require.Equal(t, []string{"Azure Government", "Office 365"}, store.providers["Microsoft"].ProductNames)
	require.Equal(t, []string{"IaaS", "PaaS"}, store.products["Azure Government"].ServiceModels)

	agency := store.agencies["Department of Energy"]
	require.Equal(t, int32(4), agency.Reuses)
	require.Equal(t, int32(0), agency.Authorized)
	require.NotNil(t, agency.Assessors)
}

func TestSeedCatalogStopsOnError(t *testing.T) {
	store := newMemoryCatalog()
	store.failOn = "Google"
	counts, err := seedCatalog(context.Background(), store, seedConfig())
	require.ErrorContains(t, err, "upsert provider Google")
	require.Equal(t, 1, counts.providers)
	require.Empty(t, store.products)
}

func TestReseedRemovesRowsDroppedFromConfig(t *testing.T) {
	store := newMemoryCatalog()
	_, err := seedCatalog(context.Background(), store, seedConfig())
	require.NoError(t, err)

	cfg := seedConfig()
	cfg.Providers = cfg.Providers[1:]
	cfg.Agencies = nil
	counts, err := seedCatalog(context.Background(), store, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.removed)

	require.Len(t, store.providers, 1)
	require.Contains(t, store.providers, "Google")
	require.Equal(t, int32(0), store.providers["Google"].Position)
	require.Empty(t, store.agencies)
	require.Len(t, store.products, 1)
}

func TestIssueTokenVerifiesAgainstSameSecret(t *testing.T) {
	cfg := config.AdminConfig{TokenSecret: "0123456789abcdef-test", TokenTTL: time.Hour, Issuer: "fedramp-marketplace"}

	var buf bytes.Buffer
	require.NoError(t, issueToken(&buf, cfg, "ops", 0))

	tm, err := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL, cfg.Issuer)
	require.NoError(t, err)
	subject, err := tm.Verify(strings.TrimSpace(buf.String()))
	require.NoError(t, err)
	require.Equal(t, "ops", subject)

	require.ErrorContains(t, issueToken(&buf, config.AdminConfig{}, "ops", 0), "CATALOG_ADMIN_TOKEN_SECRET")
}

// Package snapshot holds immutable catalog snapshots and the loaders that
// build them from config, postgres or the blob store.
package snapshot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ncecere/fedramp_marketplace/internal/catalog"
	"github.com/ncecere/fedramp_marketplace/internal/models"
)

// Snapshot is a read-only copy of the catalog. It satisfies catalog.Source.
type Snapshot struct {
	ID       uuid.UUID
	Origin   string
	LoadedAt time.Time

	providers []models.Provider
	products  []models.Product
	agencies  []models.Agency
}

var _ catalog.Source = (*Snapshot)(nil)

// Loader produces a fresh snapshot.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Snapshot, error)

func (f LoaderFunc) Load(ctx context.Context) (*Snapshot, error) { return f(ctx) }

// New copies the given records into a snapshot with a fresh id.
func New(origin string, providers []models.Provider, products []models.Product, agencies []models.Agency) *Snapshot {
	return &Snapshot{
		ID:        uuid.New(),
		Origin:    origin,
		LoadedAt:  time.Now().UTC(),
		providers: cloneProviders(providers),
		products:  cloneProducts(products),
		agencies:  cloneAgencies(agencies),
	}
}

func (s *Snapshot) Providers() []models.Provider {
	if s == nil {
		return nil
	}
	return s.providers
}

func (s *Snapshot) Products() []models.Product {
	if s == nil {
		return nil
	}
	return s.products
}

func (s *Snapshot) Agencies() []models.Agency {
	if s == nil {
		return nil
	}
	return s.agencies
}

// AgencyBySlug finds the first agency whose slugified name equals slug.
func (s *Snapshot) AgencyBySlug(slug string) (models.Agency, bool) {
	for _, agency := range s.Agencies() {
		if catalog.Slugify(agency.Name) == slug {
			return agency, true
		}
	}
	return models.Agency{}, false
}

// Age reports how long ago the snapshot was built.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.LoadedAt.IsZero() {
		return 0
	}
	return now.Sub(s.LoadedAt)
}

func cloneProviders(in []models.Provider) []models.Provider {
	out := make([]models.Provider, len(in))
	for i, p := range in {
		out[i] = models.Provider{Name: p.Name, Products: append([]models.ProviderProduct{}, p.Products...)}
	}
	return out
}

func cloneProducts(in []models.Product) []models.Product {
	out := make([]models.Product, len(in))
	for i, p := range in {
		out[i] = p
		if p.ServiceModels != nil {
			out[i].ServiceModels = append([]string{}, p.ServiceModels...)
		}
	}
	return out
}

func cloneAgencies(in []models.Agency) []models.Agency {
	out := make([]models.Agency, len(in))
	for i, a := range in {
		out[i] = models.NewAgency(models.AgencyOptions{
			Name:       a.Name,
			Reuses:     a.Reuses,
			Sponsored:  a.Sponsored,
			Authorized: a.Authorized,
			Providers:  a.Providers,
			Products:   a.Products,
			Assessors:  a.Assessors,
		})
	}
	return out
}

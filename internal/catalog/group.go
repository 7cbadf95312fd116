package catalog

import "github.com/ncecere/fedramp_marketplace/internal/models"

// CatalogEntry pairs a product with its link slug. Resolved is false when the
// provider lists a product name that has no product record; Product then only
// carries the name.
type CatalogEntry struct {
	Product  models.Product `json:"product"`
	Slug     string         `json:"slug"`
	Resolved bool           `json:"resolved"`
}

// GroupedProvider is one provider bucket of the grouped output.
type GroupedProvider struct {
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Products []CatalogEntry `json:"products"`
}

// Grouper turns a list of product names into provider buckets sorted by
// provider name. It holds no mutable state and is safe for concurrent use.
type Grouper struct {
	source   Source
	resolver *Resolver
	slugify  Slugifier
}

type Option func(*Grouper)

// WithSlugifier replaces the default Slugify.
func WithSlugifier(fn Slugifier) Option {
	return func(g *Grouper) {
		if fn != nil {
			g.slugify = fn
		}
	}
}

func NewGrouper(source Source, opts ...Option) *Grouper {
	g := &Grouper{
		source:   source,
		resolver: NewResolver(source),
		slugify:  Slugify,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group returns one GroupedProvider for every provider that lists at least one
// of the requested names. For each requested name every listing provider gets
// one entry, however many times it lists the name. Entries keep discovery
// order; providers are sorted with CompareNames.
func (g *Grouper) Group(requested []string) []GroupedProvider {
	result := make([]GroupedProvider, 0)
	if len(requested) == 0 || g.source == nil {
		return result
	}

	providers := g.source.Providers()
	index := indexProviders(providers)

	buckets := make(map[string][]CatalogEntry)
	var keys []string
	for _, name := range requested {
		for _, idx := range index[name] {
			providerName := providers[idx].Name
			if _, ok := buckets[providerName]; !ok {
				keys = append(keys, providerName)
			}
			buckets[providerName] = append(buckets[providerName], g.entry(name))
		}
	}

	SortNames(keys)
	for _, key := range keys {
		result = append(result, GroupedProvider{
			Name:     key,
			Slug:     g.slugify(key),
			Products: buckets[key],
		})
	}
	return result
}

func (g *Grouper) entry(name string) CatalogEntry {
	product, err := g.resolver.Resolve(name)
	if err != nil {
		return CatalogEntry{
			Product: models.Product{Name: name},
			Slug:    g.slugify(name),
		}
	}
	return CatalogEntry{
		Product:  product,
		Slug:     g.slugify(name),
		Resolved: true,
	}
}

// indexProviders maps each listed product name to the indexes of the
// providers listing it, in provider order and at most once per provider.
func indexProviders(providers []models.Provider) map[string][]int {
	index := make(map[string][]int)
	for i, provider := range providers {
		seen := make(map[string]struct{}, len(provider.Products))
		for _, product := range provider.Products {
			if _, dup := seen[product.Name]; dup {
				continue
			}
			seen[product.Name] = struct{}{}
			index[product.Name] = append(index[product.Name], i)
		}
	}
	return index
}

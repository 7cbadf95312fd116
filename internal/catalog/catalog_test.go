package catalog

import "github.com/ncecere/fedramp_marketplace/internal/models"

type staticSource struct {
	providers []models.Provider
	products  []models.Product
}

func (s staticSource) Providers() []models.Provider { return s.providers }
func (s staticSource) Products() []models.Product   { return s.products }

func provider(name string, products ...string) models.Provider {
	p := models.Provider{Name: name}
	for _, product := range products {
		p.Products = append(p.Products, models.ProviderProduct{Name: product})
	}
	return p
}

func products(names ...string) []models.Product {
	out := make([]models.Product, 0, len(names))
	for _, name := range names {
		out = append(out, models.Product{Name: name, Description: name + " description"})
	}
	return out
}

func providerNames(groups []GroupedProvider) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}

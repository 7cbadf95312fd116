package catalog

import (
	"errors"
	"fmt"

	"github.com/ncecere/fedramp_marketplace/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// Resolver looks up full product records by exact name.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the first product named name. A miss returns an error
// wrapping ErrProductNotFound.
func (r *Resolver) Resolve(name string) (models.Product, error) {
	if r == nil || r.source == nil {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
	}
	for _, product := range r.source.Products() {
		if product.Name == name {
			return product, nil
		}
	}
	return models.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, name)
}

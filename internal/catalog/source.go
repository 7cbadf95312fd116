package catalog

import "github.com/ncecere/fedramp_marketplace/internal/models"

// Source exposes a consistent, read-only view of the catalog. Implementations
// must not mutate the returned slices while a caller holds them.
type Source interface {
	Providers() []models.Provider
	Products() []models.Product
}

// Slugifier maps a display name to a deterministic URL-safe token.
type Slugifier func(name string) string

package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/models"
)

func TestResolverFindsExactName(t *testing.T) {
	r := NewResolver(staticSource{products: products("AWS", "GCP")})

	product, err := r.Resolve("GCP")
	require.NoError(t, err)
	require.Equal(t, "GCP", product.Name)
}

func TestResolverMissReturnsNotFound(t *testing.T) {
	r := NewResolver(staticSource{products: products("AWS")})

	_, err := r.Resolve("aws")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrProductNotFound))
}

func TestResolverPrefersFirstDuplicate(t *testing.T) {
	r := NewResolver(staticSource{products: []models.Product{
		{Name: "AWS", PackageID: "F1"},
		{Name: "AWS", PackageID: "F2"},
	}})

	product, err := r.Resolve("AWS")
	require.NoError(t, err)
	require.Equal(t, "F1", product.PackageID)
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	_, err := r.Resolve("AWS")
	require.ErrorIs(t, err, ErrProductNotFound)
}

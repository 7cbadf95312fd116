package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Amazon", "amazon", 0},
		{"amazon", "Box", -1},
		{"Box", "amazon", 1},
		{"", "a", -1},
		{"same", "same", 0},
		{"Zoom", "zoom video", -1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CompareNames(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		require.Equal(t, -tt.want, CompareNames(tt.b, tt.a), "%q vs %q", tt.b, tt.a)
	}
}

func TestSortNamesIsStableOnTies(t *testing.T) {
	names := []string{"box", "amazon", "Box", "Amazon", "AMAZON"}
	SortNames(names)
	require.Equal(t, []string{"amazon", "Amazon", "AMAZON", "box", "Box"}, names)
}

package catalog

import (
	"slices"
	"strings"
)

// CompareNames orders names case-insensitively. It returns -1, 0 or 1.
func CompareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// SortNames sorts in place with CompareNames. Names that compare equal keep
// their relative order.
func SortNames(names []string) {
	slices.SortStableFunc(names, CompareNames)
}

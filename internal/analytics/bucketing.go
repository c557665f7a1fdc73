package analytics

import (
	"cmp"
	"slices"

	"seguros/internal/core"
)

// DefaultCategoryLimit is the number of categories a chart shows before the
// rest fold into "Otros".
const DefaultCategoryLimit = 10

// BucketTopCategories keeps the rows of the limit categories with the
// largest total value and relabels every other row's category to "Otros".
// Rows are not merged; the grand total is unchanged.
//
// Ties at the boundary break by total descending, then first-seen order.
// A table with at most limit categories, or lacking the columns, comes back
// unchanged. limit <= 0 uses DefaultCategoryLimit.
func BucketTopCategories(t Table, category core.Dimension, value core.Metric, limit int) Table {
	if limit <= 0 {
		limit = DefaultCategoryLimit
	}
	if !t.HasDimension(category) || !t.HasMetric(value) {
		return t
	}

	type categoryTotal struct {
		name  string
		total float64
	}
	var order []categoryTotal
	index := make(map[string]int)
	for _, r := range t.Rows {
		name := r.Label(category)
		i, ok := index[name]
		if !ok {
			i = len(order)
			index[name] = i
			order = append(order, categoryTotal{name: name})
		}
		order[i].total += r.Values.Get(value)
	}
	if len(order) <= limit {
		return t
	}

	slices.SortStableFunc(order, func(a, b categoryTotal) int {
		return cmp.Compare(b.total, a.total)
	})
	keep := make(map[string]struct{}, limit)
	for _, c := range order[:limit] {
		keep[c.name] = struct{}{}
	}

	out := t.Clone()
	for i := range out.Rows {
		if _, ok := keep[out.Rows[i].Label(category)]; !ok {
			out.Rows[i].Labels[category] = core.OthersLabel
		}
	}
	return out
}

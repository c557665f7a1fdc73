package analytics

import (
	"seguros/internal/core"
)

// Distribution turns a table aggregated by dim into named slices with their
// share of the metric total.
func Distribution(t Table, dim core.Dimension, metric core.Metric) core.Distribution {
	out := core.Distribution{Items: make([]core.DistributionItem, 0, len(t.Rows))}
	out.Total = t.Sum(metric)
	for _, r := range t.Rows {
		v := r.Values.Get(metric)
		item := core.DistributionItem{Name: r.Label(dim), Value: v}
		if out.Total > 0 {
			item.Percentage = v / out.Total * 100
		}
		out.Items = append(out.Items, item)
	}
	return out
}

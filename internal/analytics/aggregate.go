package analytics

import (
	"strings"

	"seguros/internal/core"
)

// keySep separates label values inside a composite group key.
const keySep = "\x1f"

// Aggregate groups records by dims and sums the metric columns of the view
// mode. Output metrics always carry canonical names.
//
// Dimensions the source did not carry are dropped. When no usable dimension
// or metric column remains the records come back ungrouped. Groups appear
// in first-seen order.
func Aggregate(rs Records, dims []core.Dimension, mode core.ViewMode) Table {
	metrics := rs.Schema.Metrics(mode)

	usable := make([]core.Dimension, 0, len(dims))
	seen := make(map[core.Dimension]bool, len(dims))
	for _, d := range dims {
		if !d.Valid() || seen[d] || !rs.Schema.HasDimension(d) {
			continue
		}
		seen[d] = true
		usable = append(usable, d)
	}
	if len(usable) == 0 || len(metrics) == 0 {
		return Ungrouped(rs, mode)
	}

	t := Table{Dims: usable, Metrics: metrics}
	index := make(map[string]int)
	var key strings.Builder
	for _, rec := range rs.Rows {
		key.Reset()
		for i, d := range usable {
			if i > 0 {
				key.WriteString(keySep)
			}
			key.WriteString(rec.Label(d))
		}
		i, ok := index[key.String()]
		if !ok {
			i = len(t.Rows)
			index[key.String()] = i
			t.Rows = append(t.Rows, Row{Labels: labelsOf(rec, usable)})
		}
		t.Rows[i].Values = t.Rows[i].Values.Add(rec.Amounts(mode).Only(metrics))
	}
	return t
}

// AggregateByCompany groups by company code and name.
func AggregateByCompany(rs Records, mode core.ViewMode) Table {
	return Aggregate(rs, core.ByCompany, mode)
}

// AggregateByCompanyRamo groups by company and ramo, for stacked bars.
func AggregateByCompanyRamo(rs Records, mode core.ViewMode) Table {
	return Aggregate(rs, core.ByCompanyRamo, mode)
}

// AggregateByCompanySubramo groups by company and subramo, used when a ramo
// is selected.
func AggregateByCompanySubramo(rs Records, mode core.ViewMode) Table {
	return Aggregate(rs, core.ByCompanySubramo, mode)
}

// AggregateByRamo groups by ramo only.
func AggregateByRamo(rs Records, mode core.ViewMode) Table {
	return Aggregate(rs, core.ByRamo, mode)
}

// AggregateBySubramo groups by subramo only.
func AggregateBySubramo(rs Records, mode core.ViewMode) Table {
	return Aggregate(rs, core.BySubramo, mode)
}

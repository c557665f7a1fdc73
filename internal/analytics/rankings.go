package analytics

import (
	"cmp"
	"slices"

	"seguros/internal/core"
)

// TopN orders an aggregated table by metric descending and keeps the first
// n rows. Equal values keep their input order. n <= 0 keeps every row; a
// metric the table does not carry returns the input unchanged.
//
// The input must already be aggregated to one row per key. key only names
// that dimension, matching TopNWithOthers; ordering never looks at labels.
func TopN(t Table, n int, metric core.Metric, key core.Dimension) Table {
	if !t.HasMetric(metric) {
		return t
	}
	out := t.Clone()
	slices.SortStableFunc(out.Rows, func(a, b Row) int {
		return cmp.Compare(b.Values.Get(metric), a.Values.Get(metric))
	})
	if n > 0 && len(out.Rows) > n {
		out.Rows = out.Rows[:n]
	}
	return out
}

// TopNWithOthers ranks like TopN and merges every row past rank n into a
// single row labelled "Otros" under key, summing all metric columns.
// n <= 0 or a missing metric returns the input unchanged.
func TopNWithOthers(t Table, n int, metric core.Metric, key core.Dimension) Table {
	if !t.HasMetric(metric) || n <= 0 {
		return t
	}
	sorted := TopN(t, 0, metric, key)
	if len(sorted.Rows) <= n {
		return sorted
	}
	others := Row{Labels: map[core.Dimension]string{key: core.OthersLabel}}
	for _, r := range sorted.Rows[n:] {
		others.Values = others.Values.Add(r.Values)
	}
	sorted.Rows = append(sorted.Rows[:n:n], others)
	if !sorted.HasDimension(key) {
		sorted.Dims = append(sorted.Dims, key)
	}
	return sorted
}

// RankedRow is a row with its competition rank and market share.
type RankedRow struct {
	Row
	Rank        int
	MarketShare float64
}

// Rank orders rows by metric descending and assigns minimum ranks: equal
// values share a rank and the next distinct value skips ahead. Returns nil
// when the metric is absent.
func Rank(t Table, metric core.Metric) []RankedRow {
	if !t.HasMetric(metric) {
		return nil
	}
	sorted := TopN(t, 0, metric, "")
	shares := MarketShare(sorted, metric)
	out := make([]RankedRow, len(sorted.Rows))
	for i, r := range sorted.Rows {
		rank := i + 1
		if i > 0 && r.Values.Get(metric) == sorted.Rows[i-1].Values.Get(metric) {
			rank = out[i-1].Rank
		}
		out[i] = RankedRow{Row: r, Rank: rank, MarketShare: shares[i]}
	}
	return out
}

// MarketShare returns each row's percentage of the metric total, rounded
// to two decimals and aligned with t.Rows. A zero total yields zeros.
func MarketShare(t Table, metric core.Metric) []float64 {
	shares := make([]float64, len(t.Rows))
	total := t.Sum(metric)
	if total <= 0 {
		return shares
	}
	for i, r := range t.Rows {
		shares[i] = core.Round2(r.Values.Get(metric) / total * 100)
	}
	return shares
}

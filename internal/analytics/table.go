// Package analytics implements the filter, aggregation, ranking and
// bucketing pipeline over prepared insurance records.
//
// Every operation is pure: inputs are never mutated and each stage returns a
// new value, so concurrent requests can share one loaded dataset. No
// operation fails for empty input or missing columns; they degrade to an
// empty or unchanged result instead.
package analytics

import (
	"slices"

	"seguros/internal/core"
)

// Records is a view over prepared rows together with the physical columns
// their source carried.
type Records struct {
	Schema core.Schema
	Rows   []core.Record
}

// NewRecords wraps prepared rows.
func NewRecords(schema core.Schema, rows []core.Record) Records {
	return Records{Schema: schema, Rows: rows}
}

// Len returns the number of rows.
func (rs Records) Len() int { return len(rs.Rows) }

// Table is an aggregated result: categorical columns plus the canonical
// metric columns that were available.
type Table struct {
	Dims    []core.Dimension
	Metrics []core.Metric
	Rows    []Row
}

// Row is one line of a Table.
type Row struct {
	Labels map[core.Dimension]string
	Values core.Amounts
}

// Label returns the row's value for a categorical column.
func (r Row) Label(d core.Dimension) string {
	return r.Labels[d]
}

func (r Row) clone() Row {
	labels := make(map[core.Dimension]string, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = v
	}
	return Row{Labels: labels, Values: r.Values}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// HasMetric reports whether the metric column is part of the table.
func (t Table) HasMetric(m core.Metric) bool {
	return slices.Contains(t.Metrics, m)
}

// HasDimension reports whether the categorical column is part of the table.
func (t Table) HasDimension(d core.Dimension) bool {
	return slices.Contains(t.Dims, d)
}

// Sum totals a metric over all rows; 0 when the column is absent.
func (t Table) Sum(m core.Metric) float64 {
	if !t.HasMetric(m) {
		return 0
	}
	var total float64
	for _, r := range t.Rows {
		total += r.Values.Get(m)
	}
	return total
}

// Labels returns the column values of d in row order.
func (t Table) Labels(d core.Dimension) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Label(d))
	}
	return out
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{
		Dims:    slices.Clone(t.Dims),
		Metrics: slices.Clone(t.Metrics),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.clone()
	}
	return out
}

// Where returns the rows whose label for d is in values.
func (t Table) Where(d core.Dimension, values []string) Table {
	keep := make(map[string]struct{}, len(values))
	for _, v := range values {
		keep[v] = struct{}{}
	}
	out := Table{Dims: slices.Clone(t.Dims), Metrics: slices.Clone(t.Metrics)}
	for _, r := range t.Rows {
		if _, ok := keep[r.Label(d)]; ok {
			out.Rows = append(out.Rows, r.clone())
		}
	}
	return out
}

// Ungrouped renders records as a table with one row per record, using the
// canonical metric names for the view mode.
func Ungrouped(rs Records, mode core.ViewMode) Table {
	t := Table{Metrics: rs.Schema.Metrics(mode)}
	for _, d := range core.AllDimensions {
		if rs.Schema.HasDimension(d) {
			t.Dims = append(t.Dims, d)
		}
	}
	t.Rows = make([]Row, 0, len(rs.Rows))
	for _, rec := range rs.Rows {
		t.Rows = append(t.Rows, Row{
			Labels: labelsOf(rec, t.Dims),
			Values: rec.Amounts(mode).Only(t.Metrics),
		})
	}
	return t
}

func labelsOf(rec core.Record, dims []core.Dimension) map[core.Dimension]string {
	labels := make(map[core.Dimension]string, len(dims))
	for _, d := range dims {
		labels[d] = rec.Label(d)
	}
	return labels
}

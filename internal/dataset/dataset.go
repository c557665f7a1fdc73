// Package dataset turns a raw records table into the immutable, prepared
// dataset shared by every request, and owns its lifecycle.
package dataset

import (
	"slices"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"seguros/internal/analytics"
	"seguros/internal/core"
)

// Dataset is a prepared, read-only snapshot of the records table. Callers
// must not modify the slices it returns.
type Dataset struct {
	records  analytics.Records
	options  core.FilterOptions
	subramos map[string][]string
	source   string
	dropped  int
	loadedAt time.Time
}

// Build prepares every raw row. Rows with a malformed period are dropped
// and counted; everything else is coerced.
func Build(t core.RawTable, source string) *Dataset {
	rows := make([]core.Record, 0, len(t.Records))
	dropped := 0
	for _, raw := range t.Records {
		rec, err := raw.Prepare()
		if err != nil {
			dropped++
			continue
		}
		rows = append(rows, rec)
	}

	header := t.Header
	if len(header) == 0 {
		header = core.SourceColumns
	}
	d := &Dataset{
		records:  analytics.NewRecords(core.NewSchema(header), rows),
		source:   source,
		dropped:  dropped,
		loadedAt: time.Now(),
	}
	d.options, d.subramos = buildOptions(d.records)
	return d
}

// Records returns the shared prepared rows.
func (d *Dataset) Records() analytics.Records { return d.records }

// Len returns the number of prepared rows.
func (d *Dataset) Len() int { return d.records.Len() }

// Dropped returns how many rows were rejected during preparation.
func (d *Dataset) Dropped() int { return d.dropped }

// Source names where the rows came from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt is when the snapshot was built.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }

// Options returns the distinct filter values.
func (d *Dataset) Options() core.FilterOptions {
	o := d.options
	return core.FilterOptions{
		Years:     slices.Clone(o.Years),
		Quarters:  slices.Clone(o.Quarters),
		Ramos:     slices.Clone(o.Ramos),
		Subramos:  slices.Clone(o.Subramos),
		Companies: slices.Clone(o.Companies),
	}
}

// SubramosFor returns the sorted subramos belonging to any of the given
// ramos. No ramos returns every subramo.
func (d *Dataset) SubramosFor(ramos []string) []string {
	if len(ramos) == 0 {
		return slices.Clone(d.options.Subramos)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, ramo := range ramos {
		for _, s := range d.subramos[ramo] {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sortSpanish(out)
	return out
}

func buildOptions(rs analytics.Records) (core.FilterOptions, map[string][]string) {
	years := map[int]struct{}{}
	quarters := map[string]struct{}{}
	ramos := map[string]struct{}{}
	subramos := map[string]struct{}{}
	companies := map[string]struct{}{}
	byRamo := map[string]map[string]struct{}{}

	hasRamo := rs.Schema.HasDimension(core.DimRamo)
	hasSubramo := rs.Schema.HasDimension(core.DimSubramo)
	hasCompany := rs.Schema.HasDimension(core.DimCompanyName)

	for _, r := range rs.Rows {
		years[r.Year] = struct{}{}
		quarters[r.Quarter] = struct{}{}
		if hasRamo && r.Ramo != "" {
			ramos[r.Ramo] = struct{}{}
		}
		if hasSubramo && r.Subramo != "" {
			subramos[r.Subramo] = struct{}{}
			if hasRamo && r.Ramo != "" {
				if byRamo[r.Ramo] == nil {
					byRamo[r.Ramo] = map[string]struct{}{}
				}
				byRamo[r.Ramo][r.Subramo] = struct{}{}
			}
		}
		if hasCompany && r.CompanyName != "" {
			companies[r.CompanyName] = struct{}{}
		}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(yearList)))

	opts := core.FilterOptions{
		Years:     make([]string, len(yearList)),
		Quarters:  keys(quarters),
		Ramos:     keys(ramos),
		Subramos:  keys(subramos),
		Companies: keys(companies),
	}
	for i, y := range yearList {
		opts.Years[i] = strconv.Itoa(y)
	}
	sort.Strings(opts.Quarters)
	sortSpanish(opts.Ramos)
	sortSpanish(opts.Subramos)
	sortSpanish(opts.Companies)

	index := make(map[string][]string, len(byRamo))
	for ramo, subs := range byRamo {
		list := keys(subs)
		sortSpanish(list)
		index[ramo] = list
	}
	return opts, index
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// sortSpanish orders names the way a Spanish reader expects: accents and
// case do not push a name to the end of the list.
func sortSpanish(s []string) {
	collate.New(language.Spanish).SortStrings(s)
}

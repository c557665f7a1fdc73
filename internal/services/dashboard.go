package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"seguros/internal/analytics"
	"seguros/internal/core"
)

// KPICard is one headline figure of the dashboard.
type KPICard struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// BarSeries is one stacked segment of the ranking chart, aligned with
// BarChart.Companies.
type BarSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// BarChart is the stacked company ranking, companies ordered by total.
type BarChart struct {
	Companies []string    `json:"companies"`
	Series    []BarSeries `json:"series"`
	Legend    string      `json:"legend"`
}

// Dashboard is everything the HTML dashboard renders for one query.
type Dashboard struct {
	Query         Query             `json:"-"`
	TopN          int               `json:"top_n"`
	Totals        core.Totals       `json:"totals"`
	Ratios        core.Ratios       `json:"ratios"`
	Cards         []KPICard         `json:"cards"`
	Bars          BarChart          `json:"bars"`
	Donut         core.Distribution `json:"donut"`
	DonutTitle    string            `json:"donut_title"`
	PeriodLabel   string            `json:"period"`
	ViewModeLabel string            `json:"view_mode"`
	CompanyCount  int               `json:"company_count"`
}

// Empty reports whether the query matched no data.
func (d Dashboard) Empty() bool {
	return len(d.Bars.Companies) == 0 && len(d.Donut.Items) == 0 && d.Totals.EntityCount == 0
}

// BuildDashboard composes the view model from any MarketReader, so the
// dashboard renders the same against the local dataset or a remote API.
//
// With a ramo selected the chart and donut break down by subramo instead of
// ramo. Bar categories past the tenth fold into "Otros" by relabelling; the
// donut merges its long tail into one "Otros" slice.
func BuildDashboard(ctx context.Context, r MarketReader, q Query, topN int) (Dashboard, error) {
	q = q.Normalize()
	topN = ClampTopN(topN)

	out := Dashboard{
		Query:         q,
		TopN:          topN,
		PeriodLabel:   q.PeriodLabel(),
		ViewModeLabel: q.ViewModeLabel(),
	}

	totals, err := r.KPIs(ctx, q)
	if err != nil {
		return out, fmt.Errorf("kpis: %w", err)
	}
	out.Totals = totals
	out.Ratios = analytics.TotalsRatios(totals)
	out.Cards = KPICards(totals)

	out.Bars, out.CompanyCount, err = RankingChart(ctx, r, q, topN)
	if err != nil {
		return out, err
	}

	out.Donut, out.DonutTitle, err = DonutChart(ctx, r, q)
	if err != nil {
		return out, err
	}
	return out, nil
}

// breakdown is the category the charts split by: ramo, or subramo once a
// ramo is selected.
func breakdown(q Query) (category core.Dimension, legend, title string) {
	if q.Ramo != "" {
		return core.DimSubramo, "Subramos", "SUBRAMOS"
	}
	return core.DimRamo, "Ramos", "RAMOS"
}

// RankingChart builds the stacked bar chart of the topN companies and
// returns it with the number of companies before truncation.
func RankingChart(ctx context.Context, r MarketReader, q Query, topN int) (BarChart, int, error) {
	q = q.Normalize()
	rank, err := r.CompanyRanking(ctx, q, ClampTopN(topN))
	if err != nil {
		return BarChart{Companies: []string{}, Series: []BarSeries{}}, 0, fmt.Errorf("ranking: %w", err)
	}
	category, legend, _ := breakdown(q)
	chart := barChart(rank.Companies, category, analytics.DefaultCategoryLimit)
	chart.Legend = legend
	return chart, rank.Total, nil
}

// DonutChart builds the market share donut and its title.
func DonutChart(ctx context.Context, r MarketReader, q Query) (core.Distribution, string, error) {
	q = q.Normalize()
	category, _, title := breakdown(q)
	dist := r.RamoDistribution
	if category == core.DimSubramo {
		dist = r.SubramoDistribution
	}
	d, err := dist(ctx, q)
	if err != nil {
		return core.Distribution{Items: []core.DistributionItem{}}, title, fmt.Errorf("distribution: %w", err)
	}
	return donutSlices(d, category, analytics.DefaultCategoryLimit), title, nil
}

// KPICards formats the four headline figures.
func KPICards(t core.Totals) []KPICard {
	return []KPICard{
		{Title: "ENTIDADES CON EMISIÓN", Value: core.FormatNumber(float64(t.EntityCount))},
		{Title: "TOTAL DE PRODUCCIÓN", Value: core.FormatCurrency(t.PremiumsWritten)},
		{Title: "PRIMAS DEVENGADAS", Value: core.FormatCurrency(t.PremiumsEarned)},
		{Title: "SINIESTROS DEVENGADOS", Value: core.FormatCurrency(t.ClaimsIncurred)},
	}
}

// barChart pivots ranking items into stacked series. Companies are ordered
// by total premiums; series by total with "Otros" last.
func barChart(items []core.RankingItem, category core.Dimension, limit int) BarChart {
	out := BarChart{Companies: []string{}, Series: []BarSeries{}}
	if len(items) == 0 {
		return out
	}

	t := analytics.Table{
		Dims:    []core.Dimension{core.DimCompanyName, category},
		Metrics: []core.Metric{core.PremiumsWritten},
	}
	for _, it := range items {
		label := it.Ramo
		if category == core.DimSubramo {
			label = it.Subramo
		}
		t.Rows = append(t.Rows, analytics.Row{
			Labels: map[core.Dimension]string{core.DimCompanyName: it.CompanyName, category: label},
			Values: core.Amounts{PremiumsWritten: it.PremiumsWritten},
		})
	}
	t = analytics.BucketTopCategories(t, category, core.PremiumsWritten, limit)

	companies := totalsBy(t, core.DimCompanyName)
	categories := totalsBy(t, category)
	if i := slices.IndexFunc(categories, func(c labelTotal) bool { return c.name == core.OthersLabel }); i >= 0 {
		others := categories[i]
		categories = append(slices.Delete(categories, i, i+1), others)
	}

	companyIndex := make(map[string]int, len(companies))
	for i, c := range companies {
		out.Companies = append(out.Companies, c.name)
		companyIndex[c.name] = i
	}
	seriesIndex := make(map[string]int, len(categories))
	for i, c := range categories {
		out.Series = append(out.Series, BarSeries{Name: c.name, Values: make([]float64, len(companies))})
		seriesIndex[c.name] = i
	}
	for _, r := range t.Rows {
		s := seriesIndex[r.Label(category)]
		c := companyIndex[r.Label(core.DimCompanyName)]
		out.Series[s].Values[c] += r.Values.PremiumsWritten
	}
	return out
}

type labelTotal struct {
	name  string
	total float64
}

// totalsBy sums written premiums per label, ordered by total descending with
// first-seen order on ties.
func totalsBy(t analytics.Table, dim core.Dimension) []labelTotal {
	var out []labelTotal
	index := make(map[string]int)
	for _, r := range t.Rows {
		name := r.Label(dim)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, labelTotal{name: name})
		}
		out[i].total += r.Values.PremiumsWritten
	}
	slices.SortStableFunc(out, func(a, b labelTotal) int {
		return cmp.Compare(b.total, a.total)
	})
	return out
}

// donutSlices keeps the limit largest slices and merges the rest into a
// single "Otros" slice, recomputing percentages.
func donutSlices(d core.Distribution, dim core.Dimension, limit int) core.Distribution {
	t := analytics.Table{
		Dims:    []core.Dimension{dim},
		Metrics: []core.Metric{core.PremiumsWritten},
	}
	for _, it := range d.Items {
		t.Rows = append(t.Rows, analytics.Row{
			Labels: map[core.Dimension]string{dim: it.Name},
			Values: core.Amounts{PremiumsWritten: it.Value},
		})
	}
	t = analytics.TopNWithOthers(t, limit, core.PremiumsWritten, dim)
	return analytics.Distribution(t, dim, core.PremiumsWritten)
}

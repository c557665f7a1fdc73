package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seguros/internal/core"
)

func rec(period, code, name, ramo, subramo string, written, writtenCurrent float64) core.Record {
	year, quarter, err := core.ParsePeriod(period)
	if err != nil {
		panic(err)
	}
	return core.Record{
		Period:      period,
		Year:        year,
		Quarter:     quarter,
		CompanyCode: code,
		CompanyName: name,
		Ramo:        ramo,
		Subramo:     subramo,
		Accumulated: core.Amounts{PremiumsWritten: written, PremiumsEarned: written / 2, ClaimsIncurred: written / 4, ExpensesIncurred: written / 10},
		Current:     core.Amounts{PremiumsWritten: writtenCurrent, PremiumsEarned: writtenCurrent / 2},
	}
}

func sample() Records {
	return NewRecords(core.FullSchema(), []core.Record{
		rec("202401", "1", "Alfa", "Autos", "Autos Particulares", 100, 10),
		rec("202401", "2", "Beta", "Autos", "Autos Particulares", 80, 8),
		rec("202402", "1", "Alfa", "Incendio", "Incendio Hogar", 50, 5),
		rec("202302", "3", "Gamma", "Vida", "Vida Colectivo", 30, 3),
		rec("202402", "2", "Beta", "Vida", "Vida Individual", 20, 2),
	})
}

func intPtr(v int) *int { return &v }

func TestFilterSingleCriteria(t *testing.T) {
	rs := sample()
	tests := []struct {
		name string
		f    Filter
		want int
	}{
		{"no filter", Filter{}, 5},
		{"year", Filter{Year: intPtr(2024)}, 4},
		{"quarter", Filter{Quarter: "02"}, 3},
		{"ramo", Filter{Ramo: "Autos"}, 2},
		{"companies", Filter{Companies: []string{"Alfa", "Gamma"}}, 3},
		{"unmatched", Filter{Ramo: "Caución"}, 0},
		{"combined", Filter{Year: intPtr(2024), Quarter: "02", Companies: []string{"Beta"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.f.Apply(rs)
			assert.Equal(t, tt.want, got.Len())
		})
	}
}

func TestFilterComposition(t *testing.T) {
	rs := sample()
	f1 := Filter{Year: intPtr(2024)}
	f2 := Filter{Companies: []string{"Beta", "Gamma"}}
	both := Filter{Year: f1.Year, Companies: f2.Companies}

	a := f2.Apply(f1.Apply(rs))
	b := f1.Apply(f2.Apply(rs))
	c := both.Apply(rs)
	assert.Equal(t, a.Rows, b.Rows)
	assert.Equal(t, a.Rows, c.Rows)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	rs := sample()
	before := append([]core.Record(nil), rs.Rows...)
	_ = Filter{Ramo: "Vida"}.Apply(rs)
	assert.Equal(t, before, rs.Rows)
}

func TestAggregateSumConservation(t *testing.T) {
	rs := sample()
	groupings := [][]core.Dimension{core.ByCompany, core.ByCompanyRamo, core.ByCompanySubramo, core.ByRamo, core.BySubramo}
	for _, mode := range []core.ViewMode{core.Accumulated, core.Current} {
		var want core.Amounts
		for _, r := range rs.Rows {
			want = want.Add(r.Amounts(mode))
		}
		for _, dims := range groupings {
			t.Run(fmt.Sprintf("%s/%v", mode, dims), func(t *testing.T) {
				agg := Aggregate(rs, dims, mode)
				for _, m := range core.AllMetrics {
					assert.InDelta(t, want.Get(m), agg.Sum(m), 1e-9, "metric %s", m)
				}
			})
		}
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	agg := AggregateByCompany(sample(), core.Accumulated)
	require.Equal(t, 3, agg.Len())
	assert.Equal(t, []string{"Alfa", "Beta", "Gamma"}, agg.Labels(core.DimCompanyName))
	assert.Equal(t, 150.0, agg.Rows[0].Values.PremiumsWritten)
	assert.Equal(t, 100.0, agg.Rows[1].Values.PremiumsWritten)
}

func TestAggregateViewModeIsolation(t *testing.T) {
	rs := NewRecords(core.FullSchema(), []core.Record{
		{CompanyCode: "1", CompanyName: "Alfa", Accumulated: core.Amounts{PremiumsWritten: 1000}, Current: core.Amounts{PremiumsWritten: 7}},
	})
	cur := AggregateByCompany(rs, core.Current)
	assert.Equal(t, 7.0, cur.Rows[0].Values.PremiumsWritten)
	acc := AggregateByCompany(rs, core.Accumulated)
	assert.Equal(t, 1000.0, acc.Rows[0].Values.PremiumsWritten)
	assert.Equal(t, 1000.0, Totals(rs, core.Accumulated).PremiumsWritten)
	assert.Equal(t, 7.0, Totals(rs, core.Current).PremiumsWritten)
}

func TestAggregateMissingColumns(t *testing.T) {
	schema := core.NewSchema([]string{"periodo", "cod_cia", "nombre_corto", "primas_emitidas"})
	rs := NewRecords(schema, sample().Rows)

	t.Run("unknown dimension dropped", func(t *testing.T) {
		agg := Aggregate(rs, []core.Dimension{core.DimCompanyName, core.DimRamo}, core.Accumulated)
		assert.Equal(t, []core.Dimension{core.DimCompanyName}, agg.Dims)
		assert.Equal(t, 3, agg.Len())
		assert.Equal(t, []core.Metric{core.PremiumsWritten}, agg.Metrics)
		assert.Zero(t, agg.Sum(core.PremiumsEarned))
	})

	t.Run("no usable dimension returns rows ungrouped", func(t *testing.T) {
		agg := Aggregate(rs, core.ByRamo, core.Accumulated)
		assert.Equal(t, rs.Len(), agg.Len())
	})

	t.Run("no metric for view mode returns rows ungrouped", func(t *testing.T) {
		agg := Aggregate(rs, core.ByCompany, core.Current)
		assert.Equal(t, rs.Len(), agg.Len())
		assert.Empty(t, agg.Metrics)
	})

	t.Run("totals of absent columns are zero", func(t *testing.T) {
		tot := Totals(rs, core.Current)
		assert.Zero(t, tot.PremiumsWritten)
		assert.Equal(t, 3, tot.EntityCount)
	})
}

func TestAggregateEmpty(t *testing.T) {
	agg := AggregateByRamo(NewRecords(core.FullSchema(), nil), core.Accumulated)
	assert.Equal(t, 0, agg.Len())
}

func companyTable(values ...float64) Table {
	t := Table{Dims: core.ByCompany, Metrics: core.AllMetrics}
	for i, v := range values {
		name := string(rune('A' + i))
		t.Rows = append(t.Rows, Row{
			Labels: map[core.Dimension]string{core.DimCompanyCode: name, core.DimCompanyName: name},
			Values: core.Amounts{PremiumsWritten: v, PremiumsEarned: 1},
		})
	}
	return t
}

func TestTopNMonotonicityAndTieBreak(t *testing.T) {
	tbl := companyTable(50, 80, 100, 80)
	got := TopN(tbl, 2, core.PremiumsWritten, core.DimCompanyName)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, []string{"C", "B"}, got.Labels(core.DimCompanyName))
}

func TestTopNEdgeCases(t *testing.T) {
	tbl := companyTable(10, 30, 20)

	all := TopN(tbl, 0, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, []string{"B", "C", "A"}, all.Labels(core.DimCompanyName))

	neg := TopN(tbl, -3, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, 3, neg.Len())

	more := TopN(tbl, 10, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, 3, more.Len())

	noMetric := Table{Dims: tbl.Dims, Rows: tbl.Rows}
	assert.Equal(t, noMetric, TopN(noMetric, 1, core.PremiumsWritten, core.DimCompanyName))

	assert.Equal(t, []string{"A", "B", "C"}, tbl.Labels(core.DimCompanyName), "input reordered")
}

func TestTopNIdempotent(t *testing.T) {
	tbl := companyTable(5, 9, 9, 1, 7, 3, 8, 8, 2, 6, 4, 10)
	once := TopN(tbl, 10, core.PremiumsWritten, core.DimCompanyName)
	twice := TopN(once, 10, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, once, twice)
}

func TestScenarioThreeCompanies(t *testing.T) {
	rs := NewRecords(core.FullSchema(), []core.Record{
		rec("202401", "a", "A", "Autos", "", 100, 0),
		rec("202401", "b", "B", "Autos", "", 80, 0),
		rec("202401", "c", "C", "Autos", "", 80, 0),
	})
	top := TopN(AggregateByCompany(rs, core.Accumulated), 2, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, []string{"A", "B"}, top.Labels(core.DimCompanyName))
	assert.Equal(t, 3, Totals(rs, core.Accumulated).EntityCount)
}

func TestTopNWithOthers(t *testing.T) {
	tbl := companyTable(10, 40, 30, 20)
	got := TopNWithOthers(tbl, 2, core.PremiumsWritten, core.DimCompanyName)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, []string{"B", "C", core.OthersLabel}, got.Labels(core.DimCompanyName))
	others := got.Rows[2]
	assert.Equal(t, 30.0, others.Values.PremiumsWritten)
	assert.Equal(t, 2.0, others.Values.PremiumsEarned, "other numeric columns summed")
	assert.Equal(t, tbl.Sum(core.PremiumsWritten), got.Sum(core.PremiumsWritten))

	assert.Equal(t, tbl, TopNWithOthers(tbl, 0, core.PremiumsWritten, core.DimCompanyName))
	small := TopNWithOthers(tbl, 4, core.PremiumsWritten, core.DimCompanyName)
	assert.Equal(t, 4, small.Len())
}

func TestRankAndMarketShare(t *testing.T) {
	tbl := companyTable(50, 100, 50, 0)
	ranked := Rank(tbl, core.PremiumsWritten)
	require.Len(t, ranked, 4)
	ranks := []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank, ranked[3].Rank}
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
	assert.Equal(t, 50.0, ranked[0].MarketShare)
	assert.Equal(t, 25.0, ranked[1].MarketShare)

	zero := MarketShare(companyTable(0, 0), core.PremiumsWritten)
	assert.Equal(t, []float64{0, 0}, zero)
}

func categoryTable(n int) Table {
	t := Table{Dims: []core.Dimension{core.DimCompanyName, core.DimRamo}, Metrics: core.AllMetrics}
	for i := 0; i < n; i++ {
		for _, company := range []string{"X", "Y"} {
			t.Rows = append(t.Rows, Row{
				Labels: map[core.Dimension]string{core.DimCompanyName: company, core.DimRamo: fmt.Sprintf("R%02d", i)},
				Values: core.Amounts{PremiumsWritten: float64(100 - i)},
			})
		}
	}
	return t
}

func distinct(values []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func TestBucketTopCategoriesConservation(t *testing.T) {
	tbl := categoryTable(12)
	got := BucketTopCategories(tbl, core.DimRamo, core.PremiumsWritten, 10)

	assert.Equal(t, tbl.Len(), got.Len(), "rows must not be merged")
	assert.Equal(t, tbl.Sum(core.PremiumsWritten), got.Sum(core.PremiumsWritten))
	labels := distinct(got.Labels(core.DimRamo))
	assert.Len(t, labels, 11)
	assert.Contains(t, labels, core.OthersLabel)
	assert.NotContains(t, labels, "R10")
	assert.NotContains(t, labels, "R11")
	assert.Equal(t, "R10", tbl.Rows[20].Label(core.DimRamo), "input relabelled")
}

func TestBucketTopCategoriesUnchanged(t *testing.T) {
	tbl := categoryTable(10)
	assert.Equal(t, tbl, BucketTopCategories(tbl, core.DimRamo, core.PremiumsWritten, 10))
	assert.Equal(t, tbl, BucketTopCategories(tbl, core.DimSubramo, core.PremiumsWritten, 3))
}

func TestBucketTopCategoriesTieBreak(t *testing.T) {
	tbl := Table{Dims: []core.Dimension{core.DimRamo}, Metrics: core.AllMetrics}
	for _, name := range []string{"first", "second", "third"} {
		tbl.Rows = append(tbl.Rows, Row{
			Labels: map[core.Dimension]string{core.DimRamo: name},
			Values: core.Amounts{PremiumsWritten: 5},
		})
	}
	for i := 0; i < 5; i++ {
		got := BucketTopCategories(tbl, core.DimRamo, core.PremiumsWritten, 2)
		assert.Equal(t, []string{"first", "second", core.OthersLabel}, got.Labels(core.DimRamo))
	}
}

func TestRatios(t *testing.T) {
	tests := []struct {
		name     string
		in       core.Amounts
		loss     float64
		expense  float64
		combined float64
	}{
		{"typical", core.Amounts{PremiumsEarned: 1000, ClaimsIncurred: 652.549, ExpensesIncurred: 300}, 65.25, 30, 95.25},
		{"zero earned", core.Amounts{PremiumsEarned: 0, ClaimsIncurred: 500, ExpensesIncurred: 10}, 0, 0, 0},
		{"thirds", core.Amounts{PremiumsEarned: 3, ClaimsIncurred: 2, ExpensesIncurred: 1}, 66.67, 33.33, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RatiosOf(tt.in)
			assert.InDelta(t, tt.loss, r.LossRatio, 1e-9)
			assert.InDelta(t, tt.expense, r.ExpenseRatio, 1e-9)
			assert.InDelta(t, tt.combined, r.CombinedRatio, 1e-9)
		})
	}
}

func TestWithRatios(t *testing.T) {
	tbl := companyTable(10, 20)
	tbl.Rows[0].Values.ClaimsIncurred = 0.5
	rows := WithRatios(tbl)
	require.Len(t, rows, 2)
	assert.Equal(t, 50.0, rows[0].LossRatio)
	assert.Zero(t, rows[1].LossRatio)
}

func TestDistribution(t *testing.T) {
	agg := AggregateByRamo(sample(), core.Accumulated)
	d := Distribution(agg, core.DimRamo, core.PremiumsWritten)
	assert.Equal(t, 280.0, d.Total)
	require.Len(t, d.Items, 3)
	assert.Equal(t, "Autos", d.Items[0].Name)
	assert.InDelta(t, 180.0/280.0*100, d.Items[0].Percentage, 1e-9)

	empty := Distribution(Table{Metrics: core.AllMetrics}, core.DimRamo, core.PremiumsWritten)
	assert.Empty(t, empty.Items)
	assert.Zero(t, empty.Total)
}

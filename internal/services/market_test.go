package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"seguros/internal/cache"
	"seguros/internal/core"
	"seguros/internal/dataset"
	"seguros/internal/log"
	"seguros/internal/source/memory"
)

func newTestService(t *testing.T) (*MarketService, *memory.Store, *dataset.Store) {
	t.Helper()
	mem := memory.New(memory.SampleTable())
	store := dataset.NewStore(mem, nil)
	svc := NewMarketService(store, cache.NewLRUCache[any](64, time.Minute), nil)
	return svc, mem, store
}

func intPtr(v int) *int { return &v }

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMarketService_KPIs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    Query
		written  float64
		entities int
	}{
		{
			name:     "no filter",
			query:    Query{},
			written:  12555,
			entities: 4,
		},
		{
			name:     "single quarter accumulated",
			query:    Query{Year: intPtr(2024), Quarter: "02"},
			written:  8465,
			entities: 4,
		},
		{
			name:     "company filter in current mode",
			query:    Query{Year: intPtr(2024), Quarter: "02", Companies: []string{"Sancor"}, ViewMode: core.Current},
			written:  2020,
			entities: 1,
		},
		{
			name:     "unmatched filter",
			query:    Query{Year: intPtr(1999)},
			written:  0,
			entities: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.KPIs(ctx, tt.query)
			if err != nil {
				t.Fatalf("KPIs() error = %v", err)
			}
			if !almostEqual(got.PremiumsWritten, tt.written) {
				t.Errorf("PremiumsWritten = %v, want %v", got.PremiumsWritten, tt.written)
			}
			if got.EntityCount != tt.entities {
				t.Errorf("EntityCount = %v, want %v", got.EntityCount, tt.entities)
			}
		})
	}
}

func TestMarketService_CompanyRanking(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	t.Run("top two by ramo", func(t *testing.T) {
		got, err := svc.CompanyRanking(ctx, Query{}, 2)
		if err != nil {
			t.Fatalf("CompanyRanking() error = %v", err)
		}
		if got.Total != 4 {
			t.Errorf("Total = %d, want 4", got.Total)
		}
		want := []core.RankingItem{
			{CompanyName: "Sancor", Ramo: "Automotores", PremiumsWritten: 4600},
			{CompanyName: "Sancor", Ramo: "Vida", PremiumsWritten: 1220},
			{CompanyName: "Federación Patronal", Ramo: "Automotores", PremiumsWritten: 4000},
			{CompanyName: "Federación Patronal", Ramo: "Incendio", PremiumsWritten: 610},
		}
		if len(got.Companies) != len(want) {
			t.Fatalf("got %d items, want %d: %+v", len(got.Companies), len(want), got.Companies)
		}
		for i := range want {
			if got.Companies[i] != want[i] {
				t.Errorf("item %d = %+v, want %+v", i, got.Companies[i], want[i])
			}
		}
	})

	t.Run("ramo selected breaks down by subramo", func(t *testing.T) {
		got, err := svc.CompanyRanking(ctx, Query{Ramo: "Automotores"}, 2)
		if err != nil {
			t.Fatalf("CompanyRanking() error = %v", err)
		}
		if got.Total != 3 {
			t.Errorf("Total = %d, want 3", got.Total)
		}
		for _, it := range got.Companies {
			if it.Subramo == "" || it.Ramo != "" {
				t.Errorf("expected subramo breakdown, got %+v", it)
			}
			if it.CompanyName == "La Segunda" {
				t.Errorf("La Segunda should be outside the top 2")
			}
		}
	})

	t.Run("no data", func(t *testing.T) {
		got, err := svc.CompanyRanking(ctx, Query{Quarter: "04"}, 15)
		if err != nil {
			t.Fatalf("CompanyRanking() error = %v", err)
		}
		if got.Total != 0 || len(got.Companies) != 0 {
			t.Errorf("expected empty ranking, got %+v", got)
		}
		if got.Companies == nil {
			t.Errorf("Companies should be an empty slice, not nil")
		}
	})
}

func TestMarketService_RamoDistribution(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.RamoDistribution(context.Background(), Query{})
	if err != nil {
		t.Fatalf("RamoDistribution() error = %v", err)
	}
	if !almostEqual(got.Total, 12555) {
		t.Errorf("Total = %v, want 12555", got.Total)
	}
	if len(got.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(got.Items))
	}
	if got.Items[0].Name != "Automotores" || !almostEqual(got.Items[0].Value, 10450) {
		t.Errorf("first item = %+v", got.Items[0])
	}
	var pct float64
	for _, it := range got.Items {
		pct += it.Percentage
	}
	if !almostEqual(math.Round(pct), 100) {
		t.Errorf("percentages sum to %v, want 100", pct)
	}
}

func TestMarketService_SubramoDistributionWithRamo(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.SubramoDistribution(context.Background(), Query{Ramo: "Vida"})
	if err != nil {
		t.Fatalf("SubramoDistribution() error = %v", err)
	}
	names := map[string]bool{}
	for _, it := range got.Items {
		names[it.Name] = true
	}
	if len(names) != 2 || !names["Vida individual"] || !names["Sepelio"] {
		t.Errorf("unexpected subramos: %v", names)
	}
}

func TestMarketService_CompanyRatios(t *testing.T) {
	svc, _, _ := newTestService(t)

	got, err := svc.CompanyRatios(context.Background(), Query{}, 0)
	if err != nil {
		t.Fatalf("CompanyRatios() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d companies, want 4", len(got))
	}
	first := got[0]
	if first.CompanyName != "Sancor" || first.Rank != 1 {
		t.Errorf("first = %+v", first)
	}
	if first.MarketShare != 46.36 {
		t.Errorf("MarketShare = %v, want 46.36", first.MarketShare)
	}
	if first.LossRatio != 57.94 || first.ExpenseRatio != 24.54 || first.CombinedRatio != 82.48 {
		t.Errorf("ratios = %+v", first.Ratios)
	}
	if got[3].CompanyName != core.UnnamedCompany {
		t.Errorf("last company = %q, want %q", got[3].CompanyName, core.UnnamedCompany)
	}

	top, err := svc.CompanyRatios(context.Background(), Query{}, 2)
	if err != nil {
		t.Fatalf("CompanyRatios() error = %v", err)
	}
	if len(top) != 2 {
		t.Errorf("topN not applied: %d", len(top))
	}
}

func TestMarketService_FilterOptions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	opts, err := svc.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions() error = %v", err)
	}
	if len(opts.Years) != 1 || opts.Years[0] != "2024" {
		t.Errorf("Years = %v", opts.Years)
	}
	if len(opts.Quarters) != 2 {
		t.Errorf("Quarters = %v", opts.Quarters)
	}

	subramos, err := svc.SubramosFor(ctx, []string{"Automotores"})
	if err != nil {
		t.Fatalf("SubramosFor() error = %v", err)
	}
	if len(subramos) != 2 {
		t.Errorf("SubramosFor(Automotores) = %v, want Autos and Motos", subramos)
	}
}

func TestMarketService_CachePurgedOnReload(t *testing.T) {
	svc, mem, store := newTestService(t)
	ctx := context.Background()

	before, err := svc.KPIs(ctx, Query{})
	if err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}

	next := memory.SampleTable()
	next.Records = next.Records[:1]
	if _, err := mem.ReplaceRecords(ctx, next); err != nil {
		t.Fatalf("ReplaceRecords() error = %v", err)
	}

	cached, _ := svc.KPIs(ctx, Query{})
	if cached != before {
		t.Errorf("expected cached result before reload")
	}

	if _, err := store.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	after, err := svc.KPIs(ctx, Query{})
	if err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}
	if !almostEqual(after.PremiumsWritten, 1500) {
		t.Errorf("PremiumsWritten after reload = %v, want 1500", after.PremiumsWritten)
	}
}

type failingReader struct{}

func (failingReader) ReadRecords(context.Context) (core.RawTable, error) {
	return core.RawTable{}, errors.New("bucket unreachable")
}

func TestMarketService_LoadError(t *testing.T) {
	svc := NewMarketService(dataset.NewStore(failingReader{}, nil), nil, nil)

	if _, err := svc.KPIs(context.Background(), Query{}); err == nil {
		t.Fatal("KPIs() should surface the load error")
	}
	if _, err := svc.FilterOptions(context.Background()); err == nil {
		t.Fatal("FilterOptions() should surface the load error")
	}
}

func TestQueryKey(t *testing.T) {
	a := Query{Year: intPtr(2024), Companies: []string{"B", "A"}}.Normalize()
	b := Query{Year: intPtr(2024), Companies: []string{"A", " B "}}.Normalize()
	if a.Key() != b.Key() {
		t.Errorf("company order should not change the key: %q vs %q", a.Key(), b.Key())
	}
	c := Query{Year: intPtr(2024), Companies: []string{"A", "B"}, ViewMode: core.Current}.Normalize()
	if a.Key() == c.Key() {
		t.Errorf("view mode should change the key")
	}
	d := Query{Ramo: "a", Companies: []string{"b|c"}}.Normalize()
	e := Query{Ramo: "a|b", Companies: []string{"c"}}.Normalize()
	if d.Key() == e.Key() {
		t.Errorf("separators inside values should not collide: %q", d.Key())
	}
}

func TestMarketService_KeySeparatorsDoNotCollide(t *testing.T) {
	table := core.RawTable{
		Header: append([]string(nil), core.SourceColumns...),
		Records: []core.RawRecord{{
			Period: "202401", CompanyCode: "0009", CompanyName: "b|c", Ramo: "a",
			PremiumsWritten: "7", PremiumsWrittenCurrent: "7",
		}},
	}
	store := dataset.NewStore(memory.New(table), nil)
	svc := NewMarketService(store, cache.NewLRUCache[any](16, time.Minute), nil)
	ctx := context.Background()

	first, err := svc.KPIs(ctx, Query{Ramo: "a", Companies: []string{"b|c"}})
	if err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}
	if !almostEqual(first.PremiumsWritten, 7) {
		t.Fatalf("written = %v, want 7", first.PremiumsWritten)
	}

	second, err := svc.KPIs(ctx, Query{Ramo: "a|b", Companies: []string{"c"}})
	if err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}
	if second.PremiumsWritten != 0 || second.EntityCount != 0 {
		t.Errorf("ramo a|b has no records, got %+v", second)
	}
}

func TestMarketService_DebugLogCarriesFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	store := dataset.NewStore(memory.New(memory.SampleTable()), nil)
	svc := NewMarketService(store, nil, logger)

	q := Query{Year: intPtr(2024), Ramo: "Vida", Companies: []string{"Sancor"}, ViewMode: core.Current}
	if _, err := svc.KPIs(context.Background(), q); err != nil {
		t.Fatalf("KPIs() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"component=market", "operation=kpis", "year=2024", "ramo=Vida", "companies=1", "view_mode=current"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug line missing %q: %s", want, out)
		}
	}
}

func TestQueryLabels(t *testing.T) {
	tests := []struct {
		name   string
		query  Query
		period string
		mode   string
	}{
		{"all periods", Query{}, "Todos los períodos", "Datos Acumulados"},
		{"year only", Query{Year: intPtr(2024)}, "Todos los períodos", "Datos Acumulados"},
		{"year and quarter", Query{Year: intPtr(2024), Quarter: "01", ViewMode: core.Current}, "2024 - Marzo (Q3)", "Datos del Período Corriente"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.PeriodLabel(); got != tt.period {
				t.Errorf("PeriodLabel() = %q, want %q", got, tt.period)
			}
			if got := tt.query.ViewModeLabel(); got != tt.mode {
				t.Errorf("ViewModeLabel() = %q, want %q", got, tt.mode)
			}
		})
	}
}

func TestClampTopN(t *testing.T) {
	tests := map[int]int{0: core.DefaultTopN, -3: core.DefaultTopN, 1: 1, 50: 50, 100: 100, 500: MaxTopN}
	for in, want := range tests {
		if got := ClampTopN(in); got != want {
			t.Errorf("ClampTopN(%d) = %d, want %d", in, got, want)
		}
	}
}

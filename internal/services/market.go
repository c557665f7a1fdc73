package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"seguros/internal/analytics"
	"seguros/internal/cache"
	"seguros/internal/core"
	"seguros/internal/dataset"
	"seguros/internal/log"
)

// MarketReader answers the dashboard's questions about the market. The
// local MarketService and the remote API client both implement it.
type MarketReader interface {
	KPIs(ctx context.Context, q Query) (core.Totals, error)
	CompanyRanking(ctx context.Context, q Query, topN int) (core.Ranking, error)
	RamoDistribution(ctx context.Context, q Query) (core.Distribution, error)
	SubramoDistribution(ctx context.Context, q Query) (core.Distribution, error)
	CompanyRatios(ctx context.Context, q Query, topN int) ([]core.CompanyRatios, error)
	FilterOptions(ctx context.Context) (core.FilterOptions, error)
	SubramosFor(ctx context.Context, ramos []string) ([]string, error)
}

// MarketService runs the analytics pipeline over the loaded dataset.
// Results are cached per query and dataset snapshot.
type MarketService struct {
	store  *dataset.Store
	cache  *cache.LRUCache[any]
	logger *log.Logger
}

var _ MarketReader = (*MarketService)(nil)

// NewMarketService creates the service. A nil cache disables caching. The
// cache is purged whenever the store reloads.
func NewMarketService(store *dataset.Store, c *cache.LRUCache[any], logger *log.Logger) *MarketService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &MarketService{
		store:  store,
		cache:  c,
		logger: logger.WithComponent(log.ComponentMarket),
	}
	if c != nil {
		store.OnReload(func(*dataset.Dataset) { c.Purge() })
	}
	return s
}

// cached looks up kind+query in the cache and computes it on a miss. The
// key carries the snapshot time so results of a replaced dataset never
// leak into the new one.
func cached[T any](s *MarketService, d *dataset.Dataset, key string, compute func() T) T {
	if s.cache == nil {
		return compute()
	}
	key = strconv.FormatInt(d.LoadedAt().UnixNano(), 10) + "#" + key
	if v, ok := s.cache.Get(key); ok {
		if out, ok := v.(T); ok {
			return out
		}
	}
	out := compute()
	s.cache.Set(key, out)
	return out
}

func (s *MarketService) filtered(ctx context.Context, q Query) (*dataset.Dataset, analytics.Records, Query, error) {
	d, err := s.store.Get(ctx)
	if err != nil {
		return nil, analytics.Records{}, q, fmt.Errorf("load dataset: %w", err)
	}
	q = q.Normalize()
	return d, q.Filter().Apply(d.Records()), q, nil
}

// KPIs filters the dataset and sums the four metrics.
func (s *MarketService) KPIs(ctx context.Context, q Query) (core.Totals, error) {
	start := time.Now()
	d, err := s.store.Get(ctx)
	if err != nil {
		return core.Totals{}, fmt.Errorf("load dataset: %w", err)
	}
	q = q.Normalize()
	out := cached(s, d, "kpis|"+q.Key(), func() core.Totals {
		return analytics.Totals(q.Filter().Apply(d.Records()), q.ViewMode)
	})
	s.logComputed(ctx, "kpis", q, start, "entities", out.EntityCount)
	return out, nil
}

// logComputed writes a debug line with the filters of a finished read.
func (s *MarketService) logComputed(ctx context.Context, op string, q Query, start time.Time, extra ...any) {
	fields := log.NewFields().
		WithOperation(op).
		WithQuery(q.YearValue(), q.Quarter, q.Ramo, q.Companies, string(q.ViewMode))
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	s.logger.DebugContext(ctx, "Computed market read", append(fields.ToSlice(), extra...)...)
}

// CompanyRanking returns the company x ramo breakdown of the topN companies
// by written premiums; company x subramo when a ramo is selected. Total
// counts every company that passed the filter.
func (s *MarketService) CompanyRanking(ctx context.Context, q Query, topN int) (core.Ranking, error) {
	d, err := s.store.Get(ctx)
	if err != nil {
		return core.Ranking{}, fmt.Errorf("load dataset: %w", err)
	}
	start := time.Now()
	q = q.Normalize()
	topN = ClampTopN(topN)
	out := cached(s, d, "ranking|"+strconv.Itoa(topN)+"|"+q.Key(), func() core.Ranking {
		return ranking(q.Filter().Apply(d.Records()), q, topN)
	})
	s.logComputed(ctx, "ranking", q, start, log.FieldTopN, topN, "companies_total", out.Total)
	return out, nil
}

func ranking(rs analytics.Records, q Query, topN int) core.Ranking {
	companies := analytics.AggregateByCompany(rs, q.ViewMode)
	out := core.Ranking{Companies: []core.RankingItem{}, Total: companies.Len()}
	if companies.Len() == 0 {
		return out
	}

	var bars analytics.Table
	if q.Ramo != "" {
		bars = analytics.AggregateByCompanySubramo(rs, q.ViewMode)
	} else {
		bars = analytics.AggregateByCompanyRamo(rs, q.ViewMode)
	}
	top := analytics.TopN(companies, topN, core.PremiumsWritten, core.DimCompanyName)
	bars = bars.Where(core.DimCompanyName, top.Labels(core.DimCompanyName))

	for _, r := range bars.Rows {
		out.Companies = append(out.Companies, core.RankingItem{
			CompanyName:     r.Label(core.DimCompanyName),
			Ramo:            r.Label(core.DimRamo),
			Subramo:         r.Label(core.DimSubramo),
			PremiumsWritten: r.Values.PremiumsWritten,
		})
	}
	return out
}

// RamoDistribution breaks written premiums down by ramo.
func (s *MarketService) RamoDistribution(ctx context.Context, q Query) (core.Distribution, error) {
	return s.distribution(ctx, q, core.DimRamo)
}

// SubramoDistribution breaks written premiums down by subramo.
func (s *MarketService) SubramoDistribution(ctx context.Context, q Query) (core.Distribution, error) {
	return s.distribution(ctx, q, core.DimSubramo)
}

func (s *MarketService) distribution(ctx context.Context, q Query, dim core.Dimension) (core.Distribution, error) {
	d, err := s.store.Get(ctx)
	if err != nil {
		return core.Distribution{}, fmt.Errorf("load dataset: %w", err)
	}
	start := time.Now()
	q = q.Normalize()
	defer s.logComputed(ctx, "distribution", q, start, "dimension", string(dim))
	return cached(s, d, "dist|"+string(dim)+"|"+q.Key(), func() core.Distribution {
		rs := q.Filter().Apply(d.Records())
		if !rs.Schema.HasDimension(dim) {
			return core.Distribution{Items: []core.DistributionItem{}}
		}
		t := analytics.Aggregate(rs, []core.Dimension{dim}, q.ViewMode)
		return analytics.Distribution(t, dim, core.PremiumsWritten)
	}), nil
}

// CompanyRatios ranks companies by written premiums and adds their market
// share and loss, expense and combined ratios. topN <= 0 keeps every
// company.
func (s *MarketService) CompanyRatios(ctx context.Context, q Query, topN int) ([]core.CompanyRatios, error) {
	d, rs, q, err := s.filtered(ctx, q)
	if err != nil {
		return nil, err
	}
	return cached(s, d, "ratios|"+strconv.Itoa(topN)+"|"+q.Key(), func() []core.CompanyRatios {
		ranked := analytics.Rank(analytics.AggregateByCompany(rs, q.ViewMode), core.PremiumsWritten)
		if topN > 0 && len(ranked) > topN {
			ranked = ranked[:topN]
		}
		out := make([]core.CompanyRatios, 0, len(ranked))
		for _, r := range ranked {
			out = append(out, core.CompanyRatios{
				CompanyName:     r.Label(core.DimCompanyName),
				PremiumsWritten: r.Values.PremiumsWritten,
				MarketShare:     r.MarketShare,
				Rank:            r.Rank,
				Ratios:          analytics.RatiosOf(r.Values),
			})
		}
		return out
	}), nil
}

// FilterOptions returns the values the filter controls offer.
func (s *MarketService) FilterOptions(ctx context.Context) (core.FilterOptions, error) {
	d, err := s.store.Get(ctx)
	if err != nil {
		return core.FilterOptions{}, fmt.Errorf("load dataset: %w", err)
	}
	return d.Options(), nil
}

// SubramosFor lists the subramos of the given ramos; all of them when none
// is given.
func (s *MarketService) SubramosFor(ctx context.Context, ramos []string) ([]string, error) {
	d, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return d.SubramosFor(ramos), nil
}

// Dashboard composes the dashboard view model from the loaded dataset.
func (s *MarketService) Dashboard(ctx context.Context, q Query, topN int) (Dashboard, error) {
	return BuildDashboard(ctx, s, q, topN)
}

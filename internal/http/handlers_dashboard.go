package http

import (
	"bytes"
	"net/http"
	"sync/atomic"

	"seguros/internal/analytics"
	"seguros/internal/core"
	"seguros/internal/log"
	"seguros/internal/services"
)

// quarterOption is one entry of the quarter selector.
type quarterOption struct {
	Code  string
	Label string
}

// pageData is the view model of index.html.
type pageData struct {
	Options       core.FilterOptions
	Quarters      []quarterOption
	Params        MarketParams
	Companies     []string
	TopN          int
	TopNOptions   []int
	Dashboard     services.Dashboard
	Charts        chartsData
	Remote        bool
	ReloadEnabled bool
	Warning       string
}

// chartsData is embedded in the page for the first chart render.
type chartsData struct {
	Ranking rankingChart `json:"ranking"`
	Donut   donutChart   `json:"donut"`
}

type rankingChart struct {
	services.BarChart
	CompanyCount int  `json:"company_count"`
	TopN         int  `json:"top_n"`
	Empty        bool `json:"empty"`
}

type donutChart struct {
	Title string `json:"title"`
	core.Distribution
	Empty bool `json:"empty"`
}

// dashboardParams parses the page filters. Invalid values are dropped
// rather than rejected so the page always renders.
func dashboardParams(r *http.Request) (MarketParams, string) {
	p := ParseMarketParams(r.URL.Query())
	errs := p.Validate()
	if len(errs) == 0 {
		return p, ""
	}
	for _, fe := range errs {
		switch fe.Loc[len(fe.Loc)-1] {
		case "year":
			p.Year = ""
		case "top_n":
			p.TopN = ""
		case "quarter":
			p.Quarter = ""
		case "ramo":
			p.Ramo = ""
		case "companies":
			p.Companies = ""
		case "view_mode":
			p.ViewMode = ""
		}
	}
	return p, "Algunos filtros no eran válidos y se ignoraron"
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página no encontrada").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx)

	p, warning := dashboardParams(r)
	q := p.Query()
	topN := services.ClampTopN(p.TopNOr(core.DefaultTopN))

	opts, err := s.market.FilterOptions(ctx)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.readerErrors, 1)
		logger.ErrorContext(ctx, "Filter options unavailable", log.FieldError, err.Error())
	}

	d, err := services.BuildDashboard(ctx, s.market, q, topN)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.readerErrors, 1)
		logger.ErrorContext(ctx, "Dashboard build failed",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRender)
		d = services.Dashboard{
			Query:         q,
			TopN:          topN,
			PeriodLabel:   q.PeriodLabel(),
			ViewModeLabel: q.ViewModeLabel(),
			Bars:          services.BarChart{Companies: []string{}, Series: []services.BarSeries{}},
			Donut:         core.Distribution{Items: []core.DistributionItem{}},
		}
	}

	quarters := make([]quarterOption, 0, len(core.Quarters))
	for _, code := range core.Quarters {
		quarters = append(quarters, quarterOption{Code: code, Label: core.QuarterLabel(code)})
	}

	s.render(w, r, "index.html", pageData{
		Options:     opts,
		Quarters:    quarters,
		Params:      p,
		Companies:   q.Companies,
		TopN:        topN,
		TopNOptions: core.TopNOptions,
		Dashboard:   d,
		Charts: chartsData{
			Ranking: rankingChart{BarChart: d.Bars, CompanyCount: d.CompanyCount, TopN: topN, Empty: len(d.Bars.Companies) == 0},
			Donut:   donutChart{Title: d.DonutTitle, Distribution: d.Donut, Empty: len(d.Donut.Items) == 0},
		},
		Remote:        s.store == nil,
		ReloadEnabled: s.store != nil && s.adminToken == "",
		Warning:       warning,
	})
}

// kpiPanel is the view model of kpis.html.
type kpiPanel struct {
	Cards         []services.KPICard
	Ratios        core.Ratios
	PeriodLabel   string
	ViewModeLabel string
}

// handleUIKPIs renders the KPI cards for the current filters.
func (s *Server) handleUIKPIs(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	p, _ := dashboardParams(r)
	q := p.Query()

	totals, err := s.market.KPIs(ctx, q)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.readerErrors, 1)
		log.FromContext(ctx).ErrorContext(ctx, "KPIs unavailable", log.FieldError, err.Error())
		NoDataResponse("No se pudieron cargar los datos").Write(w)
		return
	}
	if totals.EntityCount == 0 {
		NoDataResponse("").Write(w)
		return
	}

	s.render(w, r, "kpis.html", kpiPanel{
		Cards:         services.KPICards(totals),
		Ratios:        analytics.TotalsRatios(totals),
		PeriodLabel:   q.PeriodLabel(),
		ViewModeLabel: q.ViewModeLabel(),
	})
}

// handleUIRanking returns the stacked bar chart series as JSON.
func (s *Server) handleUIRanking(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	p, _ := dashboardParams(r)
	topN := services.ClampTopN(p.TopNOr(core.DefaultTopN))

	chart, count, err := services.RankingChart(ctx, s.market, p.Query(), topN)
	if err != nil {
		atomic.AddInt64(&s.appMetrics.readerErrors, 1)
		log.FromContext(ctx).ErrorContext(ctx, "Ranking unavailable", log.FieldError, err.Error())
	}
	NewHTMXResponse().JSON(rankingChart{
		BarChart:     chart,
		CompanyCount: count,
		TopN:         topN,
		Empty:        len(chart.Companies) == 0,
	}).Write(w)
}

// handleUIDonut returns the market share donut as JSON.
func (s *Server) handleUIDonut(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	p, _ := dashboardParams(r)

	dist, title, err := services.DonutChart(ctx, s.market, p.Query())
	if err != nil {
		atomic.AddInt64(&s.appMetrics.readerErrors, 1)
		log.FromContext(ctx).ErrorContext(ctx, "Distribution unavailable", log.FieldError, err.Error())
	}
	NewHTMXResponse().JSON(donutChart{
		Title:        title,
		Distribution: dist,
		Empty:        len(dist.Items) == 0,
	}).Write(w)
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		atomic.AddInt64(&s.appMetrics.renderErrors, 1)
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(),
			"template", name)
		InternalServerError("Error al generar la página").Write(w)
		return
	}
	NewHTMXResponse().Body(buf.Bytes()).Header("Content-Type", "text/html; charset=utf-8").Write(w)
}

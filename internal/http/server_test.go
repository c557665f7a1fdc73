package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"seguros/internal/cache"
	"seguros/internal/core"
	"seguros/internal/dataset"
	"seguros/internal/services"
	"seguros/internal/source/memory"
)

// failingReader is a MarketReader whose data source is down.
type failingReader struct{}

var errDown = errors.New("source down")

func (failingReader) KPIs(context.Context, services.Query) (core.Totals, error) {
	return core.Totals{}, errDown
}
func (failingReader) CompanyRanking(context.Context, services.Query, int) (core.Ranking, error) {
	return core.Ranking{}, errDown
}
func (failingReader) RamoDistribution(context.Context, services.Query) (core.Distribution, error) {
	return core.Distribution{}, errDown
}
func (failingReader) SubramoDistribution(context.Context, services.Query) (core.Distribution, error) {
	return core.Distribution{}, errDown
}
func (failingReader) CompanyRatios(context.Context, services.Query, int) ([]core.CompanyRatios, error) {
	return nil, errDown
}
func (failingReader) FilterOptions(context.Context) (core.FilterOptions, error) {
	return core.FilterOptions{}, errDown
}
func (failingReader) SubramosFor(context.Context, []string) ([]string, error) {
	return nil, errDown
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Market == nil {
		mem := memory.New(memory.SampleTable())
		store := dataset.NewStore(mem, nil)
		if _, err := store.Load(context.Background()); err != nil {
			t.Fatalf("load sample dataset: %v", err)
		}
		lru := cache.NewLRUCache[any](64, time.Minute)
		opts.Market = services.NewMarketService(store, lru, nil)
		opts.Store = store
		opts.Cache = lru
	}
	srv := NewServer(":0", opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
}

func TestIndexAndProbes(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Mercado Asegurador Argentino",
		"TOTAL DEL MERCADO",
		"RAMOS",
		"Fuente: Superintendencia de Seguros de la Nación",
		`id="chart-data"`,
		"Sancor",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz", "/api/health"} {
		rr := do(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = do(srv, http.MethodGet, "/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown page status=%d, want 404", rr.Code)
	}
}

func TestIndexWithRamoShowsSubramos(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/?ramo=Automotores&year=abc", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "SUBRAMOS") {
		t.Error("donut title should switch to SUBRAMOS")
	}
	if !strings.Contains(body, "Algunos filtros no eran válidos") {
		t.Error("invalid year should produce a warning, not an error")
	}
}

func TestAPIHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/api/health", nil)
	var got map[string]string
	decode(t, rr, &got)
	if got["status"] != "ok" || got["version"] != Version {
		t.Errorf("health = %v", got)
	}
}

func TestAPIFilters(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/api/filters", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var opts core.FilterOptions
	decode(t, rr, &opts)
	if len(opts.Years) != 1 || opts.Years[0] != "2024" {
		t.Errorf("years = %v", opts.Years)
	}
	if strings.Join(opts.Quarters, ",") != "01,02,03,04" {
		t.Errorf("quarters = %v, want the fixed four", opts.Quarters)
	}
	if len(opts.Companies) != 4 {
		t.Errorf("companies = %v", opts.Companies)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/api/filters/years", 1},
		{"/api/filters/quarters", 4},
		{"/api/filters/ramos", 3},
		{"/api/filters/companies", 4},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := do(srv, http.MethodGet, tt.path, nil)
			var list []string
			decode(t, rr, &list)
			if len(list) != tt.want {
				t.Errorf("%s = %v, want %d entries", tt.path, list, tt.want)
			}
		})
	}

	rr = do(srv, http.MethodGet, "/api/filters/subramos?ramos=Automotores", nil)
	var sub map[string][]string
	decode(t, rr, &sub)
	if len(sub["subramos"]) != 2 {
		t.Errorf("subramos = %v", sub)
	}
}

func TestAPIKPIs(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/api/data/kpis", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var totals core.Totals
	decode(t, rr, &totals)
	if totals.EntityCount != 4 {
		t.Errorf("entities = %d, want 4", totals.EntityCount)
	}

	rr = do(srv, http.MethodGet, "/api/data/kpis?year=1999", nil)
	decode(t, rr, &totals)
	if totals.EntityCount != 0 || totals.PremiumsWritten != 0 {
		t.Errorf("unmatched filter should give zero totals, got %+v", totals)
	}
}

func TestAPIValidation(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name  string
		path  string
		field string
	}{
		{"non numeric year", "/api/data/kpis?year=abc", "year"},
		{"top_n too large", "/api/data/companies/ranking?top_n=101", "top_n"},
		{"top_n zero", "/api/data/companies/ranking?top_n=0", "top_n"},
		{"top_n not a number", "/api/data/ratios?top_n=x", "top_n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodGet, tt.path, nil)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status=%d, want 422", rr.Code)
			}
			var body struct {
				Detail []FieldError `json:"detail"`
			}
			decode(t, rr, &body)
			if len(body.Detail) == 0 || body.Detail[0].Loc[1] != tt.field {
				t.Errorf("detail = %+v, want error on %s", body.Detail, tt.field)
			}
		})
	}
}

func TestAPIRankingAndDistribution(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/api/data/companies/ranking?top_n=2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("ranking status=%d", rr.Code)
	}
	var ranking core.Ranking
	decode(t, rr, &ranking)
	if ranking.Total != 4 {
		t.Errorf("ranking total = %d, want 4", ranking.Total)
	}
	names := map[string]bool{}
	for _, it := range ranking.Companies {
		names[it.CompanyName] = true
	}
	if len(names) != 2 {
		t.Errorf("top_n=2 returned companies %v", names)
	}

	for _, path := range []string{"/api/data/distribution/ramos", "/api/data/distribution/subramos?ramo=Automotores"} {
		rr := do(srv, http.MethodGet, path, nil)
		var dist core.Distribution
		decode(t, rr, &dist)
		if len(dist.Items) == 0 || dist.Total <= 0 {
			t.Errorf("%s = %+v", path, dist)
		}
		var sum float64
		for _, it := range dist.Items {
			sum += it.Percentage
		}
		if sum < 99.9 || sum > 100.1 {
			t.Errorf("%s percentages sum to %v", path, sum)
		}
	}

	rr = do(srv, http.MethodGet, "/api/data/ratios", nil)
	var ratios struct {
		Companies []core.CompanyRatios `json:"companies"`
	}
	decode(t, rr, &ratios)
	if len(ratios.Companies) != 4 || ratios.Companies[0].Rank != 1 {
		t.Errorf("ratios = %+v", ratios.Companies)
	}
}

func TestAPIMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodPost, "/api/data/kpis", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST kpis status=%d, want 405", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/api/admin/reload", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload status=%d, want 405", rr.Code)
	}
}

func TestReaderFailures(t *testing.T) {
	srv := newTestServer(t, Options{Market: failingReader{}})

	for _, path := range []string{"/api/filters", "/api/data/kpis", "/api/data/companies/ranking", "/api/data/distribution/ramos"} {
		rr := do(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status=%d, want 503", path, rr.Code)
		}
	}

	// The page still renders, empty.
	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "No hay datos") {
		t.Error("index should show the no-data message")
	}

	rr = do(srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("remote readyz status=%d", rr.Code)
	}
	rr = do(srv, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rr.Body.String(), "market_read_errors_total") {
		t.Error("metrics missing market_read_errors_total")
	}
}

func TestReadyBeforeLoad(t *testing.T) {
	store := dataset.NewStore(memory.New(memory.SampleTable()), nil)
	srv := newTestServer(t, Options{
		Market: services.NewMarketService(store, nil, nil),
		Store:  store,
	})

	rr := do(srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load status=%d, want 503", rr.Code)
	}
}

func TestUIPartials(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodGet, "/ui/kpis?year=2024&quarter=02", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("kpis status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "kpi-card") {
		t.Errorf("kpis body = %s", rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/ui/kpis?year=1999", nil)
	if !strings.Contains(rr.Body.String(), "No hay datos para los filtros seleccionados") {
		t.Errorf("empty kpis body = %s", rr.Body.String())
	}

	rr = do(srv, http.MethodGet, "/ui/ranking?top_n=3", nil)
	var bars rankingChart
	decode(t, rr, &bars)
	if bars.Empty || len(bars.Companies) != 3 || bars.CompanyCount != 4 {
		t.Errorf("ranking chart = %+v", bars)
	}

	rr = do(srv, http.MethodGet, "/ui/donut?ramo=Automotores", nil)
	var donut donutChart
	decode(t, rr, &donut)
	if donut.Title != "SUBRAMOS" || donut.Empty {
		t.Errorf("donut = %+v", donut)
	}
}

func TestReload(t *testing.T) {
	srv := newTestServer(t, Options{AdminToken: "secret"})

	rr := do(srv, http.MethodPost, "/api/admin/reload", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reload without token status=%d, want 401", rr.Code)
	}

	rr = do(srv, http.MethodPost, "/api/admin/reload", http.Header{"Authorization": {"Bearer secret"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("reload status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "dataset:reloaded") {
		t.Errorf("HX-Trigger = %q", trigger)
	}
	var body map[string]interface{}
	decode(t, rr, &body)
	if body["status"] != "reloaded" || body["records"].(float64) != 12 {
		t.Errorf("reload body = %v", body)
	}

	remote := newTestServer(t, Options{Market: failingReader{}})
	rr = do(remote, http.MethodPost, "/api/admin/reload", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("remote reload status=%d, want 503", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{CORSOrigins: []string{"http://localhost:8050"}})

	rr := do(srv, http.MethodOptions, "/api/data/kpis", http.Header{
		"Origin":                        {"http://localhost:8050"},
		"Access-Control-Request-Method": {"GET"},
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8050" {
		t.Errorf("allow-origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	rr = do(srv, http.MethodGet, "/api/health", http.Header{"Origin": {"http://evil.example"}})
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not be allowed")
	}
}

func TestRateLimitSkipsProbes(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})

	limited := false
	for i := 0; i < 40; i++ {
		if do(srv, http.MethodGet, "/api/health", nil).Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected a 429 after exhausting the burst")
	}
	if rr := do(srv, http.MethodGet, "/healthz", nil); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d while limited", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		rr := do(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
		if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
			t.Errorf("%s cache-control = %q", path, rr.Header().Get("Cache-Control"))
		}
	}
}

// Package apiclient reads the market from a running seguros API. Every
// failure is logged and answered with empty results, so a dashboard backed
// by this client renders "no data" instead of an error page.
package apiclient

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"seguros/internal/core"
	"seguros/internal/log"
	"seguros/internal/services"
)

// DefaultTimeout bounds every API call.
const DefaultTimeout = 10 * time.Second

// Client implements services.MarketReader over HTTP.
type Client struct {
	http   *resty.Client
	logger *log.Logger
}

var _ services.MarketReader = (*Client)(nil)

// New creates a client for the API at baseURL, e.g. "http://localhost:8050".
// A non-positive timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{http: rc, logger: logger.WithComponent(log.ComponentAPIClient)}
}

// get fetches path into out. It reports whether out was filled.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) bool {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		SetResult(out).
		Get(path)
	if err != nil {
		c.logger.ErrorContext(ctx, "API request failed",
			log.FieldPath, path,
			log.FieldError, err.Error(),
			"error_type", log.ErrorTypeNetwork)
		return false
	}
	if resp.IsError() {
		c.logger.ErrorContext(ctx, "API returned error status",
			log.FieldPath, path,
			log.FieldStatusCode, resp.StatusCode(),
			"body", string(resp.Body()))
		return false
	}
	c.logger.DebugContext(ctx, "API request completed",
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return true
}

// Params encodes a query the way the API parses it.
func Params(q services.Query) url.Values {
	v := url.Values{}
	if q.Year != nil {
		v.Set("year", strconv.Itoa(*q.Year))
	}
	if q.Quarter != "" {
		v.Set("quarter", q.Quarter)
	}
	if q.Ramo != "" {
		v.Set("ramo", q.Ramo)
	}
	if len(q.Companies) > 0 {
		v.Set("companies", strings.Join(q.Companies, ","))
	}
	mode := q.ViewMode
	if mode == "" {
		mode = core.Accumulated
	}
	v.Set("view_mode", string(mode))
	return v
}

// Health returns the API status and version; empty strings when unreachable.
func (c *Client) Health(ctx context.Context) (status, version string) {
	var out struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if !c.get(ctx, "/health", nil, &out) {
		return "", ""
	}
	return out.Status, out.Version
}

func (c *Client) KPIs(ctx context.Context, q services.Query) (core.Totals, error) {
	var out core.Totals
	if !c.get(ctx, "/data/kpis", Params(q), &out) {
		return core.Totals{}, nil
	}
	return out, nil
}

func (c *Client) CompanyRanking(ctx context.Context, q services.Query, topN int) (core.Ranking, error) {
	params := Params(q)
	params.Set("top_n", strconv.Itoa(services.ClampTopN(topN)))
	var out core.Ranking
	if !c.get(ctx, "/data/companies/ranking", params, &out) || out.Companies == nil {
		return core.Ranking{Companies: []core.RankingItem{}}, nil
	}
	return out, nil
}

func (c *Client) RamoDistribution(ctx context.Context, q services.Query) (core.Distribution, error) {
	return c.distribution(ctx, "/data/distribution/ramos", q), nil
}

func (c *Client) SubramoDistribution(ctx context.Context, q services.Query) (core.Distribution, error) {
	return c.distribution(ctx, "/data/distribution/subramos", q), nil
}

func (c *Client) distribution(ctx context.Context, path string, q services.Query) core.Distribution {
	var out core.Distribution
	if !c.get(ctx, path, Params(q), &out) || out.Items == nil {
		return core.Distribution{Items: []core.DistributionItem{}}
	}
	return out
}

func (c *Client) CompanyRatios(ctx context.Context, q services.Query, topN int) ([]core.CompanyRatios, error) {
	params := Params(q)
	if topN > 0 {
		params.Set("top_n", strconv.Itoa(services.ClampTopN(topN)))
	}
	var out struct {
		Companies []core.CompanyRatios `json:"companies"`
	}
	if !c.get(ctx, "/data/ratios", params, &out) || out.Companies == nil {
		return []core.CompanyRatios{}, nil
	}
	return out.Companies, nil
}

func (c *Client) FilterOptions(ctx context.Context) (core.FilterOptions, error) {
	var out core.FilterOptions
	if !c.get(ctx, "/filters", nil, &out) {
		return core.FilterOptions{Years: []string{}, Quarters: []string{}, Ramos: []string{}, Companies: []string{}}, nil
	}
	return out, nil
}

func (c *Client) SubramosFor(ctx context.Context, ramos []string) ([]string, error) {
	params := url.Values{}
	if len(ramos) > 0 {
		params.Set("ramos", strings.Join(ramos, ","))
	}
	var out struct {
		Subramos []string `json:"subramos"`
	}
	if !c.get(ctx, "/filters/subramos", params, &out) || out.Subramos == nil {
		return []string{}, nil
	}
	return out.Subramos, nil
}

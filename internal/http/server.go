package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"seguros/internal/cache"
	"seguros/internal/core"
	"seguros/internal/dataset"
	"seguros/internal/log"
	"seguros/internal/middleware/ratelimit"
	"seguros/internal/middleware/security"
	"seguros/internal/middleware/trace"
	"seguros/internal/services"
	appweb "seguros/web"
)

// Version is reported by /api/health.
const Version = "1.0.0"

// CacheStats is the read side of the query cache shown by /metrics.
type CacheStats interface {
	Stats() cache.Stats
	Size() int
}

// Options configures the server. Market is required. Store is nil when the
// dashboard reads a remote API; readiness then does not wait for a load and
// reloads answer 503.
type Options struct {
	Market             services.MarketReader
	Store              *dataset.Store
	Cache              CacheStats
	CORSOrigins        []string
	RateLimitPerMinute int
	AdminToken         string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	market    services.MarketReader
	store     *dataset.Store
	cache     CacheStats

	adminToken string
	logger     *log.Logger

	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	securityHeaders  *security.HeadersMiddleware
	cors             *security.CORS
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	detector := security.NewDetector(logger)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		market:           opts.Market,
		store:            opts.Store,
		cache:            opts.Cache,
		adminToken:       opts.AdminToken,
		logger:           logger,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		securityHeaders:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		cors:             security.NewCORS(opts.CORSOrigins),
		appMetrics:       newAppMetrics(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	} else {
		s.templates = t
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	// Probes
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	// JSON API
	mux.HandleFunc("/api/health", s.handleAPIHealth)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/filters/years", s.handleFilterList(func(o core.FilterOptions) []string { return o.Years }))
	mux.HandleFunc("/api/filters/quarters", s.handleFilterList(func(o core.FilterOptions) []string { return o.Quarters }))
	mux.HandleFunc("/api/filters/ramos", s.handleFilterList(func(o core.FilterOptions) []string { return o.Ramos }))
	mux.HandleFunc("/api/filters/companies", s.handleFilterList(func(o core.FilterOptions) []string { return o.Companies }))
	mux.HandleFunc("/api/filters/subramos", s.handleSubramos)
	mux.HandleFunc("/api/data/kpis", s.handleKPIs)
	mux.HandleFunc("/api/data/companies/ranking", s.handleCompanyRanking)
	mux.HandleFunc("/api/data/distribution/ramos", s.handleDistribution(false))
	mux.HandleFunc("/api/data/distribution/subramos", s.handleDistribution(true))
	mux.HandleFunc("/api/data/ratios", s.handleRatios)
	mux.HandleFunc("/api/admin/reload", s.handleReload)

	// Dashboard page and partials
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ui/kpis", s.handleUIKPIs)
	mux.HandleFunc("/ui/ranking", s.handleUIRanking)
	mux.HandleFunc("/ui/donut", s.handleUIDonut)

	s.Handler = s.middleware(mux)
	return s
}

// middleware wraps the mux. From the outside in: request logger, tracing,
// probe detection, security headers, CORS and rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(next)
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
	h = s.cors.Middleware(h)
	h = s.securityHeaders.Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.traceMiddleware.Middleware(h)
	return log.Middleware(s.logger)(h)
}

// isProbe reports whether path is polled by the orchestrator.
func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	JSONError(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"seguros/internal/log"
)

// appMetrics counts application events exposed by /metrics.
type appMetrics struct {
	uptime         time.Time
	reloads        int64
	reloadFailures int64
	renderErrors   int64
	readerErrors   int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}).Write(w)
}

// handleReady reports ready once templates are parsed and, with a local
// dataset, the first load has succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.store == nil:
		checks["dataset"] = "remote"
	case s.store.Loaded():
		d, _ := s.store.Current()
		checks["dataset"] = map[string]interface{}{
			"status":    "ok",
			"source":    d.Source(),
			"records":   d.Len(),
			"dropped":   d.Dropped(),
			"loaded_at": d.LoadedAt().Format(time.RFC3339),
		}
	default:
		checks["dataset"] = "not_loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.cache != nil {
		checks["cache"] = map[string]interface{}{"status": "ok", "entries": s.cache.Size()}
	}

	if httpStatus != http.StatusOK {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "checks", checks)
	}

	NewHTMXResponse().
		Status(httpStatus).
		JSON(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)

	counter("dataset_reloads_total", "Successful explicit dataset reloads", atomic.LoadInt64(&s.appMetrics.reloads))
	counter("dataset_reload_failures_total", "Failed explicit dataset reloads", atomic.LoadInt64(&s.appMetrics.reloadFailures))
	if s.store != nil {
		var records int64
		if d, err := s.store.Current(); err == nil {
			records = int64(d.Len())
		}
		gauge("dataset_records", "Records in the loaded dataset", records)
	}
	counter("market_read_errors_total", "Market reads that failed", atomic.LoadInt64(&s.appMetrics.readerErrors))
	counter("template_render_errors_total", "Template executions that failed", atomic.LoadInt64(&s.appMetrics.renderErrors))

	if s.cache != nil {
		stats := s.cache.Stats()
		counter("cache_hits_total", "Total cache hits", stats.Hits)
		counter("cache_misses_total", "Total cache misses", stats.Misses)
		counter("cache_evictions_total", "Total cache evictions", stats.Evictions)
		gauge("cache_entries", "Current cache entries", int64(s.cache.Size()))
	}

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("invalid_client_ip_total", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

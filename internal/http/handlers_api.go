package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"seguros/internal/core"
	"seguros/internal/log"
)

// marketUnavailable answers a failed market read. The analytics never fail
// on their own, so an error here means the data source could not be read.
func (s *Server) marketUnavailable(w http.ResponseWriter, r *http.Request, op string, err error) {
	atomic.AddInt64(&s.appMetrics.readerErrors, 1)
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Market read failed",
		log.FieldOperation, op,
		log.FieldError, err.Error(),
		"error_type", log.ErrorTypeDatabase)
	JSONError(http.StatusServiceUnavailable, "data source unavailable").Write(w)
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	NewHTMXResponse().JSON(map[string]string{"status": "ok", "version": Version}).Write(w)
}

// filterOptions returns the filter lists with the fixed quarter codes and
// never-nil slices.
func (s *Server) filterOptions(r *http.Request) (core.FilterOptions, error) {
	opts, err := s.market.FilterOptions(r.Context())
	if err != nil {
		return core.FilterOptions{}, err
	}
	opts.Quarters = append([]string(nil), core.Quarters...)
	opts.Subramos = nil
	for _, l := range []*[]string{&opts.Years, &opts.Ramos, &opts.Companies} {
		if *l == nil {
			*l = []string{}
		}
	}
	return opts, nil
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	opts, err := s.filterOptions(r)
	if err != nil {
		s.marketUnavailable(w, r, "filters", err)
		return
	}
	NewHTMXResponse().JSON(opts).Write(w)
}

// handleFilterList serves one of the filter lists as a bare JSON array.
func (s *Server) handleFilterList(pick func(core.FilterOptions) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			resp.Write(w)
			return
		}
		opts, err := s.filterOptions(r)
		if err != nil {
			s.marketUnavailable(w, r, "filters", err)
			return
		}
		NewHTMXResponse().JSON(pick(opts)).Write(w)
	}
}

// handleSubramos lists the subramos of the comma-separated ramos, or every
// subramo when none is given.
func (s *Server) handleSubramos(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ramos := ParseList(sanitizeInput(r.URL.Query().Get("ramos")))
	subramos, err := s.market.SubramosFor(r.Context(), ramos)
	if err != nil {
		s.marketUnavailable(w, r, "subramos", err)
		return
	}
	if subramos == nil {
		subramos = []string{}
	}
	NewHTMXResponse().JSON(map[string][]string{"subramos": subramos}).Write(w)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, resp := ParseMarketQuery(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	totals, err := s.market.KPIs(r.Context(), p.Query())
	if err != nil {
		s.marketUnavailable(w, r, "kpis", err)
		return
	}
	NewHTMXResponse().JSON(totals).Write(w)
}

func (s *Server) handleCompanyRanking(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, resp := ParseMarketQuery(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	ranking, err := s.market.CompanyRanking(r.Context(), p.Query(), p.TopNOr(core.DefaultTopN))
	if err != nil {
		s.marketUnavailable(w, r, "ranking", err)
		return
	}
	NewHTMXResponse().JSON(ranking).Write(w)
}

func (s *Server) handleDistribution(subramos bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequireGET(r); resp != nil {
			resp.Write(w)
			return
		}
		p, resp := ParseMarketQuery(r)
		if resp != nil {
			resp.Write(w)
			return
		}
		read := s.market.RamoDistribution
		if subramos {
			read = s.market.SubramoDistribution
		}
		dist, err := read(r.Context(), p.Query())
		if err != nil {
			s.marketUnavailable(w, r, "distribution", err)
			return
		}
		NewHTMXResponse().JSON(dist).Write(w)
	}
}

// handleRatios lists every company with its ratios; top_n truncates.
func (s *Server) handleRatios(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, resp := ParseMarketQuery(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	ratios, err := s.market.CompanyRatios(r.Context(), p.Query(), p.TopNOr(0))
	if err != nil {
		s.marketUnavailable(w, r, "ratios", err)
		return
	}
	if ratios == nil {
		ratios = []core.CompanyRatios{}
	}
	NewHTMXResponse().JSON(map[string]interface{}{"companies": ratios}).Write(w)
}

// authorized checks the admin token from X-Admin-Token or a bearer
// Authorization header. No configured token means no check.
func (s *Server) authorized(r *http.Request) bool {
	if s.adminToken == "" {
		return true
	}
	token := r.Header.Get("X-Admin-Token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

// handleReload re-reads the data source and swaps the dataset in.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	logger := log.FromContext(r.Context())
	if !s.authorized(r) {
		logger.WarnContext(r.Context(), "Unauthorized reload attempt",
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			"error_type", log.ErrorTypeAuth)
		JSONError(http.StatusUnauthorized, "invalid admin token").Write(w)
		return
	}
	if s.store == nil {
		JSONError(http.StatusServiceUnavailable, "no local dataset to reload").Write(w)
		return
	}

	start := time.Now()
	d, err := s.store.Reload(r.Context())
	if err != nil {
		atomic.AddInt64(&s.appMetrics.reloadFailures, 1)
		logger.ErrorContext(r.Context(), "Dataset reload failed",
			log.FieldOperation, log.OpReload,
			log.FieldError, err.Error())
		JSONError(http.StatusServiceUnavailable, "reload failed, previous dataset kept").
			TriggerErrorNotification("No se pudo recargar los datos").
			Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.reloads, 1)

	logger.InfoContext(r.Context(), "Dataset reloaded on request",
		log.FieldSource, d.Source(),
		log.FieldRecords, d.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())

	NewHTMXResponse().
		TriggerDatasetReloaded(d.Len()).
		TriggerSuccessNotification("Datos recargados").
		JSON(map[string]interface{}{
			"status":    "reloaded",
			"source":    d.Source(),
			"records":   d.Len(),
			"dropped":   d.Dropped(),
			"loaded_at": d.LoadedAt().Format(time.RFC3339),
		}).
		Write(w)
}

// Package http provides HTTP server and handler implementations.
//
// This file parses and validates the market query parameters shared by the
// JSON API and the dashboard partials.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"seguros/internal/core"
	"seguros/internal/services"
)

var validate = newValidator()

// newValidator reports fields by their query parameter name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("param")
	})
	return v
}

// MarketParams holds the raw market query parameters. Empty strings mean
// "not set".
type MarketParams struct {
	Year      string `param:"year" validate:"omitempty,number,len=4"`
	Quarter   string `param:"quarter" validate:"max=2"`
	Ramo      string `param:"ramo" validate:"max=200"`
	Companies string `param:"companies" validate:"max=4096"`
	ViewMode  string `param:"view_mode" validate:"max=32"`
	TopN      string `param:"top_n" validate:"omitempty,number"`
}

// ParseMarketParams reads and sanitizes the market parameters from query.
// Repeated "company" values, as a multi-select submits them, are used when
// "companies" is absent.
func ParseMarketParams(query url.Values) MarketParams {
	companies := sanitizeInput(query.Get("companies"))
	if companies == "" && len(query["company"]) > 0 {
		names := make([]string, 0, len(query["company"]))
		for _, c := range query["company"] {
			if c = sanitizeInput(c); c != "" {
				names = append(names, c)
			}
		}
		companies = strings.Join(names, ",")
	}
	return MarketParams{
		Year:      sanitizeInput(query.Get("year")),
		Quarter:   sanitizeInput(query.Get("quarter")),
		Ramo:      sanitizeInput(query.Get("ramo")),
		Companies: companies,
		ViewMode:  sanitizeInput(query.Get("view_mode")),
		TopN:      sanitizeInput(query.Get("top_n")),
	}
}

// Validate returns every rejected parameter, or nil.
func (p MarketParams) Validate() []FieldError {
	var out []FieldError
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []FieldError{{Loc: []string{"query"}, Msg: err.Error(), Type: "value_error"}}
		}
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
	}
	if p.TopN != "" && !hasField(out, "top_n") {
		n, _ := strconv.Atoi(p.TopN)
		if err := validate.Var(n, "min=1,max=100"); err != nil {
			out = append(out, FieldError{
				Loc:  []string{"query", "top_n"},
				Msg:  "top_n must be between 1 and 100",
				Type: "value_error.number.range",
			})
		}
	}
	return out
}

func fieldError(fe validator.FieldError) FieldError {
	out := FieldError{Loc: []string{"query", fe.Field()}, Type: "value_error." + fe.Tag()}
	switch fe.Field() {
	case "year":
		out.Msg = "year must be a four-digit integer"
	case "top_n":
		out.Msg = "top_n must be an integer"
	default:
		out.Msg = fe.Field() + " is too long"
	}
	return out
}

func hasField(errs []FieldError, name string) bool {
	for _, e := range errs {
		if len(e.Loc) == 2 && e.Loc[1] == name {
			return true
		}
	}
	return false
}

// Query converts validated parameters to a market query. Companies are
// comma-separated; the view mode defaults to accumulated.
func (p MarketParams) Query() services.Query {
	q := services.Query{
		Quarter:  p.Quarter,
		Ramo:     p.Ramo,
		ViewMode: core.ParseViewMode(p.ViewMode),
	}
	if y, err := strconv.Atoi(p.Year); err == nil {
		q.Year = &y
	}
	if p.Companies != "" {
		q.Companies = strings.Split(p.Companies, ",")
	}
	return q.Normalize()
}

// TopNOr returns top_n, or def when it is not set.
func (p MarketParams) TopNOr(def int) int {
	if n, err := strconv.Atoi(p.TopN); err == nil {
		return n
	}
	return def
}

// ParseMarketQuery parses and validates the request's market parameters.
// On failure it returns the 422 response to send.
func ParseMarketQuery(r *http.Request) (MarketParams, *HTMXResponseBuilder) {
	p := ParseMarketParams(r.URL.Query())
	if errs := p.Validate(); len(errs) > 0 {
		return p, ValidationError(errs)
	}
	return p, nil
}

// ParseList splits a comma-separated parameter, dropping blanks.
func ParseList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RequireMethod checks if the request method matches one of the allowed methods.
// Returns an error response builder if the method is not allowed, nil otherwise.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for GET-only endpoints.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only endpoints.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

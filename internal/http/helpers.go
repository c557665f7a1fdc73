package http

import (
	"html/template"
	"strings"

	"github.com/goccy/go-json"

	"seguros/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// templateFuncs are the helpers available to every page template.
var templateFuncs = template.FuncMap{
	"currency": core.FormatCurrency,
	"millions": core.FormatMillions,
	"number":   core.FormatNumber,
	"percent":  core.FormatPercent,
	"quarter":  core.QuarterLabel,
	"contains": func(list []string, v string) bool {
		for _, s := range list {
			if s == v {
				return true
			}
		}
		return false
	},
	// jsonData embeds v for scripts reading a <script type="application/json">.
	"jsonData": func(v interface{}) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
}

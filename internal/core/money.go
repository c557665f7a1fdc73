// Package core provides the insurance market domain types.
//
// This file contains amount coercion from source text and the Argentine
// display formats used by the dashboard.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseAmount converts a source value to a non-negative float.
//
// Empty, unparseable, NaN, infinite and negative inputs all become 0; the
// caller never sees an error.
//
// Examples:
//
//	ParseAmount("1500.5") -> 1500.5
//	ParseAmount("")       -> 0
//	ParseAmount("n/a")    -> 0
//	ParseAmount("-3")     -> 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// printer formats numbers the Argentine way: "." groups thousands and ","
// separates decimals.
var printer = message.NewPrinter(language.Spanish)

// FormatNumber renders v rounded to units with "." as thousands separator.
// Halves round away from zero.
func FormatNumber(v float64) string {
	v = math.Round(v)
	if v == 0 {
		v = 0 // drops the sign of -0
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(0)))
}

// FormatMillions renders an amount in millions, e.g. "$ 1.235 M".
func FormatMillions(v float64) string {
	return "$ " + FormatNumber(v/1_000_000) + " M"
}

// FormatCurrency renders a whole amount, e.g. "$ 1.234.568".
func FormatCurrency(v float64) string {
	return "$ " + FormatNumber(v)
}

// FormatPercent renders a ratio with two decimals and a comma, e.g. "65,25 %".
func FormatPercent(v float64) string {
	v = Round2(v)
	if v == 0 {
		v = 0
	}
	return printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2))) + " %"
}

// Package codec converts between tabular file formats and raw record tables.
package codec

import (
	"strings"

	"seguros/internal/core"
)

// FromRows maps a header row plus data rows onto raw records by column
// name. Unknown columns are kept in the header but otherwise ignored; short
// rows leave trailing fields empty. Fully blank rows are skipped.
func FromRows(rows [][]string) core.RawTable {
	if len(rows) == 0 {
		return core.RawTable{}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = normalizeHeader(h)
	}
	out := core.RawTable{Header: header, Records: make([]core.RawRecord, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		var rec core.RawRecord
		for i, col := range header {
			rec.Set(col, safeGet(row, i))
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// ToRows is the inverse of FromRows: a header of every source column
// followed by one row per record.
func ToRows(t core.RawTable) [][]string {
	out := make([][]string, 0, len(t.Records)+1)
	out = append(out, append([]string(nil), core.SourceColumns...))
	for _, r := range t.Records {
		out = append(out, r.Values())
	}
	return out
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

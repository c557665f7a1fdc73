package google

import (
	"fmt"
	"strconv"

	"seguros/internal/core"
	"seguros/internal/source/codec"
)

// parseValues converts a values matrix (as returned by Sheets API) into a
// raw table, matching columns by header name.
func parseValues(values [][]interface{}) core.RawTable {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = toStrings(v)
	}
	return codec.FromRows(rows)
}

func toValues(t core.RawTable) [][]interface{} {
	rows := codec.ToRows(t)
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			// Unformatted numbers arrive as float64; avoid exponent notation.
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

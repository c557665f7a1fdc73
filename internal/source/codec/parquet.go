package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	pqsource "github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"seguros/internal/core"
)

// parquetRecord is the on-disk layout of the records table. Amounts are
// optional so that a missing value survives a round trip as empty.
type parquetRecord struct {
	Period                  string   `parquet:"name=periodo, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CompanyCode             string   `parquet:"name=cod_cia, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CompanyName             string   `parquet:"name=nombre_corto, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Ramo                    string   `parquet:"name=ramo_nombre_corto, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Subramo                 string   `parquet:"name=subramo_nombre_corto, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PremiumsWritten         *float64 `parquet:"name=primas_emitidas, type=DOUBLE, repetitiontype=OPTIONAL"`
	PremiumsEarned          *float64 `parquet:"name=primas_devengadas, type=DOUBLE, repetitiontype=OPTIONAL"`
	ClaimsIncurred          *float64 `parquet:"name=siniestros_devengados, type=DOUBLE, repetitiontype=OPTIONAL"`
	ExpensesIncurred        *float64 `parquet:"name=gastos_devengados, type=DOUBLE, repetitiontype=OPTIONAL"`
	PremiumsWrittenCurrent  *float64 `parquet:"name=primas_emitidas_current, type=DOUBLE, repetitiontype=OPTIONAL"`
	PremiumsEarnedCurrent   *float64 `parquet:"name=primas_devengadas_current, type=DOUBLE, repetitiontype=OPTIONAL"`
	ClaimsIncurredCurrent   *float64 `parquet:"name=siniestros_devengados_current, type=DOUBLE, repetitiontype=OPTIONAL"`
	ExpensesIncurredCurrent *float64 `parquet:"name=gastos_devengados_current, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ReadParquet reads every row of a flat parquet file and closes it. Columns
// are taken from the file's own schema, so files written by other tools load
// as long as the column names match; the header reports what the file
// carried.
func ReadParquet(pf pqsource.ParquetFile) (core.RawTable, error) {
	defer pf.Close()

	pr, err := reader.NewParquetColumnReader(pf, 4)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := pr.GetNumRows()
	sh := pr.SchemaHandler
	header := make([]string, 0, len(sh.ValueColumns))
	columns := make([][]interface{}, 0, len(sh.ValueColumns))
	for _, path := range sh.ValueColumns {
		idx, ok := sh.MapIndex[path]
		if !ok {
			continue
		}
		name := sh.GetExName(int(idx))
		var values []interface{}
		if num > 0 {
			if values, _, _, err = pr.ReadColumnByPath(path, num); err != nil {
				return core.RawTable{}, fmt.Errorf("read parquet column %s: %w", name, err)
			}
		}
		header = append(header, name)
		columns = append(columns, values)
	}

	rows := make([][]string, 0, num+1)
	rows = append(rows, header)
	for i := 0; i < int(num); i++ {
		row := make([]string, len(columns))
		for c, values := range columns {
			if i < len(values) {
				row[c] = parquetValue(values[i])
			}
		}
		rows = append(rows, row)
	}
	return FromRows(rows), nil
}

// parquetValue renders a column value the way a CSV would carry it. Nulls
// become empty.
func parquetValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteParquet writes the table in the records layout and closes the file.
func WriteParquet(pf pqsource.ParquetFile, t core.RawTable) error {
	defer pf.Close()

	pw, err := writer.NewParquetWriter(pf, new(parquetRecord), 4)
	if err != nil {
		return fmt.Errorf("open parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range t.Records {
		rec := toParquet(r)
		if err := pw.Write(&rec); err != nil {
			return fmt.Errorf("write parquet row %q/%q: %w", r.Period, r.CompanyCode, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

func toParquet(r core.RawRecord) parquetRecord {
	return parquetRecord{
		Period:                  strings.TrimSpace(r.Period),
		CompanyCode:             strings.TrimSpace(r.CompanyCode),
		CompanyName:             strings.TrimSpace(r.CompanyName),
		Ramo:                    strings.TrimSpace(r.Ramo),
		Subramo:                 strings.TrimSpace(r.Subramo),
		PremiumsWritten:         parseOptional(r.PremiumsWritten),
		PremiumsEarned:          parseOptional(r.PremiumsEarned),
		ClaimsIncurred:          parseOptional(r.ClaimsIncurred),
		ExpensesIncurred:        parseOptional(r.ExpensesIncurred),
		PremiumsWrittenCurrent:  parseOptional(r.PremiumsWrittenCurrent),
		PremiumsEarnedCurrent:   parseOptional(r.PremiumsEarnedCurrent),
		ClaimsIncurredCurrent:   parseOptional(r.ClaimsIncurredCurrent),
		ExpensesIncurredCurrent: parseOptional(r.ExpensesIncurredCurrent),
	}
}

func parseOptional(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}

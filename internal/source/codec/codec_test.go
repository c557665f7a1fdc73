package codec

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"seguros/internal/core"
)

func sampleTable() core.RawTable {
	return core.RawTable{
		Header: core.SourceColumns,
		Records: []core.RawRecord{
			{
				Period: "202401", CompanyCode: "0001", CompanyName: "Sancor",
				Ramo: "Automotores", Subramo: "Autos",
				PremiumsWritten: "1500.5", PremiumsEarned: "1200", ClaimsIncurred: "800", ExpensesIncurred: "300",
				PremiumsWrittenCurrent: "400", PremiumsEarnedCurrent: "350", ClaimsIncurredCurrent: "200", ExpensesIncurredCurrent: "90",
			},
			{
				Period: "202402", CompanyCode: "0002", CompanyName: "",
				Ramo: "Vida", Subramo: "Vida individual",
				PremiumsWritten: "900",
			},
		},
	}
}

func TestDecodeCSVKeepsHeaderAsRead(t *testing.T) {
	data := []byte("\ufeffperiodo,cod_cia,nombre_corto,primas_emitidas,extra\n" +
		"202401,0001,Sancor,100.5,x\n" +
		"202402,0002,,abc,y\n")

	got, err := DecodeCSV(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"periodo", "cod_cia", "nombre_corto", "primas_emitidas", "extra"}, got.Header)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "202401", got.Records[0].Period)
	assert.Equal(t, "Sancor", got.Records[0].CompanyName)
	assert.Equal(t, "100.5", got.Records[0].PremiumsWritten)
	assert.Equal(t, "abc", got.Records[1].PremiumsWritten)
	assert.Empty(t, got.Records[1].Ramo)

	schema := core.NewSchema(got.Header)
	assert.True(t, schema.HasMetric(core.PremiumsWritten, core.Accumulated))
	assert.False(t, schema.HasMetric(core.PremiumsEarned, core.Accumulated))
}

func TestDecodeCSVEmpty(t *testing.T) {
	got, err := DecodeCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, got.Records)

	got, err = DecodeCSV([]byte("periodo,cod_cia\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"periodo", "cod_cia"}, got.Header)
	assert.Empty(t, got.Records)
}

func TestCSVEncodeDecode(t *testing.T) {
	in := sampleTable()
	data, err := EncodeCSV(in)
	require.NoError(t, err)

	out, err := DecodeCSV(data)
	require.NoError(t, err)
	assert.Equal(t, core.SourceColumns, out.Header)
	assert.Equal(t, in.Records, out.Records)
}

func TestParquetWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subramos_historico.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	require.NoError(t, WriteParquet(fw, sampleTable()))

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	got, err := ReadParquet(fr)
	require.NoError(t, err)

	assert.Equal(t, core.SourceColumns, got.Header)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "1500.5", got.Records[0].PremiumsWritten)
	assert.Equal(t, "90", got.Records[0].ExpensesIncurredCurrent)
	assert.Equal(t, "900", got.Records[1].PremiumsWritten)
	assert.Empty(t, got.Records[1].PremiumsEarned, "missing amounts stay empty")
	assert.Equal(t, "Vida individual", got.Records[1].Subramo)
}

// foreignRecord mimics a parquet file written by another tool: an integer
// period, no current-period columns and an extra index column.
type foreignRecord struct {
	Period  int64   `parquet:"name=periodo, type=INT64"`
	Code    string  `parquet:"name=cod_cia, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name    *string `parquet:"name=nombre_corto, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Written float64 `parquet:"name=primas_emitidas, type=DOUBLE"`
	Row     int32   `parquet:"name=extra, type=INT32"`
}

func TestParquetReadsForeignLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pandas.parquet")

	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(foreignRecord), 1)
	require.NoError(t, err)
	name := "Sancor"
	require.NoError(t, pw.Write(foreignRecord{Period: 202401, Code: "0001", Name: &name, Written: 1500.5, Row: 0}))
	require.NoError(t, pw.Write(foreignRecord{Period: 202402, Code: "0002", Written: 900, Row: 1}))
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	got, err := ReadParquet(fr)
	require.NoError(t, err)

	assert.Equal(t, []string{"periodo", "cod_cia", "nombre_corto", "primas_emitidas", "extra"}, got.Header)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "202401", got.Records[0].Period)
	assert.Equal(t, "Sancor", got.Records[0].CompanyName)
	assert.Equal(t, "1500.5", got.Records[0].PremiumsWritten)
	assert.Empty(t, got.Records[1].CompanyName, "null names stay empty")
	assert.Equal(t, "900", got.Records[1].PremiumsWritten)

	schema := core.NewSchema(got.Header)
	assert.True(t, schema.HasMetric(core.PremiumsWritten, core.Accumulated))
	assert.False(t, schema.HasMetric(core.PremiumsWritten, core.Current))
}

func TestXLSXWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subramos.xlsx")
	require.NoError(t, WriteXLSX(path, "Datos", sampleTable()))

	got, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, core.SourceColumns, got.Header)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "Sancor", got.Records[0].CompanyName)
	assert.Equal(t, "1500.5", got.Records[0].PremiumsWritten)

	_, err = ReadXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestFromRows(t *testing.T) {
	rows := [][]string{
		{" Periodo ", "COD_CIA", "ramo_nombre_corto", "unknown"},
		{"202403", "0007", "Incendio"},
		{"", "  ", ""},
		{"202404", "0008", "Vida", "ignored"},
	}
	got := FromRows(rows)

	assert.Equal(t, []string{"periodo", "cod_cia", "ramo_nombre_corto", "unknown"}, got.Header)
	require.Len(t, got.Records, 2, "blank rows are skipped")
	assert.Equal(t, "Incendio", got.Records[0].Ramo)
	assert.Equal(t, "0008", got.Records[1].CompanyCode)

	assert.Empty(t, FromRows(nil).Records)
}

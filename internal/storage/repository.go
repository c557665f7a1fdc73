package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"seguros/internal/core"
	"seguros/internal/source"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

var (
	_ source.RecordReader = (*SQLiteRepository)(nil)
	_ source.RecordWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// String describes the source for logs.
func (r *SQLiteRepository) String() string {
	return "sqlite:" + r.path
}

// ImportResult describes a completed import batch.
type ImportResult struct {
	ID         string
	Source     string
	Columns    []string
	Records    int
	ImportedAt time.Time
}

// ReadRecords implements source.RecordReader. The header is the column set
// of the latest import; an empty store reports source.ErrNotFound.
func (r *SQLiteRepository) ReadRecords(ctx context.Context) (core.RawTable, error) {
	last, err := r.LatestImport(ctx)
	if err != nil {
		return core.RawTable{}, err
	}

	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return core.RawTable{}, fmt.Errorf("list records: %w", err)
	}

	out := core.RawTable{Header: last.Columns, Records: make([]core.RawRecord, len(rows))}
	for i, row := range rows {
		out.Records[i] = row.raw()
	}
	return out, nil
}

// ReplaceRecords implements source.RecordWriter.
func (r *SQLiteRepository) ReplaceRecords(ctx context.Context, t core.RawTable) (int, error) {
	res, err := r.Import(ctx, "unknown", t)
	if err != nil {
		return 0, err
	}
	return res.Records, nil
}

// Import replaces every stored record in one transaction and records the
// batch with the header the source carried.
func (r *SQLiteRepository) Import(ctx context.Context, src string, t core.RawTable) (ImportResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteRecords(ctx); err != nil {
		return ImportResult{}, fmt.Errorf("clear records: %w", err)
	}
	for i, rec := range t.Records {
		if err := q.InsertRecord(ctx, insertParams(rec)); err != nil {
			return ImportResult{}, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	header := t.Header
	if len(header) == 0 {
		header = core.SourceColumns
	}
	res := ImportResult{
		ID:         uuid.NewString(),
		Source:     src,
		Columns:    header,
		Records:    len(t.Records),
		ImportedAt: time.Now().UTC(),
	}
	if err := q.CreateImport(ctx, CreateImportParams{
		ID:         res.ID,
		Source:     res.Source,
		Columns:    strings.Join(res.Columns, ","),
		Records:    int64(res.Records),
		ImportedAt: res.ImportedAt,
	}); err != nil {
		return ImportResult{}, fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Records imported to SQLite",
		"batch_id", res.ID,
		"source", res.Source,
		"records", res.Records)

	return res, nil
}

// LatestImport returns the most recent import batch.
func (r *SQLiteRepository) LatestImport(ctx context.Context) (ImportResult, error) {
	imp, err := r.queries.GetLatestImport(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportResult{}, fmt.Errorf("%w: no records imported into %s", source.ErrNotFound, r.path)
		}
		return ImportResult{}, fmt.Errorf("get latest import: %w", err)
	}
	var columns []string
	if imp.Columns != "" {
		columns = strings.Split(imp.Columns, ",")
	}
	return ImportResult{
		ID:         imp.ID,
		Source:     imp.Source,
		Columns:    columns,
		Records:    int(imp.Records),
		ImportedAt: imp.ImportedAt,
	}, nil
}

func insertParams(r core.RawRecord) InsertRecordParams {
	return InsertRecordParams{
		Periodo:                     strings.TrimSpace(r.Period),
		CodCia:                      strings.TrimSpace(r.CompanyCode),
		NombreCorto:                 strings.TrimSpace(r.CompanyName),
		RamoNombreCorto:             strings.TrimSpace(r.Ramo),
		SubramoNombreCorto:          strings.TrimSpace(r.Subramo),
		PrimasEmitidas:              nullFloat(r.PremiumsWritten),
		PrimasDevengadas:            nullFloat(r.PremiumsEarned),
		SiniestrosDevengados:        nullFloat(r.ClaimsIncurred),
		GastosDevengados:            nullFloat(r.ExpensesIncurred),
		PrimasEmitidasCurrent:       nullFloat(r.PremiumsWrittenCurrent),
		PrimasDevengadasCurrent:     nullFloat(r.PremiumsEarnedCurrent),
		SiniestrosDevengadosCurrent: nullFloat(r.ClaimsIncurredCurrent),
		GastosDevengadosCurrent:     nullFloat(r.ExpensesIncurredCurrent),
	}
}

func (r Record) raw() core.RawRecord {
	return core.RawRecord{
		Period:                  r.Periodo,
		CompanyCode:             r.CodCia,
		CompanyName:             r.NombreCorto,
		Ramo:                    r.RamoNombreCorto,
		Subramo:                 r.SubramoNombreCorto,
		PremiumsWritten:         formatNull(r.PrimasEmitidas),
		PremiumsEarned:          formatNull(r.PrimasDevengadas),
		ClaimsIncurred:          formatNull(r.SiniestrosDevengados),
		ExpensesIncurred:        formatNull(r.GastosDevengados),
		PremiumsWrittenCurrent:  formatNull(r.PrimasEmitidasCurrent),
		PremiumsEarnedCurrent:   formatNull(r.PrimasDevengadasCurrent),
		ClaimsIncurredCurrent:   formatNull(r.SiniestrosDevengadosCurrent),
		ExpensesIncurredCurrent: formatNull(r.GastosDevengadosCurrent),
	}
}

func nullFloat(s string) sql.NullFloat64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func formatNull(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Record struct {
	ID                          int64
	Periodo                     string
	CodCia                      string
	NombreCorto                 string
	RamoNombreCorto             string
	SubramoNombreCorto          string
	PrimasEmitidas              sql.NullFloat64
	PrimasDevengadas            sql.NullFloat64
	SiniestrosDevengados        sql.NullFloat64
	GastosDevengados            sql.NullFloat64
	PrimasEmitidasCurrent       sql.NullFloat64
	PrimasDevengadasCurrent     sql.NullFloat64
	SiniestrosDevengadosCurrent sql.NullFloat64
	GastosDevengadosCurrent     sql.NullFloat64
}

type Import struct {
	ID         string
	Source     string
	Columns    string
	Records    int64
	ImportedAt time.Time
}

const deleteRecords = `DELETE FROM records`

func (q *Queries) DeleteRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteRecords)
	return err
}

const insertRecord = `INSERT INTO records (
    periodo, cod_cia, nombre_corto, ramo_nombre_corto, subramo_nombre_corto,
    primas_emitidas, primas_devengadas, siniestros_devengados, gastos_devengados,
    primas_emitidas_current, primas_devengadas_current, siniestros_devengados_current, gastos_devengados_current
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertRecordParams struct {
	Periodo                     string
	CodCia                      string
	NombreCorto                 string
	RamoNombreCorto             string
	SubramoNombreCorto          string
	PrimasEmitidas              sql.NullFloat64
	PrimasDevengadas            sql.NullFloat64
	SiniestrosDevengados        sql.NullFloat64
	GastosDevengados            sql.NullFloat64
	PrimasEmitidasCurrent       sql.NullFloat64
	PrimasDevengadasCurrent     sql.NullFloat64
	SiniestrosDevengadosCurrent sql.NullFloat64
	GastosDevengadosCurrent     sql.NullFloat64
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertRecord,
		arg.Periodo,
		arg.CodCia,
		arg.NombreCorto,
		arg.RamoNombreCorto,
		arg.SubramoNombreCorto,
		arg.PrimasEmitidas,
		arg.PrimasDevengadas,
		arg.SiniestrosDevengados,
		arg.GastosDevengados,
		arg.PrimasEmitidasCurrent,
		arg.PrimasDevengadasCurrent,
		arg.SiniestrosDevengadosCurrent,
		arg.GastosDevengadosCurrent,
	)
	return err
}

const listRecords = `SELECT id, periodo, cod_cia, nombre_corto, ramo_nombre_corto, subramo_nombre_corto,
    primas_emitidas, primas_devengadas, siniestros_devengados, gastos_devengados,
    primas_emitidas_current, primas_devengadas_current, siniestros_devengados_current, gastos_devengados_current
FROM records
ORDER BY id`

func (q *Queries) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var i Record
		if err := rows.Scan(
			&i.ID,
			&i.Periodo,
			&i.CodCia,
			&i.NombreCorto,
			&i.RamoNombreCorto,
			&i.SubramoNombreCorto,
			&i.PrimasEmitidas,
			&i.PrimasDevengadas,
			&i.SiniestrosDevengados,
			&i.GastosDevengados,
			&i.PrimasEmitidasCurrent,
			&i.PrimasDevengadasCurrent,
			&i.SiniestrosDevengadosCurrent,
			&i.GastosDevengadosCurrent,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createImport = `INSERT INTO imports (id, source, columns, records, imported_at)
VALUES (?, ?, ?, ?, ?)`

type CreateImportParams struct {
	ID         string
	Source     string
	Columns    string
	Records    int64
	ImportedAt time.Time
}

func (q *Queries) CreateImport(ctx context.Context, arg CreateImportParams) error {
	_, err := q.db.ExecContext(ctx, createImport,
		arg.ID,
		arg.Source,
		arg.Columns,
		arg.Records,
		arg.ImportedAt,
	)
	return err
}

const getLatestImport = `SELECT id, source, columns, records, imported_at
FROM imports
ORDER BY imported_at DESC, rowid DESC
LIMIT 1`

func (q *Queries) GetLatestImport(ctx context.Context) (Import, error) {
	row := q.db.QueryRowContext(ctx, getLatestImport)
	var i Import
	err := row.Scan(
		&i.ID,
		&i.Source,
		&i.Columns,
		&i.Records,
		&i.ImportedAt,
	)
	return i, err
}

// Package postgres reads the records table from a PostgreSQL table whose
// columns follow the source naming. Any column type is accepted; values are
// read as text and coerced like every other source.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"seguros/internal/core"
	"seguros/internal/source"
)

// DefaultTable is read when no table is configured.
const DefaultTable = "subramos_historico"

type Reader struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

var _ source.RecordReader = (*Reader)(nil)

// New connects to dbURL. table may be schema qualified.
func New(ctx context.Context, dbURL, table string) (*Reader, error) {
	ident, err := ParseTable(table)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Reader{pool: pool, table: ident}, nil
}

// Close releases the pool.
func (r *Reader) Close() {
	r.pool.Close()
}

// String describes the source for logs.
func (r *Reader) String() string {
	return "postgres:" + r.table.Sanitize()
}

// ParseTable splits an optionally schema qualified table name.
func ParseTable(name string) (pgx.Identifier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTable
	}
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", name)
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts), nil
}

// ReadRecords discovers which source columns the table has and selects them.
func (r *Reader) ReadRecords(ctx context.Context) (core.RawTable, error) {
	schema, table := "", r.table[len(r.table)-1]
	if len(r.table) == 2 {
		schema = r.table[0]
	}

	var present []string
	if err := pgxscan.Select(ctx, r.pool, &present, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND table_name = $2`, schema, table); err != nil {
		return core.RawTable{}, fmt.Errorf("list columns of %s: %w", r.table.Sanitize(), err)
	}
	columns := knownColumns(present)
	if len(columns) == 0 {
		return core.RawTable{}, fmt.Errorf("%w: %s", source.ErrNotFound, r.table.Sanitize())
	}

	var records []core.RawRecord
	if err := pgxscan.Select(ctx, r.pool, &records, selectSQL(r.table, columns)); err != nil {
		return core.RawTable{}, fmt.Errorf("select %s: %w", r.table.Sanitize(), err)
	}
	return core.RawTable{Header: columns, Records: records}, nil
}

// knownColumns keeps the source columns present in the table, in source
// order.
func knownColumns(present []string) []string {
	have := make(map[string]bool, len(present))
	for _, c := range present {
		have[strings.ToLower(c)] = true
	}
	var out []string
	for _, c := range core.SourceColumns {
		if have[c] {
			out = append(out, c)
		}
	}
	return out
}

func selectSQL(table pgx.Identifier, columns []string) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		col := pgx.Identifier{c}.Sanitize()
		exprs[i] = fmt.Sprintf("COALESCE(%s::text, '') AS %s", col, col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), table.Sanitize())
}

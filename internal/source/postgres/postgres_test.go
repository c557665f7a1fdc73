package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	id, err := ParseTable("")
	require.NoError(t, err)
	assert.Equal(t, pgx.Identifier{"subramos_historico"}, id)

	id, err = ParseTable("ssn.subramos")
	require.NoError(t, err)
	assert.Equal(t, `"ssn"."subramos"`, id.Sanitize())

	for _, bad := range []string{"a.b.c", "a.", ".b"} {
		_, err := ParseTable(bad)
		assert.Error(t, err, bad)
	}
}

func TestKnownColumns(t *testing.T) {
	got := knownColumns([]string{"primas_emitidas", "id", "periodo", "cod_cia", "loaded_at"})
	assert.Equal(t, []string{"periodo", "cod_cia", "primas_emitidas"}, got)
	assert.Empty(t, knownColumns(nil))
}

func TestSelectSQL(t *testing.T) {
	sql := selectSQL(pgx.Identifier{"public", "t"}, []string{"periodo", "primas_emitidas"})
	assert.Equal(t,
		`SELECT COALESCE("periodo"::text, '') AS "periodo", COALESCE("primas_emitidas"::text, '') AS "primas_emitidas" FROM "public"."t"`,
		sql)
}

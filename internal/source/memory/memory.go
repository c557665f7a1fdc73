// Package memory keeps the records table in process memory. It backs tests
// and demo runs without a data directory.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"seguros/internal/core"
	"seguros/internal/source/codec"
)

type Store struct {
	mu    sync.Mutex
	table core.RawTable
	reads int
}

func New(t core.RawTable) *Store {
	return &Store{table: copyTable(t)}
}

// NewFromFiles seeds the store from <base>/seed_records.csv, falling back
// to the built-in sample when the file is missing or empty.
func NewFromFiles(base string) *Store {
	data, err := os.ReadFile(filepath.Join(base, "seed_records.csv"))
	if err == nil {
		if t, err := codec.DecodeCSV(data); err == nil && len(t.Records) > 0 {
			return New(t)
		}
	}
	return New(SampleTable())
}

// ReadRecords returns a copy of the stored table.
func (s *Store) ReadRecords(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return copyTable(s.table), nil
}

// ReplaceRecords swaps the stored table.
func (s *Store) ReplaceRecords(_ context.Context, t core.RawTable) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = copyTable(t)
	return len(t.Records), nil
}

// Reads returns how many times the table was read.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// String describes the source for logs.
func (s *Store) String() string { return "memory" }

func copyTable(t core.RawTable) core.RawTable {
	return core.RawTable{
		Header:  append([]string(nil), t.Header...),
		Records: append([]core.RawRecord(nil), t.Records...),
	}
}

// SampleTable is a small two-quarter market with four companies.
func SampleTable() core.RawTable {
	type row struct {
		period, code, name, ramo, subramo string
		acc, cur                          [4]string
	}
	rows := []row{
		{"202401", "0001", "Sancor", "Automotores", "Autos", [4]string{"1500", "1200", "800", "300"}, [4]string{"1500", "1200", "800", "300"}},
		{"202401", "0001", "Sancor", "Vida", "Vida individual", [4]string{"400", "380", "100", "90"}, [4]string{"400", "380", "100", "90"}},
		{"202401", "0002", "Federación Patronal", "Automotores", "Autos", [4]string{"1300", "1100", "900", "250"}, [4]string{"1300", "1100", "900", "250"}},
		{"202401", "0002", "Federación Patronal", "Incendio", "Incendio", [4]string{"200", "180", "40", "60"}, [4]string{"200", "180", "40", "60"}},
		{"202401", "0003", "La Segunda", "Automotores", "Motos", [4]string{"600", "550", "300", "150"}, [4]string{"600", "550", "300", "150"}},
		{"202401", "0004", "", "Vida", "Sepelio", [4]string{"90", "85", "20", "30"}, [4]string{"90", "85", "20", "30"}},
		{"202402", "0001", "Sancor", "Automotores", "Autos", [4]string{"3100", "2500", "1700", "620"}, [4]string{"1600", "1300", "900", "320"}},
		{"202402", "0001", "Sancor", "Vida", "Vida individual", [4]string{"820", "770", "210", "180"}, [4]string{"420", "390", "110", "90"}},
		{"202402", "0002", "Federación Patronal", "Automotores", "Autos", [4]string{"2700", "2250", "1850", "510"}, [4]string{"1400", "1150", "950", "260"}},
		{"202402", "0002", "Federación Patronal", "Incendio", "Incendio", [4]string{"410", "370", "90", "120"}, [4]string{"210", "190", "50", "60"}},
		{"202402", "0003", "La Segunda", "Automotores", "Motos", [4]string{"1250", "1130", "640", "310"}, [4]string{"650", "580", "340", "160"}},
		{"202402", "0004", "", "Vida", "Sepelio", [4]string{"185", "175", "45", "62"}, [4]string{"95", "90", "25", "32"}},
	}
	out := core.RawTable{Header: append([]string(nil), core.SourceColumns...)}
	for _, r := range rows {
		out.Records = append(out.Records, core.RawRecord{
			Period: r.period, CompanyCode: r.code, CompanyName: r.name, Ramo: r.ramo, Subramo: r.subramo,
			PremiumsWritten: r.acc[0], PremiumsEarned: r.acc[1], ClaimsIncurred: r.acc[2], ExpensesIncurred: r.acc[3],
			PremiumsWrittenCurrent: r.cur[0], PremiumsEarnedCurrent: r.cur[1], ClaimsIncurredCurrent: r.cur[2], ExpensesIncurredCurrent: r.cur[3],
		})
	}
	return out
}

package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"seguros/internal/core"
)

func TestMemoryStoreReadAndReplace(t *testing.T) {
	s := New(core.RawTable{Header: []string{"periodo"}, Records: []core.RawRecord{{Period: "202401"}}})

	got, err := s.ReadRecords(context.Background())
	if err != nil || len(got.Records) != 1 {
		t.Fatalf("unexpected read: %+v err=%v", got, err)
	}

	// Mutating the returned copy must not leak into the store.
	got.Records[0].Period = "199901"
	again, _ := s.ReadRecords(context.Background())
	if again.Records[0].Period != "202401" {
		t.Fatalf("store was mutated through a read: %+v", again.Records[0])
	}

	n, err := s.ReplaceRecords(context.Background(), SampleTable())
	if err != nil || n != len(SampleTable().Records) {
		t.Fatalf("unexpected replace: n=%d err=%v", n, err)
	}
	if s.Reads() != 2 {
		t.Fatalf("reads: got %d", s.Reads())
	}
}

func TestNewFromFilesSeedsOrFallsBack(t *testing.T) {
	dir := t.TempDir()
	// No file -> sample
	s := NewFromFiles(dir)
	got, _ := s.ReadRecords(context.Background())
	if len(got.Records) != len(SampleTable().Records) {
		t.Fatalf("expected sample when file missing, got %d rows", len(got.Records))
	}

	seed := "periodo,cod_cia,nombre_corto,primas_emitidas\n202403,0009,Nueva,10\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_records.csv"), []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFiles(dir)
	got, _ = s.ReadRecords(context.Background())
	if len(got.Records) != 1 || got.Records[0].CompanyName != "Nueva" {
		t.Fatalf("unexpected seeded rows: %+v", got.Records)
	}
	if len(got.Header) != 4 {
		t.Fatalf("header should be kept as read: %v", got.Header)
	}
}

func TestSampleTablePrepares(t *testing.T) {
	for i, r := range SampleTable().Records {
		if _, err := r.Prepare(); err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
	}
}

func TestReadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(SampleTable()).ReadRecords(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

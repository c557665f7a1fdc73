// Package source defines the ports through which raw insurance records enter
// the application. Adapters live in the sub-packages.
package source

import (
	"context"
	"errors"

	"seguros/internal/core"
)

// ErrNotFound is returned when no data file or table exists at the
// configured location.
var ErrNotFound = errors.New("data source not found")

// Ports for outbound adapters.
type (
	// RecordReader loads every raw row of the records table together with
	// the header the source actually carried.
	RecordReader interface {
		ReadRecords(ctx context.Context) (core.RawTable, error)
	}

	// RecordWriter replaces the stored records with the given table and
	// returns the number of rows written.
	RecordWriter interface {
		ReplaceRecords(ctx context.Context, t core.RawTable) (int, error)
	}
)

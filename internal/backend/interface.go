package backend

import (
	"context"

	"seguros/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record source and optional cleanup function.
// Writer is nil for sources that cannot be written to.
type BackendResult struct {
	Reader  source.RecordReader
	Writer  source.RecordWriter
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates record sources based on configuration
type Factory interface {
	// CreateBackend creates a source instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for source creation
type Config struct {
	// Source type
	Type BackendType

	// Local files
	DataDirectory string
	FileName      string

	// S3 specific
	S3Bucket   string
	S3Prefix   string
	S3Endpoint string
	AWSRegion  string

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL   string
	PostgresTable string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of record source
type BackendType string

const (
	LocalBackend    BackendType = "local"
	S3Backend       BackendType = "s3"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, S3Backend, SQLiteBackend, PostgresBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

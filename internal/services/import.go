package services

import (
	"context"
	"fmt"
	"log/slog"

	"seguros/internal/core"
	"seguros/internal/source"
	"seguros/internal/storage"
)

// Importer stores a full snapshot of source records.
type Importer interface {
	Import(ctx context.Context, src string, t core.RawTable) (storage.ImportResult, error)
}

// ReloadPublisher tells other processes that the stored dataset changed.
type ReloadPublisher interface {
	PublishDatasetReload(ctx context.Context, source string, records int) error
}

// ImportService copies records from any source into the SQLite store and
// announces the new snapshot.
type ImportService struct {
	target    Importer
	publisher ReloadPublisher
}

func NewImportService(target Importer, publisher ReloadPublisher) *ImportService {
	return &ImportService{target: target, publisher: publisher}
}

// Import reads every record from src and replaces the stored snapshot.
// A failed publish is logged; the import itself has succeeded by then.
func (s *ImportService) Import(ctx context.Context, src source.RecordReader) (storage.ImportResult, error) {
	t, err := src.ReadRecords(ctx)
	if err != nil {
		return storage.ImportResult{}, fmt.Errorf("read %s: %w", describe(src), err)
	}
	if len(t.Header) > 0 && !core.NewSchema(t.Header).HasColumn(core.ColPeriod) {
		return storage.ImportResult{}, fmt.Errorf("read %s: %w", describe(src), core.ErrMissingPeriod)
	}

	res, err := s.target.Import(ctx, describe(src), t)
	if err != nil {
		return storage.ImportResult{}, fmt.Errorf("import: %w", err)
	}

	if err := s.publishReload(ctx, res); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reload message",
			"batch_id", res.ID, "error", err)
	}
	return res, nil
}

func (s *ImportService) publishReload(ctx context.Context, res storage.ImportResult) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping reload message")
		return nil
	}
	return s.publisher.PublishDatasetReload(ctx, res.Source, res.Records)
}

// Export copies every record from src into dst and returns the number
// written.
func Export(ctx context.Context, src source.RecordReader, dst source.RecordWriter) (int, error) {
	t, err := src.ReadRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", describe(src), err)
	}
	n, err := dst.ReplaceRecords(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", describe(dst), err)
	}
	return n, nil
}

func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}

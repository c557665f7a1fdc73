// Package file reads the records table from a local data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"

	"seguros/internal/core"
	"seguros/internal/source"
	"seguros/internal/source/codec"
)

// Reader loads a data file from a directory. Base is either a bare name,
// resolved as <base>.parquet, <base>.csv, <base>_sample.csv and <base>.xlsx
// in that order, or a file name with one of those extensions.
type Reader struct {
	Dir   string
	Base  string
	Sheet string
}

// New returns a reader for base inside dir.
func New(dir, base string) *Reader {
	return &Reader{Dir: dir, Base: base}
}

// Candidates lists the paths tried, in lookup order.
func (r *Reader) Candidates() []string {
	switch strings.ToLower(filepath.Ext(r.Base)) {
	case ".parquet", ".csv", ".xlsx":
		return []string{filepath.Join(r.Dir, r.Base)}
	}
	return []string{
		filepath.Join(r.Dir, r.Base+".parquet"),
		filepath.Join(r.Dir, r.Base+".csv"),
		filepath.Join(r.Dir, r.Base+"_sample.csv"),
		filepath.Join(r.Dir, r.Base+".xlsx"),
	}
}

// Resolve returns the first candidate that exists.
func (r *Reader) Resolve() (string, error) {
	for _, p := range r.Candidates() {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s in %s", source.ErrNotFound, r.Base, r.Dir)
}

// ReadRecords reads the resolved file.
func (r *Reader) ReadRecords(ctx context.Context) (core.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return core.RawTable{}, err
	}
	path, err := r.Resolve()
	if err != nil {
		return core.RawTable{}, err
	}
	return ReadPath(path, r.Sheet)
}

// String describes the source for logs.
func (r *Reader) String() string {
	return "file:" + filepath.Join(r.Dir, r.Base)
}

// ReadPath decodes a single file by extension.
func ReadPath(path, sheet string) (core.RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		pf, err := local.NewLocalFileReader(path)
		if err != nil {
			return core.RawTable{}, fmt.Errorf("open %s: %w", path, err)
		}
		return codec.ReadParquet(pf)
	case ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return core.RawTable{}, fmt.Errorf("read %s: %w", path, err)
		}
		return codec.DecodeCSV(data)
	case ".xlsx":
		return codec.ReadXLSX(path, sheet)
	default:
		return core.RawTable{}, fmt.Errorf("unsupported data file %s", path)
	}
}

// WritePath encodes a table by extension, creating parent directories.
func WritePath(path string, t core.RawTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		pf, err := local.NewLocalFileWriter(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		return codec.WriteParquet(pf, t)
	case ".csv":
		data, err := codec.EncodeCSV(t)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case ".xlsx":
		return codec.WriteXLSX(path, "", t)
	default:
		return fmt.Errorf("unsupported data file %s", path)
	}
}

// Writer replaces the contents of one data file.
type Writer struct {
	Path string
}

var _ source.RecordWriter = (*Writer)(nil)

// NewWriter returns a writer for path; the extension picks the format.
func NewWriter(path string) *Writer {
	return &Writer{Path: path}
}

// ReplaceRecords writes t to the file.
func (w *Writer) ReplaceRecords(ctx context.Context, t core.RawTable) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := WritePath(w.Path, t); err != nil {
		return 0, err
	}
	return len(t.Records), nil
}

// String describes the destination for logs.
func (w *Writer) String() string {
	return "file:" + w.Path
}

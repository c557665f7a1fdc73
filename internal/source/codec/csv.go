package codec

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"seguros/internal/core"
)

// DecodeCSV parses a comma separated file with a header row. Columns are
// matched by name; the header is returned as read so callers can tell which
// columns were present.
func DecodeCSV(data []byte) (core.RawTable, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return core.RawTable{}, nil
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return core.RawTable{}, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}

	var records []core.RawRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return core.RawTable{Header: header}, nil
		}
		return core.RawTable{}, fmt.Errorf("decode csv: %w", err)
	}
	return core.RawTable{Header: header, Records: records}, nil
}

// EncodeCSV writes every source column, header first.
func EncodeCSV(t core.RawTable) ([]byte, error) {
	records := t.Records
	if records == nil {
		records = []core.RawRecord{}
	}
	out, err := gocsv.MarshalBytes(&records)
	if err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return out, nil
}

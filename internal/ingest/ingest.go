// Package ingest reads lane files (CSV or XLSX) into canonical rows.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

// Format identifies a lane file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("lane file is empty")
	// ErrUnsupportedFormat is returned for formats other than CSV and XLSX.
	ErrUnsupportedFormat = errors.New("unsupported lane file format")
)

// DetectFormat picks a format from the file name, falling back to the
// Content-Type. CSV is the default.
func DetectFormat(name, contentType string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if strings.HasPrefix(contentType, xlsxContentType) {
		return FormatXLSX
	}
	return FormatCSV
}

// Read decodes a lane file in the given format.
func Read(r io.Reader, format Format, logger *slog.Logger) ([]domain.Row, error) {
	switch format {
	case FormatCSV, "":
		return ReadCSV(r, logger)
	case FormatXLSX:
		return ReadXLSX(r, "")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// rowsFromRecords keys each record by canonical header. When two columns
// canonicalize to the same name the leftmost one wins.
func rowsFromRecords(header []string, records [][]string) []domain.Row {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = domain.CanonicalizeHeader(h)
	}

	rows := make([]domain.Row, 0, len(records))
	for _, rec := range records {
		row := make(domain.Row, len(keys))
		for i, v := range rec {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			if _, dup := row[keys[i]]; dup {
				continue
			}
			row[keys[i]] = v
		}
		rows = append(rows, row)
	}
	return rows
}

package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads lanes from a workbook sheet. An empty sheet name selects the
// first sheet. The first row is the header.
func ReadXLSX(r io.Reader, sheet string) ([]domain.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, ErrEmptyFile
	}

	records := make([][]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		if len(rec) == 0 || isBlankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	return rowsFromRecords(all[0], records), nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package ingest

import (
	"fmt"
	"io"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	lanesSheet   = "Lanes"
	invalidSheet = "Invalid ZIPs"
)

var laneHeaders = []interface{}{
	"Lane ID", "Customer", "Origin ZIP", "Origin Lat", "Origin Lon",
	"Destination ZIP", "Destination Lat", "Destination Lon", "Bearing", "Distance (mi)",
}

// WriteLanesXLSX exports a dataset as a workbook with a Lanes sheet and an
// Invalid ZIPs sheet.
func WriteLanesXLSX(w io.Writer, ds domain.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(lanesSheet)
	if err != nil {
		return fmt.Errorf("create lanes sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}

	// Stream writer keeps memory flat for large lane files.
	sw, err := f.NewStreamWriter(lanesSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetRow("A1", laneHeaders); err != nil {
		return err
	}
	for i, l := range ds.Lanes {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			l.ID, l.CustomerName,
			l.OriginZip, l.Origin.Lat(), l.Origin.Lon(),
			l.DestinationZip, l.Destination.Lat(), l.Destination.Lon(),
			l.Bearing, l.DistanceMiles,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write lane %s: %w", l.ID, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush lanes sheet: %w", err)
	}

	if _, err := f.NewSheet(invalidSheet); err != nil {
		return fmt.Errorf("create invalid sheet: %w", err)
	}
	if err := f.SetCellValue(invalidSheet, "A1", "ZIP"); err != nil {
		return err
	}
	for i, z := range ds.InvalidZips {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(invalidSheet, cell, z); err != nil {
			return err
		}
	}

	return f.Write(w)
}

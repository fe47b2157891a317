package xlsx

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// Sheet names in the exported workbook.
const (
	SheetDetails = "Slip Details"
	SheetSummary = "Summary"
)

var detailHeaders = []string{
	"Slip Type", "Date", "Trip Number", "Vehicle Number", "Driver Name",
	"Amount", "Quantity", "Location", "Notes", "OCR Processed", "Created At",
}

var summaryHeaders = []string{
	"Slip Type", "Total Count", "OCR Processed", "Manual Entry",
	"Total Amount", "Total Quantity",
}

// Filename returns the dated export file name, unique per day.
func Filename(now time.Time) string {
	return "Trucking_Slips_" + now.Format(models.DateLayout) + ".xlsx"
}

// Export writes a two-sheet workbook to w: one detail row per slip and
// a per-type summary including explicit zero rows.
func Export(slips []models.Slip, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDetails); err != nil {
		return fmt.Errorf("xlsx: rename detail sheet: %w", err)
	}
	if err := writeRow(f, SheetDetails, 1, toAny(detailHeaders)); err != nil {
		return err
	}
	for i, s := range slips {
		row := []any{
			s.Type.Label(),
			s.Date,
			s.TripNumber,
			s.VehicleNumber,
			s.DriverName,
			s.Amount,
			s.Quantity,
			s.Location,
			s.Notes,
			yesNo(s.OCRProcessed),
			s.CreatedAt.Format("1/2/2006"),
		}
		if err := writeRow(f, SheetDetails, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("xlsx: add summary sheet: %w", err)
	}
	if err := writeRow(f, SheetSummary, 1, toAny(summaryHeaders)); err != nil {
		return err
	}
	for i, row := range query.SummarizeByType(slips) {
		values := []any{
			row.Type.Label(),
			row.Count,
			row.OCRCount,
			row.ManualCount,
			row.TotalAmount,
			row.TotalQuantity,
		}
		if err := writeRow(f, SheetSummary, i+2, values); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("xlsx: set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

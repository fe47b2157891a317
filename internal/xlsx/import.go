// Package xlsx implements workbook import and export of slip records.
package xlsx

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Import parses the first sheet of a workbook into slip-shaped records
// in row order. Records carry no identifier or creation timestamp;
// the repository assigns both on insert. An unparsable workbook fails
// whole with ErrImportFormat and no records.
//
// Header matching is case-sensitive against the canonical spaced form
// and its no-space variant ("Trip Number" or "TripNumber"). Missing
// columns default: type to loading, date to today, text to empty,
// numbers to 0.
func Import(r io.Reader) ([]models.Slip, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrImportFormat, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", apperr.ErrImportFormat)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrImportFormat, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := headerIndex(rows[0])
	cell := func(row []string, names ...string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var slips []models.Slip
	for _, row := range rows[1:] {
		if rowEmpty(row) {
			continue
		}
		date := cell(row, "Date")
		if date == "" {
			date = models.Today()
		}
		slips = append(slips, models.Slip{
			Type:          models.ParseSlipType(cell(row, "Type", "Slip Type")),
			Date:          date,
			TripNumber:    cell(row, "Trip Number", "TripNumber"),
			VehicleNumber: cell(row, "Vehicle Number", "VehicleNumber"),
			DriverName:    cell(row, "Driver Name", "DriverName"),
			Amount:        parseNumber(cell(row, "Amount")),
			Quantity:      parseNumber(cell(row, "Quantity")),
			Location:      cell(row, "Location"),
			Notes:         cell(row, "Notes"),
		})
	}
	return slips, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := cols[h]; h != "" && !dup {
			cols[h] = i
		}
	}
	return cols
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseNumber coerces a cell to a finite number; failed parses and
// non-finite values become 0.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

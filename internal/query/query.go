// Package query derives visible subsets and summary figures from slip
// sequences. All functions are pure and preserve input order.
package query

import (
	"strings"

	"github.com/starford/raido/internal/models"
)

// TypeAll disables type filtering.
const TypeAll = "all"

// Filter selects the visible subset of a slip sequence.
type Filter struct {
	Type   string // TypeAll (or empty) or one slip type value
	Search string // case-insensitive substring query
}

// Matches reports whether a single slip passes the filter. The search
// term is matched against trip number, vehicle number, driver name,
// and location.
func (f Filter) Matches(s models.Slip) bool {
	if f.Type != "" && f.Type != TypeAll && string(s.Type) != f.Type {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	for _, field := range []string{s.TripNumber, s.VehicleNumber, s.DriverName, s.Location} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns the slips passing the filter, in input order.
func (f Filter) Apply(slips []models.Slip) []models.Slip {
	out := make([]models.Slip, 0, len(slips))
	for _, s := range slips {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	return out
}

// Summary holds aggregate figures over a slip subset.
type Summary struct {
	Count         int     `json:"count"`
	TotalAmount   float64 `json:"total_amount"`
	TotalQuantity float64 `json:"total_quantity"`
	AverageAmount float64 `json:"average_amount"`
	OCRCount      int     `json:"ocr_count"`
}

// Summarize computes the aggregates over slips. AverageAmount is 0 for
// an empty subset.
func Summarize(slips []models.Slip) Summary {
	var sum Summary
	for _, s := range slips {
		sum.Count++
		sum.TotalAmount += s.Amount
		sum.TotalQuantity += s.Quantity
		if s.OCRProcessed {
			sum.OCRCount++
		}
	}
	if sum.Count > 0 {
		sum.AverageAmount = sum.TotalAmount / float64(sum.Count)
	}
	return sum
}

// TypeSummary is one per-type summary row.
type TypeSummary struct {
	Type          models.SlipType `json:"type"`
	Count         int             `json:"count"`
	OCRCount      int             `json:"ocr_count"`
	ManualCount   int             `json:"manual_count"`
	TotalAmount   float64         `json:"total_amount"`
	TotalQuantity float64         `json:"total_quantity"`
}

// SummarizeByType computes one row per slip type in display order.
// Types with no records produce explicit zero rows.
func SummarizeByType(slips []models.Slip) []TypeSummary {
	types := models.SlipTypes()
	rows := make([]TypeSummary, len(types))
	index := make(map[models.SlipType]int, len(types))
	for i, t := range types {
		rows[i] = TypeSummary{Type: t}
		index[t] = i
	}
	for _, s := range slips {
		i, ok := index[s.Type]
		if !ok {
			continue
		}
		rows[i].Count++
		rows[i].TotalAmount += s.Amount
		rows[i].TotalQuantity += s.Quantity
		if s.OCRProcessed {
			rows[i].OCRCount++
		} else {
			rows[i].ManualCount++
		}
	}
	return rows
}

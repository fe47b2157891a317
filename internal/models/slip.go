// Package models defines the domain types for Raido.
package models

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used on slip records.
const DateLayout = "2006-01-02"

// SlipType classifies a slip record.
type SlipType string

// Slip types.
const (
	SlipTypeLoading    SlipType = "loading"
	SlipTypeOffloading SlipType = "offloading"
	SlipTypeFuel       SlipType = "fuel"
)

// SlipTypes returns every slip type in display order.
func SlipTypes() []SlipType {
	return []SlipType{SlipTypeLoading, SlipTypeOffloading, SlipTypeFuel}
}

// Valid reports whether t is one of the known slip types.
func (t SlipType) Valid() bool {
	switch t {
	case SlipTypeLoading, SlipTypeOffloading, SlipTypeFuel:
		return true
	}
	return false
}

// Label returns the human-readable name for t.
func (t SlipType) Label() string {
	switch t {
	case SlipTypeLoading:
		return "Loading Slip"
	case SlipTypeOffloading:
		return "Offloading Slip"
	case SlipTypeFuel:
		return "Fuel Slip"
	}
	return string(t)
}

// ParseSlipType maps a free-form value to a slip type. It accepts the
// raw value ("Fuel") and the display label ("Fuel Slip") in any case.
// Unrecognized or empty values fall back to loading, matching import
// semantics.
func ParseSlipType(s string) SlipType {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, " slip")
	t := SlipType(v)
	if !t.Valid() {
		return SlipTypeLoading
	}
	return t
}

// Slip is one logistics transaction record (loading, offloading, or fuel).
type Slip struct {
	ID            string    `json:"id"`
	Type          SlipType  `json:"type"`
	Date          string    `json:"date"` // YYYY-MM-DD
	TripNumber    string    `json:"trip_number"`
	VehicleNumber string    `json:"vehicle_number"`
	DriverName    string    `json:"driver_name"`
	Amount        float64   `json:"amount"`
	Quantity      float64   `json:"quantity"`
	Location      string    `json:"location"`
	Notes         string    `json:"notes"`
	OCRProcessed  bool      `json:"ocr_processed"`
	CreatedAt     time.Time `json:"created_at"`
}

// Today returns the current date in the slip date format.
func Today() string {
	return time.Now().Format(DateLayout)
}

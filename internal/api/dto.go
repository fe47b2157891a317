package api

import (
	"github.com/starford/raido/internal/capture"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/query"
)

// CreateSlipRequest is the request body for creating a manual slip.
type CreateSlipRequest struct {
	Type string `json:"type" example:"fuel" validate:"required"`
}

// SelectTypeRequest is the request body for choosing the capture type.
type SelectTypeRequest struct {
	Type string `json:"type" example:"loading" validate:"required"`
}

// Slip is the slip record payload (aliased from the domain layer).
type Slip = models.Slip

// SlipListResponse wraps a filtered listing with its summary.
type SlipListResponse struct {
	Slips   []models.Slip `json:"slips" validate:"required"`
	Summary query.Summary `json:"summary" validate:"required"`
}

// SummaryResponse wraps the per-type aggregation rows.
type SummaryResponse struct {
	Types []query.TypeSummary `json:"types" validate:"required"`
}

// ImportResponse reports how many records a workbook contributed.
type ImportResponse struct {
	Imported int `json:"imported" example:"12" validate:"required"`
}

// CaptureSnapshot is the capture session view (aliased from the domain layer).
type CaptureSnapshot = capture.Snapshot

// CaptureFields is the editable recognition field set (aliased from the domain layer).
type CaptureFields = capture.Fields

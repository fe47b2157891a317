package capture

import (
	"context"

	"github.com/starford/raido/internal/models"
)

// Fields is the confidence-scored field set returned by a recognizer,
// editable during review.
type Fields struct {
	TripNumber    string  `json:"trip_number"`
	VehicleNumber string  `json:"vehicle_number"`
	DriverName    string  `json:"driver_name"`
	Amount        float64 `json:"amount"`
	Quantity      float64 `json:"quantity"`
	Location      string  `json:"location"`
	Date          string  `json:"date"`
	Notes         string  `json:"notes"`
	Confidence    float64 `json:"confidence"` // percentage in [0,100]
}

// Recognizer extracts structured fields from a slip image. The
// implementation is an external collaborator; its accuracy is opaque
// to the workflow.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, slipType models.SlipType) (Fields, error)
}
